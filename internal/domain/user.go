package domain

// User is the authenticated account identity.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation,omitempty"`
}

// Session pairs an identity with its bearer credential. The two always
// travel together.
type Session struct {
	User  User
	Token string
}

// RegisterProfile carries the fields a new account is created with.
// The json tags match the backend's registration body.
type RegisterProfile struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Designation string `json:"designation,omitempty"`
}
