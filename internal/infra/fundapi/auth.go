package fundapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/schema"
)

// --- Session resources (implements port.AuthGateway) ---

// remoteAuthUser is the backend's user object on auth responses.
type remoteAuthUser struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Designation string      `json:"designation"`
}

func (u remoteAuthUser) toDomain() domain.User {
	return domain.User{
		ID:          schema.NormalizeID(u.ID.String()),
		Name:        u.Name,
		Email:       u.Email,
		Designation: u.Designation,
	}
}

// authResponse covers both shapes the backend returns from /login and
// /users: {token, user} on direct session issue, or just {message} on a
// confirmation-only registration.
type authResponse struct {
	Token   string          `json:"token"`
	User    *remoteAuthUser `json:"user"`
	Message string          `json:"message"`
}

// Login exchanges credentials for a session. The identifier may be a
// name or an email; the backend accepts either field.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.Login")
	defer span.End()

	payload := map[string]any{"password": secret}
	if strings.Contains(identifier, "@") {
		payload["email"] = identifier
	} else {
		payload["name"] = identifier
	}

	body, err := c.do(ctx, http.MethodPost, "/login", "", payload)
	if err != nil {
		// A validation-shaped rejection on login still means bad credentials.
		if v, ok := err.(*domain.ErrValidation); ok {
			return nil, &domain.ErrAuthentication{Message: v.Message}
		}
		return nil, wrapExternal("login", err)
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/login", Err: fmt.Errorf("decode login response: %w", err)}
	}
	if resp.Token == "" || resp.User == nil {
		return nil, &domain.ErrAuthentication{Message: "login response missing token or user"}
	}

	return &domain.Session{User: resp.User.toDomain(), Token: resp.Token}, nil
}

// Register creates an account. Some backend versions return a full
// session, others only a confirmation message; in the latter case the
// returned session has an empty token and the caller must follow up
// with Login.
func (c *Client) Register(ctx context.Context, profile domain.RegisterProfile) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.Register")
	defer span.End()

	body, err := c.do(ctx, http.MethodPost, "/users", "", profile)
	if err != nil {
		return nil, wrapExternal("users", err)
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/users", Err: fmt.Errorf("decode register response: %w", err)}
	}

	if resp.Token != "" && resp.User != nil {
		return &domain.Session{User: resp.User.toDomain(), Token: resp.Token}, nil
	}
	if resp.Message != "" {
		// Confirmation-only shape: account exists, no session yet.
		return &domain.Session{}, nil
	}
	return nil, &domain.ErrExternalService{Service: "fundconnect/users", Err: fmt.Errorf("unrecognized register response")}
}

// CheckSession validates the stored credential against the backend.
// Any non-2xx means the credential is invalid and must be discarded.
func (c *Client) CheckSession(ctx context.Context) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.CheckSession")
	defer span.End()

	token, err := c.requireCredential("check session")
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodGet, "/check", token, nil)
	if err != nil {
		// The backend answered with a non-2xx: the credential is invalid,
		// including post-retry 5xx. Only a transport failure, where no
		// response arrived at all, lets the caller keep its snapshot.
		if rejection := checkRejection(err); rejection != nil {
			return nil, rejection
		}
		return nil, wrapExternal("check", err)
	}

	var user remoteAuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/check", Err: fmt.Errorf("decode session check: %w", err)}
	}
	u := user.toDomain()
	return &u, nil
}

// checkRejection maps any completed non-2xx session-check response to
// an authentication failure. Circuit-open and transport errors return
// nil: no response was received, so the credential's validity is
// unknown.
func checkRejection(err error) error {
	var authErr *domain.ErrAuthentication
	if errors.As(err, &authErr) {
		return authErr
	}

	var status *statusCodeError
	var valErr *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var conflict *domain.ErrConflict
	if errors.As(err, &status) || errors.As(err, &valErr) || errors.As(err, &notFound) || errors.As(err, &conflict) {
		return &domain.ErrAuthentication{Message: "session check rejected: " + err.Error()}
	}
	return nil
}
