package session

import "sync"

// Credential is the single mutable slot holding the current bearer
// token. The gateway reads it through port.CredentialSource on every
// outgoing request, so a change here is visible with no stale window.
type Credential struct {
	mu    sync.RWMutex
	token string
}

// NewCredential returns an empty credential holder.
func NewCredential() *Credential {
	return &Credential{}
}

// Token returns the current bearer token, or "" when logged out.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credential) set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Credential) clear() {
	c.set("")
}
