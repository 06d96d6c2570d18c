package session

import (
	"sync"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
)

// atomicUser guards the current identity. Reads are frequent (every
// ledger mutation checks it); writes happen only on login, logout and
// restore.
type atomicUser struct {
	mu   sync.RWMutex
	user *domain.User
}

func (a *atomicUser) get() *domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *atomicUser) set(u *domain.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = u
}

func (a *atomicUser) clear() {
	a.set(nil)
}
