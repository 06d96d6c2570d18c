// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the ledger and
// session layers from the concrete gateway and storage implementations.
package port

import (
	"context"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/schema"
)

// CampaignGateway is the typed request boundary to the remote campaign
// service. Pure request/response: no caching, no derived state.
type CampaignGateway interface {
	ListCampaigns(ctx context.Context) ([]schema.RemoteCampaign, error)
	GetCampaign(ctx context.Context, id string) (*schema.RemoteCampaign, error)
	CreateCampaign(ctx context.Context, body schema.CreateCampaignBody) (*schema.RemoteCampaign, error)
	DeleteCampaign(ctx context.Context, id string) error
	CreateDonation(ctx context.Context, title, paymentMethod string, amount float64, campaignID string) error
	CreateUpdate(ctx context.Context, title, description, campaignID string) error
	ListDonations(ctx context.Context, campaignID string) ([]schema.RemoteDonation, error)
	ListUpdates(ctx context.Context, campaignID string) ([]schema.RemoteUpdate, error)
}

// AuthGateway covers the session endpoints of the remote service.
type AuthGateway interface {
	Login(ctx context.Context, identifier, secret string) (*domain.Session, error)
	Register(ctx context.Context, profile domain.RegisterProfile) (*domain.Session, error)
	CheckSession(ctx context.Context) (*domain.User, error)
}

// CredentialSource exposes the current bearer credential to the
// gateway. Implemented by the session credential holder so a credential
// change is visible on the very next outgoing request.
type CredentialSource interface {
	Token() string
}

// SessionReader is what the ledger needs from the session store: just
// enough to gate mutations and stamp donor identity.
type SessionReader interface {
	CurrentUser() *domain.User
}

// LocalStore persists the session snapshot between runs, standing in
// for the browser's local storage. Token and user are stored under
// fixed keys and must be cleared together.
type LocalStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}
