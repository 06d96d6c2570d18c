// Package session owns the authenticated identity and its bearer
// credential: login, registration, logout, and the startup restore
// against persisted state. The identity and the token always change
// together — in memory, in local storage, and in the credential slot
// the gateway reads.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/localstore"
	"github.com/Clive-Nyaga/Fund-Connect/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("session")

// Store holds the current session and coordinates it with the remote
// service and local storage.
type Store struct {
	auth       port.AuthGateway
	credential *Credential
	local      port.LocalStore
	// trustCached skips the startup /check revalidation when a
	// persisted identity snapshot exists. Default false: the snapshot
	// is exposed immediately either way, but revalidation still runs.
	trustCached bool
	logger      *zap.Logger

	user atomicUser
}

// NewStore creates the session store. credential must be the same
// holder handed to the gateway.
func NewStore(auth port.AuthGateway, credential *Credential, local port.LocalStore, trustCached bool, logger *zap.Logger) *Store {
	return &Store{
		auth:        auth,
		credential:  credential,
		local:       local,
		trustCached: trustCached,
		logger:      logger,
	}
}

// CurrentUser returns the authenticated identity, or nil when logged
// out. The returned value is a copy.
func (s *Store) CurrentUser() *domain.User {
	return s.user.get()
}

// Login exchanges credentials for a session. On failure the previously
// held session, if any, is left untouched.
func (s *Store) Login(ctx context.Context, identifier, secret string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Session.Login")
	defer span.End()

	if identifier == "" || secret == "" {
		return nil, &domain.ErrValidation{Field: "credentials", Message: "identifier and password are required"}
	}

	sess, err := s.auth.Login(ctx, identifier, secret)
	if err != nil {
		var authErr *domain.ErrAuthentication
		if errors.As(err, &authErr) {
			return nil, err
		}
		// Unreachable service is still a failed authentication from the
		// caller's point of view; keep the cause chained.
		return nil, &domain.ErrAuthentication{Message: fmt.Sprintf("login failed: %v", err)}
	}

	if err := s.adopt(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("logged in", zap.String("user_id", sess.User.ID), zap.String("user_name", sess.User.Name))
	u := sess.User
	return &u, nil
}

// Register creates an account and establishes a session. Backends that
// answer with only a confirmation message get a follow-up Login with
// the same credentials.
func (s *Store) Register(ctx context.Context, profile domain.RegisterProfile) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Session.Register")
	defer span.End()

	if profile.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if profile.Email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if profile.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "password is required"}
	}

	sess, err := s.auth.Register(ctx, profile)
	if err != nil {
		return nil, err
	}

	if sess.Token == "" {
		// Confirmation-only response shape; the account exists but no
		// session was issued.
		s.logger.Debug("registration returned no session, performing follow-up login",
			zap.String("email", profile.Email))
		return s.Login(ctx, profile.Email, profile.Password)
	}

	if err := s.adopt(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("registered", zap.String("user_id", sess.User.ID))
	u := sess.User
	return &u, nil
}

// Logout clears the session unconditionally. Idempotent: logging out
// with no session is not an error.
func (s *Store) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Session.Logout")
	defer span.End()

	s.user.clear()
	s.credential.clear()

	if err := s.local.Delete(ctx, localstore.KeyToken, localstore.KeyUser); err != nil {
		// Memory is already cleared; surface the persistence failure.
		s.logger.Warn("logout: failed to clear local storage", zap.Error(err))
		return err
	}

	s.logger.Info("logged out")
	return nil
}

// Restore loads a persisted session at startup. A cached identity
// snapshot is exposed immediately (stale-while-revalidate); unless the
// store was built with trustCached, the credential is then revalidated
// against the remote service and discarded on rejection. Tokens whose
// JWT exp claim is already in the past are discarded without a network
// round trip.
func (s *Store) Restore(ctx context.Context) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Session.Restore")
	defer span.End()

	token, err := s.local.Get(ctx, localstore.KeyToken)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	if expired(token) {
		s.logger.Info("restore: persisted token already expired, discarding")
		return nil, s.Logout(ctx)
	}

	s.credential.set(token)

	var snapshot *domain.User
	if raw, err := s.local.Get(ctx, localstore.KeyUser); err == nil && raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			snapshot = &u
			s.user.set(&u)
		} else {
			s.logger.Warn("restore: corrupt identity snapshot, ignoring", zap.Error(err))
		}
	}

	if snapshot != nil && s.trustCached {
		s.logger.Info("restore: trusting cached identity", zap.String("user_id", snapshot.ID))
		return snapshot, nil
	}

	user, err := s.auth.CheckSession(ctx)
	if err != nil {
		if credentialRejected(err) {
			s.logger.Info("restore: stored credential rejected, clearing session")
			if lo := s.Logout(ctx); lo != nil {
				return nil, lo
			}
			return nil, nil
		}
		// Transport failure: keep whatever snapshot we have rather than
		// logging the user out over a flaky network.
		s.logger.Warn("restore: session check unreachable, keeping cached identity", zap.Error(err))
		return snapshot, nil
	}

	s.user.set(user)
	if raw, err := json.Marshal(user); err == nil {
		if err := s.local.Set(ctx, localstore.KeyUser, string(raw)); err != nil {
			s.logger.Warn("restore: failed to refresh identity snapshot", zap.Error(err))
		}
	}

	s.logger.Info("session restored", zap.String("user_id", user.ID))
	return user, nil
}

// adopt installs a new session in memory, in the credential slot, and
// in local storage, in that order.
func (s *Store) adopt(ctx context.Context, sess *domain.Session) error {
	s.user.set(&sess.User)
	s.credential.set(sess.Token)

	if err := s.local.Set(ctx, localstore.KeyToken, sess.Token); err != nil {
		return err
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	return s.local.Set(ctx, localstore.KeyUser, string(raw))
}

// credentialRejected distinguishes "the server said no" from "the
// server could not be reached".
func credentialRejected(err error) bool {
	var authErr *domain.ErrAuthentication
	var valErr *domain.ErrValidation
	var notFound *domain.ErrNotFound
	return errors.As(err, &authErr) || errors.As(err, &valErr) || errors.As(err, &notFound)
}

// expired peeks at a JWT exp claim without verifying the signature
// (verification is the server's job). Opaque tokens pass through to the
// normal network check.
func expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
