package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/session"

	"go.uber.org/zap"
)

type loginRequest struct {
	// Identifier may be a name or an email; Email is accepted as an
	// alias so existing form payloads keep working.
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func loginHandler(sess *session.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		identifier := req.Identifier
		if identifier == "" {
			identifier = req.Email
		}

		user, err := sess.Login(r.Context(), identifier, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func registerHandler(sess *session.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile domain.RegisterProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := sess.Register(r.Context(), profile)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func logoutHandler(sess *session.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Logout(r.Context()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func currentSessionHandler(sess *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := sess.CurrentUser()
		if user == nil {
			writeError(w, http.StatusUnauthorized, "no active session")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
