package session

import (
	"net/http"

	"github.com/tendant/simple-accounts/internal/http/middleware"
	"github.com/tendant/simple-accounts/pkg/session"
)

// AccountStore is the part of accounts.Store the session endpoints use.
type AccountStore interface {
	Logout(sess *session.Session)
}

// Handler handles session endpoints.
type Handler struct {
	store AccountStore
}

// NewHandler creates a new session handler.
func NewHandler(store AccountStore) *Handler {
	return &Handler{store: store}
}

// Logout clears the session. The session middleware destroys it and clears
// the cookie. Logging out without a session is not an error.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.GetSession(r.Context()); sess != nil {
		h.store.Logout(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}
