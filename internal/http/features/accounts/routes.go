package accounts

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the account administration routes on r.
// Callers are expected to guard r with RequireLogin and RequireAdmin.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/accounts", h.List)
	r.Get("/v1/accounts/{id}", h.Get)
	r.Head("/v1/accounts/{id}", h.Head)
	r.Delete("/v1/accounts/{id}", h.Delete)
}
