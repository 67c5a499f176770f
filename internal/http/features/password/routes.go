package password

import (
	"net/http"
)

// RegisterRoutes registers password authentication routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/accounts/register", h.Register)
	mux.HandleFunc("POST /v1/auth/login", h.Login)
}
