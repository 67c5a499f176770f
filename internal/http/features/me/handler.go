package me

import (
	"net/http"

	"github.com/tendant/simple-accounts/internal/http/middleware"
	"github.com/tendant/simple-accounts/internal/httputil"
)

// Handler handles account profile endpoints.
type Handler struct{}

// NewHandler creates a new me handler.
func NewHandler() *Handler {
	return &Handler{}
}

// GetMe returns the logged-in account as RequireLogin loaded it.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not logged in")
		return
	}
	httputil.JSON(w, http.StatusOK, account)
}
