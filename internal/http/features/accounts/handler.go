package accounts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// AccountStore is the part of accounts.Store the admin endpoints use.
type AccountStore interface {
	ListAll(ctx context.Context) ([]domain.AccountSummary, error)
	Exists(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// Handler handles account administration endpoints.
type Handler struct {
	logger *slog.Logger
	store  AccountStore
}

// NewHandler creates a new accounts handler.
func NewHandler(logger *slog.Logger, store AccountStore) *Handler {
	return &Handler{
		logger: logger,
		store:  store,
	}
}

// ListResponse wraps the account list.
type ListResponse struct {
	Accounts []domain.AccountSummary `json:"accounts"`
}

// List returns every account, soft-deleted ones included.
// GET /v1/accounts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListAll(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Accounts: list})
}

// Get returns one account.
// GET /v1/accounts/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	account, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if account == nil {
		httputil.Error(w, http.StatusNotFound, "account not found")
		return
	}
	httputil.JSON(w, http.StatusOK, account)
}

// Head answers with 200 or 404 and no body.
// HEAD /v1/accounts/{id}
func (h *Handler) Head(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	exists, err := h.store.Exists(r.Context(), id)
	switch {
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
	case exists:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Delete soft-deletes an account.
// DELETE /v1/accounts/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	deleted, err := h.store.SoftDelete(r.Context(), id)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	if !deleted {
		httputil.Error(w, http.StatusNotFound, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// accountID parses the {id} path parameter, writing a 400 when it is malformed.
func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := domain.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}
