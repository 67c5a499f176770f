package middleware

import (
	"context"
	"net/http"

	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/domain"
)

type contextKey string

const (
	// SessionKey is the context key for the request's session.
	SessionKey contextKey = "session"
	// AccountKey is the context key for the logged-in account.
	AccountKey contextKey = "account"
)

// AccountLoader re-reads accounts by id.
type AccountLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

// RequireLogin rejects requests whose session holds no account. The account
// is re-read on every request: one that has vanished or been soft-deleted
// since login ends the session, and handlers see the stored flags rather than
// the snapshot taken at login. Must run after Session.
func RequireLogin(store AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			current, ok := accounts.CurrentAccount(sess)
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "not logged in")
				return
			}

			account, err := store.GetByID(r.Context(), current.ID)
			if err != nil {
				httputil.Error(w, http.StatusInternalServerError, "failed to load account")
				return
			}
			if account == nil || account.IsDeleted {
				sess.Invalidate()
				httputil.Error(w, http.StatusUnauthorized, "not logged in")
				return
			}

			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests from accounts without the admin flag.
// Must run after RequireLogin.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := GetAccount(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "not logged in")
				return
			}
			if !account.IsAdmin {
				httputil.Error(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAccount extracts the logged-in account from the request context.
func GetAccount(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*domain.Account)
	return account, ok
}
