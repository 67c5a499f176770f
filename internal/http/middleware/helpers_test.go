package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/tendant/simple-accounts/pkg/domain"
)

func contextWithAccount(r *http.Request, account *domain.Account) context.Context {
	return context.WithValue(r.Context(), AccountKey, account)
}

// accountLoader serves accounts from a map; unknown ids load as nil.
type accountLoader map[int64]*domain.Account

func (l accountLoader) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	if a, ok := l[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

type failingLoader struct{}

func (failingLoader) GetByID(context.Context, int64) (*domain.Account, error) {
	return nil, errors.New("database is gone")
}
