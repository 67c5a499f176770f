package accounts

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/tendant/simple-accounts/pkg/domain"
)

var errDB = errors.New("database is gone")

// plainHasher keeps unit tests fast; the integration tests use argon2id.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }
func (plainHasher) Verify(p, e string) bool       { return e == "plain:"+p }

// fakeRepo is an in-memory Repository that counts calls and can fail on demand.
type fakeRepo struct {
	accounts map[int64]*domain.Account
	nextID   int64
	calls    map[string]int

	failOn map[string]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: map[int64]*domain.Account{},
		nextID:   1,
		calls:    map[string]int{},
		failOn:   map[string]error{},
	}
}

func (f *fakeRepo) totalCalls() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRepo) enter(op string) error {
	f.calls[op]++
	return f.failOn[op]
}

func (f *fakeRepo) add(a domain.Account) *domain.Account {
	a.ID = f.nextID
	f.nextID++
	cp := a
	f.accounts[a.ID] = &cp
	return &cp
}

func (f *fakeRepo) Create(_ context.Context, a *domain.Account) error {
	if err := f.enter("Create"); err != nil {
		return err
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return domain.ErrAccountAlreadyExists
		}
	}
	*a = *f.add(*a)
	return nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	if err := f.enter("GetByEmail"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(f.accounts))
	for id := range f.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if f.accounts[id].Email == email {
			cp := *f.accounts[id]
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	if err := f.enter("GetByID"); err != nil {
		return nil, err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context) ([]domain.AccountSummary, error) {
	if err := f.enter("List"); err != nil {
		return nil, err
	}
	out := []domain.AccountSummary{}
	for _, a := range f.accounts {
		out = append(out, domain.AccountSummary{ID: a.ID, UserName: a.UserName, IsDeleted: a.IsDeleted})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) Count(_ context.Context) (int64, error) {
	if err := f.enter("Count"); err != nil {
		return 0, err
	}
	return int64(len(f.accounts)), nil
}

func (f *fakeRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	if err := f.enter("ExistsByID"); err != nil {
		return false, err
	}
	_, ok := f.accounts[id]
	return ok, nil
}

func (f *fakeRepo) ResetErrorCount(_ context.Context, id int64) error {
	if err := f.enter("ResetErrorCount"); err != nil {
		return err
	}
	a, ok := f.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ErrorCount = 0
	return nil
}

func (f *fakeRepo) IncrementErrorCount(_ context.Context, id int64) (int, error) {
	if err := f.enter("IncrementErrorCount"); err != nil {
		return 0, err
	}
	a, ok := f.accounts[id]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	a.ErrorCount++
	return a.ErrorCount, nil
}

func (f *fakeRepo) Lock(_ context.Context, id int64) error {
	if err := f.enter("Lock"); err != nil {
		return err
	}
	a, ok := f.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.LockedFlg = true
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id int64) error {
	if err := f.enter("SoftDelete"); err != nil {
		return err
	}
	a, ok := f.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.IsDeleted = true
	return nil
}

// newFakeStore returns a store over a fake repository and a buffer capturing its logs.
func newFakeStore(t *testing.T, cfg Config) (*Store, *fakeRepo, *bytes.Buffer) {
	t.Helper()
	repo := newFakeRepo()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{AddSource: true}))
	store, err := NewStore(cfg, repo, plainHasher{}, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, repo, &logs
}

func logsContain(logs *bytes.Buffer, s string) bool {
	return strings.Contains(logs.String(), s)
}
