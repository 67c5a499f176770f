package accounts_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/session"
)

type sqliteFixture struct {
	store *accounts.Store
	repo  *repository.AccountsRepository
}

func newSQLiteStore(t *testing.T, cfg accounts.Config) sqliteFixture {
	t.Helper()
	ctx := context.Background()

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db, repository.DialectSQLite))

	repo := repository.NewAccountsRepository(db, repository.DialectSQLite)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store, err := accounts.NewStore(cfg, repo, auth.NewArgon2Hasher(), logger)
	require.NoError(t, err)
	return sqliteFixture{store: store, repo: repo}
}

func register(t *testing.T, store *accounts.Store, email, password string) int64 {
	t.Helper()
	account, err := store.Register(context.Background(), accounts.RegisterInput{
		UserName:   "user",
		FamilyName: "Family",
		FirstName:  "First",
		Email:      email,
		Password:   password,
	})
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.ID
}

func TestSQLite_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteStore(t, accounts.Config{})

	id := register(t, f.store, "ada@example.com", "Secret123")
	assert.Equal(t, int64(1), id)

	stored, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "Secret123", stored.PasswordHash)
	assert.False(t, stored.IsAdmin)
	assert.False(t, stored.IsDeleted)
	assert.False(t, stored.LockedFlg)
	assert.Zero(t, stored.ErrorCount)

	account, err := f.store.Authenticate(ctx, "ada@example.com", "Secret123")
	require.NoError(t, err)
	assert.NotNil(t, account)

	account, err = f.store.Authenticate(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestSQLite_DuplicateRegistrationLeavesCountUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteStore(t, accounts.Config{})
	register(t, f.store, "a@x.io", "pw")

	before, err := f.repo.Count(ctx)
	require.NoError(t, err)

	dup, err := f.store.Register(ctx, accounts.RegisterInput{Email: "a@x.io", Password: "other"})
	require.NoError(t, err)
	assert.Nil(t, dup)

	after, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSQLite_LockoutAtThresholdSix(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteStore(t, accounts.Config{LockoutThreshold: 6})
	id := register(t, f.store, "a@x.io", "right")
	sess := session.New()

	for i := 1; i <= 5; i++ {
		outcome, err := f.store.LoginWithLockout(ctx, sess, "a@x.io", "wrong")
		require.NoError(t, err)
		assert.Equal(t, accounts.LoginFailed, outcome)
	}
	a, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, a.ErrorCount)
	assert.False(t, a.LockedFlg)

	outcome, err := f.store.LoginWithLockout(ctx, sess, "a@x.io", "wrong")
	require.NoError(t, err)
	assert.Equal(t, accounts.LoginNowLocked, outcome)
	a, err = f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, a.ErrorCount)
	assert.True(t, a.LockedFlg)

	outcome, err = f.store.LoginWithLockout(ctx, sess, "a@x.io", "right")
	require.NoError(t, err)
	assert.Equal(t, accounts.LoginLocked, outcome)
	a, err = f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, a.ErrorCount)
	_, ok := accounts.CurrentAccount(sess)
	assert.False(t, ok)
}

func TestSQLite_SuccessResetsErrorCount(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteStore(t, accounts.Config{})
	id := register(t, f.store, "a@x.io", "right")
	sess := session.New()

	for i := 0; i < 3; i++ {
		_, err := f.store.LoginWithLockout(ctx, sess, "a@x.io", "wrong")
		require.NoError(t, err)
	}

	outcome, err := f.store.LoginWithLockout(ctx, sess, "a@x.io", "right")
	require.NoError(t, err)
	assert.Equal(t, accounts.LoginSucceeded, outcome)

	a, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, a.ErrorCount)

	current, ok := accounts.CurrentAccount(sess)
	require.True(t, ok)
	assert.Equal(t, id, current.ID)

	f.store.Logout(sess)
	_, ok = accounts.CurrentAccount(sess)
	assert.False(t, ok)
}

func TestSQLite_SoftDeletedAccountCannotLogIn(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteStore(t, accounts.Config{})
	id := register(t, f.store, "a@x.io", "right")

	ok, err := f.store.SoftDelete(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	outcome, err := f.store.LoginWithLockout(ctx, session.New(), "a@x.io", "right")
	require.NoError(t, err)
	assert.Equal(t, accounts.LoginFailed, outcome)

	// Still listed and still blocks re-registration.
	list, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDeleted)

	dup, err := f.store.Register(ctx, accounts.RegisterInput{Email: "a@x.io", Password: "pw"})
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestSQLite_ExistenceModes(t *testing.T) {
	ctx := context.Background()

	legacy := newSQLiteStore(t, accounts.Config{ExistenceCheck: accounts.ExistsAnyAccount})
	register(t, legacy.store, "a@x.io", "pw")
	ok, err := legacy.store.Exists(ctx, 12345)
	require.NoError(t, err)
	assert.True(t, ok)

	byID := newSQLiteStore(t, accounts.Config{ExistenceCheck: accounts.ExistsByID})
	id := register(t, byID.store, "a@x.io", "pw")
	ok, err = byID.store.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = byID.store.Exists(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, ok)
}
