// Package accounts implements the account store: registration, credential
// checks, soft deletion and the login procedure with brute-force lockout.
//
// Every public method returns a value plus an error. Expected outcomes such as
// a duplicate email, a wrong password or a locked account come back through the
// value; the error is reserved for storage failures and is always a
// *StorageError. Register is the exception: a password the hasher refuses
// comes back as an error wrapping domain.ErrPasswordTooLong.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/session"
)

// Repository is the persistence the store needs. Each write method must run
// in its own transaction.
type Repository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	List(ctx context.Context) ([]domain.AccountSummary, error)
	Count(ctx context.Context) (int64, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ResetErrorCount(ctx context.Context, id int64) error
	IncrementErrorCount(ctx context.Context, id int64) (int, error)
	Lock(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64) error
}

// Store owns all reads and writes of account records.
type Store struct {
	cfg    Config
	repo   Repository
	hasher auth.Hasher
	logger *slog.Logger
}

// NewStore creates an account store. Zero-valued config fields take their defaults.
func NewStore(cfg Config, repo Repository, hasher auth.Hasher, logger *slog.Logger) (*Store, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cfg:    cfg,
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}, nil
}

// Config returns the configuration the store runs with.
func (s *Store) Config() Config {
	return s.cfg
}

// RegisterInput holds the fields supplied at registration.
type RegisterInput struct {
	UserName   string
	FamilyName string
	FirstName  string
	Email      string
	Password   string
}

// Register creates an account. It returns nil without error when the email is
// already used by any account, deleted or not.
func (s *Store) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	email := auth.NormalizeEmail(in.Email)

	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, domain.ErrPasswordTooLong) {
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "password hashing failed", "error", err)
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}

	account := &domain.Account{
		UserName:     auth.SanitizeName(in.UserName),
		FamilyName:   auth.SanitizeName(in.FamilyName),
		FirstName:    auth.SanitizeName(in.FirstName),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			return nil, nil
		}
		return nil, s.storageError(ctx, "create account", err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID)
	return account, nil
}

// FindByEmail returns the first account with email, deleted or not, or nil.
func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.repo.GetByEmail(ctx, auth.NormalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageError(ctx, "find account by email", err)
	}
	return account, nil
}

// Authenticate returns the account when password matches its stored hash.
// It does not look at the deleted or locked flags.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.FindByEmail(ctx, email)
	if err != nil || account == nil {
		return nil, err
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, nil
	}
	return account, nil
}

// LoginWithLockout runs the lockout-aware login procedure and, on success,
// stores the account in sess. sess must not be nil.
//
// Reset, increment and lock are separate transactions. If the process dies
// between increment and lock, the next failed attempt locks the account.
func (s *Store) LoginWithLockout(ctx context.Context, sess *session.Session, email, password string) (LoginOutcome, error) {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		return LoginFailed, err
	}
	if account == nil {
		return LoginFailed, nil
	}

	if account.IsLocked() {
		sess.SetError(s.cfg.Messages.Locked)
		return LoginLocked, nil
	}

	if s.credentialsValid(account, password) {
		if account.ErrorCount != 0 {
			if err := s.repo.ResetErrorCount(ctx, account.ID); err != nil {
				return LoginFailed, s.storageError(ctx, "reset error count", err)
			}
			account.ErrorCount = 0
		}
		if err := sess.Set(session.KeyAccount, account); err != nil {
			return LoginFailed, s.storageError(ctx, "store session account", err)
		}
		s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID)
		return LoginSucceeded, nil
	}

	count, err := s.repo.IncrementErrorCount(ctx, account.ID)
	if err != nil {
		return LoginFailed, s.storageError(ctx, "increment error count", err)
	}
	if count < s.cfg.LockoutThreshold {
		return LoginFailed, nil
	}

	if err := s.repo.Lock(ctx, account.ID); err != nil {
		return LoginFailed, s.storageError(ctx, "lock account", err)
	}
	s.logger.WarnContext(ctx, "account locked",
		"account_id", account.ID,
		"error_count", count,
		"threshold", s.cfg.LockoutThreshold,
	)
	sess.SetError(s.cfg.Messages.NowLocked)
	return LoginNowLocked, nil
}

// credentialsValid is the inner login check: the password must match and the
// account must be allowed to log in (not soft-deleted; the lock is checked
// before this runs).
func (s *Store) credentialsValid(account *domain.Account, password string) bool {
	return s.hasher.Verify(password, account.PasswordHash) && account.CanAuthenticate()
}

// Logout drops the logged-in account and the message keys, then clears and
// invalidates the whole session. The session's owner destroys it in the store.
func (s *Store) Logout(sess *session.Session) {
	sess.Unset(session.KeyAccount, session.KeyError, session.KeySuccess, session.KeyFill)
	sess.Invalidate()
}

// CurrentAccount returns the account stored in sess by a successful login.
func (s *Store) CurrentAccount(sess *session.Session) (*domain.Account, bool) {
	return CurrentAccount(sess)
}

// CurrentAccount returns the account stored in sess by a successful login.
// The password hash is never kept in the session.
func CurrentAccount(sess *session.Session) (*domain.Account, bool) {
	if sess == nil {
		return nil, false
	}
	var a domain.Account
	ok, err := sess.Get(session.KeyAccount, &a)
	if !ok || err != nil || !domain.ValidID(a.ID) {
		return nil, false
	}
	return &a, true
}

// ListAll returns every account ordered by id, soft-deleted ones included.
func (s *Store) ListAll(ctx context.Context) ([]domain.AccountSummary, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "list accounts", err)
	}
	return list, nil
}

// Exists answers according to Config.ExistenceCheck. A non-positive id is
// rejected without a query.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	if !domain.ValidID(id) {
		return false, nil
	}

	if s.cfg.ExistenceCheck == ExistsByID {
		ok, err := s.repo.ExistsByID(ctx, id)
		if err != nil {
			return false, s.storageError(ctx, "check account exists", err)
		}
		return ok, nil
	}

	// Counts the whole table: answers "is there any account", not "is there this one".
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, s.storageError(ctx, "count accounts", err)
	}
	return n > 0, nil
}

// GetByID returns the account with id, deleted or not, or nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	if !domain.ValidID(id) {
		return nil, nil
	}
	account, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageError(ctx, "get account", err)
	}
	return account, nil
}

// SoftDelete marks the account deleted. It returns false for an invalid or unknown id.
func (s *Store) SoftDelete(ctx context.Context, id int64) (bool, error) {
	if !domain.ValidID(id) {
		return false, nil
	}
	err := s.repo.SoftDelete(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.storageError(ctx, "soft delete account", err)
	}
	s.logger.InfoContext(ctx, "account soft-deleted", "account_id", id)
	return true, nil
}

// storageError logs err at the caller's source location and wraps it.
func (s *Store) storageError(ctx context.Context, op string, err error) error {
	if s.logger.Enabled(ctx, slog.LevelError) {
		var pcs [1]uintptr
		runtime.Callers(2, pcs[:])
		r := slog.NewRecord(time.Now(), slog.LevelError, "account storage failure", pcs[0])
		r.AddAttrs(slog.String("op", op), slog.Any("error", err))
		_ = s.logger.Handler().Handle(ctx, r)
	}
	return &StorageError{Op: op, Err: err}
}
