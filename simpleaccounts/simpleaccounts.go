// Package simpleaccounts embeds the account service in another program.
//
// Setup:
//
//  1. Open a PostgreSQL or SQLite database
//  2. Create an instance (set Migrate to create the accounts table)
//  3. Mount its handler
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	svc, err := simpleaccounts.New(simpleaccounts.Config{
//	    DB:      db,
//	    Migrate: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/", svc.Handler())
//	http.ListenAndServe(":8080", r)
//
// Protecting your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(svc.SessionMiddleware(), svc.RequireLogin())
//	    r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
//	        account, _ := simpleaccounts.CurrentAccount(r)
//	        ...
//	    })
//	})
package simpleaccounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tendant/simple-accounts/internal/config"
	httpserver "github.com/tendant/simple-accounts/internal/http"
	"github.com/tendant/simple-accounts/internal/http/middleware"
	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/session"
)

// Config holds the configuration for the embedded service.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// Dialect is "postgres" (default) or "sqlite".
	Dialect string

	// Migrate creates the accounts and sessions tables when they are
	// missing. Without it, New fails if the accounts table does not exist.
	Migrate bool

	// Lockout configures the failed-login threshold, messages and existence check.
	// Zero fields take their defaults.
	Lockout accounts.Config

	// Hasher hashes passwords (default: argon2id).
	Hasher auth.Hasher

	// PasswordPolicy is applied at registration (default: 8 characters with
	// upper, lower and a digit).
	PasswordPolicy *auth.PasswordPolicy

	// Sessions stores sessions (default: in-memory). Use
	// repository.NewSessionsRepository to keep them in DB.
	Sessions session.Store

	// SessionTTL is the session cookie lifetime (default: 24 hours).
	SessionTTL time.Duration

	// CookieSecure sets the Secure flag on the session cookie.
	CookieSecure bool

	// Logger is the structured logger (default: JSON on stdout).
	Logger *slog.Logger
}

// Service is an embedded account service.
type Service struct {
	config  Config
	dialect repository.Dialect
	repo    *repository.AccountsRepository
	store   *accounts.Store
	cookies httputil.CookieConfig
}

// New creates a service. It checks the configuration and the schema.
func New(cfg Config) (*Service, error) {
	if cfg.DB == nil {
		return nil, errors.New("simpleaccounts: DB is required")
	}
	if cfg.Dialect == "" {
		cfg.Dialect = string(repository.DialectPostgres)
	}
	dialect, err := repository.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, fmt.Errorf("simpleaccounts: %w", err)
	}
	applyDefaults(&cfg)

	ctx := context.Background()
	if cfg.Migrate {
		if err := repository.Migrate(ctx, cfg.DB, dialect); err != nil {
			return nil, fmt.Errorf("simpleaccounts: migrate: %w", err)
		}
	} else if err := validateSchema(ctx, cfg.DB); err != nil {
		return nil, err
	}

	repo := repository.NewAccountsRepository(cfg.DB, dialect)
	store, err := accounts.NewStore(cfg.Lockout, repo, cfg.Hasher, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("simpleaccounts: %w", err)
	}

	cookies := httputil.DefaultCookieConfig()
	cookies.Secure = cfg.CookieSecure

	return &Service{
		config:  cfg,
		dialect: dialect,
		repo:    repo,
		store:   store,
		cookies: cookies,
	}, nil
}

// Store returns the account store for direct use.
func (s *Service) Store() *accounts.Store {
	return s.store
}

// PromoteAdmin grants the admin flag to the account with email.
func (s *Service) PromoteAdmin(ctx context.Context, email string) error {
	return s.repo.SetAdmin(ctx, auth.NormalizeEmail(email), true)
}

// Handler returns the full HTTP API:
//
//	GET    /health
//	GET    /metrics
//	POST   /v1/accounts/register
//	POST   /v1/auth/login
//	POST   /v1/auth/logout
//	GET    /v1/me                 (logged in)
//	GET    /v1/accounts           (admin)
//	GET    /v1/accounts/{id}      (admin)
//	HEAD   /v1/accounts/{id}      (admin)
//	DELETE /v1/accounts/{id}      (admin)
func (s *Service) Handler() http.Handler {
	return httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             s.config.Logger,
		Accounts:           s.store,
		Sessions:           s.config.Sessions,
		SessionTTL:         s.config.SessionTTL,
		PasswordPolicy:     *s.config.PasswordPolicy,
		SecurityHeaders:    config.SecurityHeadersConfig{Enabled: false},
		MaxRequestBodySize: 1 << 20,
		CookieSecure:       s.config.CookieSecure,
	})
}

// Routes registers the API on an http.ServeMux under prefix:
//
//	mux := http.NewServeMux()
//	svc.Routes(mux, "/accounts")
func (s *Service) Routes(mux *http.ServeMux, prefix string) {
	mux.Handle(prefix+"/", http.StripPrefix(prefix, s.Handler()))
}

// SessionMiddleware loads and saves the session for your own routes.
func (s *Service) SessionMiddleware() func(http.Handler) http.Handler {
	return middleware.Session(s.config.Sessions, s.config.SessionTTL, s.cookies, s.config.Logger)
}

// RequireLogin rejects requests without a logged-in account, and ends sessions
// whose account has been soft-deleted. Use after SessionMiddleware.
func (s *Service) RequireLogin() func(http.Handler) http.Handler {
	return middleware.RequireLogin(s.store)
}

// RequireAdmin rejects requests from non-admin accounts.
// Use after RequireLogin.
func (s *Service) RequireAdmin() func(http.Handler) http.Handler {
	return middleware.RequireAdmin()
}

// CurrentAccount returns the logged-in account of a request.
// Use after SessionMiddleware:
//
//	account, ok := simpleaccounts.CurrentAccount(r)
func CurrentAccount(r *http.Request) (*domain.Account, bool) {
	if account, ok := middleware.GetAccount(r.Context()); ok {
		return account, true
	}
	return accounts.CurrentAccount(middleware.GetSession(r.Context()))
}

func applyDefaults(cfg *Config) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.NewArgon2Hasher()
	}
	if cfg.PasswordPolicy == nil {
		cfg.PasswordPolicy = &auth.PasswordPolicy{
			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumber:    true,
		}
	}
	if _, ok := cfg.Hasher.(*auth.BcryptHasher); ok && cfg.PasswordPolicy.MaxBytes == 0 {
		policy := *cfg.PasswordPolicy
		policy.MaxBytes = auth.BcryptMaxPasswordBytes
		cfg.PasswordPolicy = &policy
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore(cfg.SessionTTL)
	}
}

// validateSchema checks that the accounts table exists.
func validateSchema(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE 1 = 0`).Scan(&n)
	if err != nil {
		return fmt.Errorf("simpleaccounts: accounts table not usable - run migrations first or set Migrate: %w", err)
	}
	return nil
}
