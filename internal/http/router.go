package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-accounts/internal/config"
	"github.com/tendant/simple-accounts/internal/http/features/accounts"
	"github.com/tendant/simple-accounts/internal/http/features/me"
	"github.com/tendant/simple-accounts/internal/http/features/password"
	"github.com/tendant/simple-accounts/internal/http/features/session"
	"github.com/tendant/simple-accounts/internal/http/middleware"
	"github.com/tendant/simple-accounts/internal/httputil"
	accountstore "github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/auth"
	sessions "github.com/tendant/simple-accounts/pkg/session"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	Accounts           *accountstore.Store
	Sessions           sessions.Store
	SessionTTL         time.Duration
	PasswordPolicy     auth.PasswordPolicy
	SecurityHeaders    config.SecurityHeadersConfig
	MaxRequestBodySize int64
	CookieSecure       bool // Whether to use Secure flag on cookies (should be true for HTTPS)
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	cookies := httputil.DefaultCookieConfig()
	cookies.Secure = cfg.CookieSecure

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	passwordHandler := password.NewHandler(cfg.Logger, cfg.Accounts, cfg.PasswordPolicy)
	sessionHandler := session.NewHandler(cfg.Accounts)
	meHandler := me.NewHandler()
	accountsHandler := accounts.NewHandler(cfg.Logger, cfg.Accounts)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.Sessions, cfg.SessionTTL, cookies, cfg.Logger))

		r.Post("/v1/accounts/register", passwordHandler.Register)
		r.Post("/v1/auth/login", passwordHandler.Login)
		r.Post("/v1/auth/logout", sessionHandler.Logout)

		// Logged-in routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin(cfg.Accounts))
			r.Get("/v1/me", meHandler.GetMe)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				accountsHandler.RegisterRoutes(r)
			})
		})
	})

	return r
}
