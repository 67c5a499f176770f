package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tendant/simple-accounts/internal/config"
	httpserver "github.com/tendant/simple-accounts/internal/http"
	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/session"
)

func main() {
	promoteAdmin := flag.String("promote-admin", "", "grant the admin flag to the account with this email and exit")
	flag.Parse()

	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger, closeLog := newLogger(cfg)
	defer closeLog()
	slog.SetDefault(logger)

	// Connect to database
	db, err := openDB(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database", "driver", cfg.DBDriver)

	ctx := context.Background()
	if err := repository.Migrate(ctx, db, cfg.Dialect()); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	accountsRepo := repository.NewAccountsRepository(db, cfg.Dialect())

	if *promoteAdmin != "" {
		if err := accountsRepo.SetAdmin(ctx, auth.NormalizeEmail(*promoteAdmin), true); err != nil {
			logger.Error("failed to promote account", "error", err, "email", *promoteAdmin)
			os.Exit(1)
		}
		logger.Info("account promoted to admin", "email", *promoteAdmin)
		return
	}

	// Initialize services
	hasher, err := auth.NewHasher(cfg.PasswordHash, cfg.BcryptCost)
	if err != nil {
		logger.Error("invalid password hash configuration", "error", err)
		os.Exit(1)
	}
	store, err := accounts.NewStore(cfg.Accounts(), accountsRepo, hasher, logger)
	if err != nil {
		logger.Error("invalid account store configuration", "error", err)
		os.Exit(1)
	}

	sessions, stopSessions, err := newSessionStore(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err, "backend", cfg.SessionBackend)
		os.Exit(1)
	}
	defer stopSessions()

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             logger,
		Accounts:           store,
		Sessions:           sessions,
		SessionTTL:         cfg.SessionTTL,
		PasswordPolicy:     cfg.PasswordPolicy(),
		SecurityHeaders:    cfg.SecurityHeaders,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		CookieSecure:       cfg.CookieSecure,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// newLogger builds the JSON logger. With LOG_FILE set, records also go to a
// rotated file.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     parseLevel(cfg.LogLevel),
		AddSource: true,
	}))
	return logger, closeFn
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.Dialect() == repository.DialectSQLite {
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return repository.OpenSQLite(cfg.SQLitePath)
	}
	return repository.NewDB(cfg.Database())
}

// newSessionStore returns the configured session backend and a function that
// releases it.
func newSessionStore(ctx context.Context, cfg *config.Config, db *sql.DB, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session store: redis")
		return session.NewRedisStore(client, "", cfg.SessionTTL), func() { _ = client.Close() }, nil
	case "sql":
		store := repository.NewSessionsRepository(db, cfg.Dialect(), cfg.SessionTTL)
		logger.Info("session store: sql", "driver", cfg.DBDriver)
		return store, sweepSessions(ctx, logger, store.DeleteExpired), nil
	}

	store := session.NewMemoryStore(cfg.SessionTTL)
	logger.Warn("session store: in-memory (not safe for multi-replica)")
	return store, sweepSessions(ctx, logger, func(context.Context) (int64, error) {
		return int64(store.DeleteExpired()), nil
	}), nil
}

// sweepSessions runs deleteExpired every minute until the returned function
// is called.
func sweepSessions(ctx context.Context, logger *slog.Logger, deleteExpired func(context.Context) (int64, error)) func() {
	sweepCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := deleteExpired(sweepCtx)
				if err != nil {
					logger.Error("failed to remove expired sessions", "error", err)
					continue
				}
				if n > 0 {
					logger.Debug("expired sessions removed", "count", n)
				}
			}
		}
	}()
	return cancel
}
