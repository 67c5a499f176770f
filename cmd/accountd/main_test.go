package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/tendant/simple-accounts/internal/config"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/session"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOpenDB_SQLite(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "nested", "accounts.db")}
	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("openDB failed: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewLogger_File(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFile: filepath.Join(t.TempDir(), "accountd.log"), LogMaxSizeMB: 1}
	logger, closeFn := newLogger(cfg)
	defer closeFn()
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}

func TestNewSessionStore_Memory(t *testing.T) {
	cfg := &config.Config{SessionBackend: "memory", SessionTTL: 0}
	store, stop, err := newSessionStore(t.Context(), cfg, nil, slog.Default())
	if err != nil {
		t.Fatalf("newSessionStore failed: %v", err)
	}
	defer stop()
	if store == nil {
		t.Fatal("expected a store")
	}
}

func TestNewSessionStore_SQL(t *testing.T) {
	cfg := &config.Config{
		DBDriver:       "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "accounts.db"),
		SessionBackend: "sql",
		SessionTTL:     time.Hour,
	}
	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("openDB failed: %v", err)
	}
	defer db.Close()
	if err := repository.Migrate(t.Context(), db, cfg.Dialect()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	store, stop, err := newSessionStore(t.Context(), cfg, db, slog.Default())
	if err != nil {
		t.Fatalf("newSessionStore failed: %v", err)
	}
	defer stop()

	sess := session.New()
	sess.SetSuccess("saved")
	if err := store.Save(t.Context(), sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.SuccessMessage(); got != "saved" {
		t.Errorf("SuccessMessage = %q, want %q", got, "saved")
	}
}
