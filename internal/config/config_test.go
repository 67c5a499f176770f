package config

import (
	"os"
	"testing"
	"time"

	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/repository"
)

var allEnvVars = []string{
	"SERVER_ADDR", "SERVER_PORT",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "SQLITE_PATH",
	"LOCKOUT_THRESHOLD", "LOCKOUT_MESSAGE", "LOCKOUT_NOW_LOCKED_MESSAGE", "EXISTS_CHECK",
	"PASSWORD_HASH", "BCRYPT_COST", "PASSWORD_MIN_LENGTH",
	"PASSWORD_REQUIRE_UPPERCASE", "PASSWORD_REQUIRE_LOWERCASE", "PASSWORD_REQUIRE_NUMBER", "PASSWORD_REQUIRE_SPECIAL",
	"SESSION_BACKEND", "REDIS_URL", "SESSION_TTL", "COOKIE_SECURE",
	"MAX_REQUEST_BODY_SIZE", "SECURITY_HEADERS_ENABLED", "SECURITY_CSP", "SECURITY_HSTS_MAX_AGE",
	"SECURITY_FRAME_OPTIONS", "SECURITY_REFERRER_POLICY", "SECURITY_PERMISSIONS_POLICY", "SECURITY_CACHE_CONTROL",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
}

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range allEnvVars {
		t.Setenv(v, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, "postgres")
	}
	if cfg.DBPort != 25432 {
		t.Errorf("DBPort = %d, want %d", cfg.DBPort, 25432)
	}
	if cfg.DBName != "simple_accounts" {
		t.Errorf("DBName = %q, want %q", cfg.DBName, "simple_accounts")
	}
	if cfg.LockoutThreshold != 6 {
		t.Errorf("LockoutThreshold = %d, want %d", cfg.LockoutThreshold, 6)
	}
	if cfg.ExistenceCheck != "table" {
		t.Errorf("ExistenceCheck = %q, want %q", cfg.ExistenceCheck, "table")
	}
	if cfg.PasswordHash != "argon2id" {
		t.Errorf("PasswordHash = %q, want %q", cfg.PasswordHash, "argon2id")
	}
	if cfg.SessionBackend != "memory" {
		t.Errorf("SessionBackend = %q, want %q", cfg.SessionBackend, "memory")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 24*time.Hour)
	}
	if cfg.MaxRequestBodySize != 1<<20 {
		t.Errorf("MaxRequestBodySize = %d, want %d", cfg.MaxRequestBodySize, 1<<20)
	}
	if !cfg.SecurityHeaders.Enabled {
		t.Error("SecurityHeadersEnabled should default to true")
	}
	if cfg.SecurityHeaders.CacheControl != "no-store" {
		t.Errorf("CacheControl = %q, want %q", cfg.SecurityHeaders.CacheControl, "no-store")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LOCKOUT_THRESHOLD", "3")
	t.Setenv("LOCKOUT_MESSAGE", "nope")
	t.Setenv("EXISTS_CHECK", "id")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.Dialect() != repository.DialectSQLite {
		t.Errorf("Dialect = %q, want %q", cfg.Dialect(), repository.DialectSQLite)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 30*time.Minute)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true")
	}

	ac := cfg.Accounts()
	if ac.LockoutThreshold != 3 {
		t.Errorf("LockoutThreshold = %d, want %d", ac.LockoutThreshold, 3)
	}
	if ac.Messages.Locked != "nope" {
		t.Errorf("Messages.Locked = %q, want %q", ac.Messages.Locked, "nope")
	}
	if ac.Messages.NowLocked != accounts.DefaultNowLockedMessage {
		t.Errorf("Messages.NowLocked = %q, want default", ac.Messages.NowLocked)
	}
	if ac.ExistenceCheck != accounts.ExistsByID {
		t.Errorf("ExistenceCheck = %q, want %q", ac.ExistenceCheck, accounts.ExistsByID)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"zero threshold", "LOCKOUT_THRESHOLD", "0"},
		{"unknown existence check", "EXISTS_CHECK", "rows"},
		{"unknown hash", "PASSWORD_HASH", "md5"},
		{"unknown session backend", "SESSION_BACKEND", "cookie"},
		{"negative ttl", "SESSION_TTL", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load should fail with %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestDatabase(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5432, DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "require"}
	db := cfg.Database()
	if db.Host != "db" || db.Port != 5432 || db.DBName != "n" || db.SSLMode != "require" {
		t.Errorf("Database() = %+v", db)
	}
}

func TestPasswordPolicy(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSWORD_MIN_LENGTH", "12")
	t.Setenv("PASSWORD_REQUIRE_SPECIAL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := cfg.PasswordPolicy()
	if p.MinLength != 12 {
		t.Errorf("MinLength = %d, want 12", p.MinLength)
	}
	if !p.RequireSpecial || !p.RequireUppercase {
		t.Errorf("unexpected policy %+v", p)
	}
	if p.MaxBytes != 0 {
		t.Errorf("MaxBytes = %d, want 0 for argon2id", p.MaxBytes)
	}

	t.Setenv("PASSWORD_HASH", "bcrypt")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.PasswordPolicy().MaxBytes; got != 72 {
		t.Errorf("MaxBytes = %d, want 72 for bcrypt", got)
	}
}

func TestGetEnvInt_InvalidValue(t *testing.T) {
	os.Setenv("TEST_INT", "not-a-number")
	defer os.Unsetenv("TEST_INT")

	if got := getEnvInt("TEST_INT", 42); got != 42 {
		t.Errorf("getEnvInt() = %d, want default 42", got)
	}
}

func TestGetEnvBool_InvalidValue(t *testing.T) {
	os.Setenv("TEST_BOOL", "maybe")
	defer os.Unsetenv("TEST_BOOL")

	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Error("getEnvBool() should fall back to the default")
	}
}

func TestGetEnvDuration_InvalidValue(t *testing.T) {
	os.Setenv("TEST_DURATION", "invalid")
	defer os.Unsetenv("TEST_DURATION")

	if got := getEnvDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration() = %v, want default %v", got, time.Minute)
	}
}
