package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/repository"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Lockout
	LockoutThreshold int
	LockedMessage    string
	NowLockedMessage string
	ExistenceCheck   string

	// Passwords
	PasswordHash             string
	BcryptCost               int
	PasswordMinLength        int
	PasswordRequireUppercase bool
	PasswordRequireLowercase bool
	PasswordRequireNumber    bool
	PasswordRequireSpecial   bool

	// Sessions
	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration
	CookieSecure   bool

	// HTTP
	MaxRequestBodySize int64
	SecurityHeaders    SecurityHeadersConfig

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// SecurityHeadersConfig controls the response headers added to every request.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int // seconds; 0 disables the header
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
	CacheControl       string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults (matches podman setup: make postgres-start)
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "simple_accounts"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "data/accounts.db"),

		LockoutThreshold: getEnvInt("LOCKOUT_THRESHOLD", accounts.DefaultLockoutThreshold),
		LockedMessage:    getEnv("LOCKOUT_MESSAGE", accounts.DefaultLockedMessage),
		NowLockedMessage: getEnv("LOCKOUT_NOW_LOCKED_MESSAGE", accounts.DefaultNowLockedMessage),
		ExistenceCheck:   strings.ToLower(getEnv("EXISTS_CHECK", string(accounts.ExistsAnyAccount))),

		PasswordHash:             strings.ToLower(getEnv("PASSWORD_HASH", auth.AlgorithmArgon2id)),
		BcryptCost:               getEnvInt("BCRYPT_COST", 12),
		PasswordMinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
		PasswordRequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", true),
		PasswordRequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", true),
		PasswordRequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", true),
		PasswordRequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),

		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: "nosniff",
			XSSProtection:      "1; mode=block",
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=()"),
			CacheControl:       getEnv("SECURITY_CACHE_CONTROL", "no-store"),
		},

		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if _, err := repository.ParseDialect(c.DBDriver); err != nil {
		return fmt.Errorf("DB_DRIVER: %w", err)
	}
	if err := c.Accounts().Validate(); err != nil {
		return fmt.Errorf("lockout config: %w", err)
	}
	switch c.PasswordHash {
	case auth.AlgorithmArgon2id, auth.AlgorithmBcrypt:
	default:
		return fmt.Errorf("PASSWORD_HASH must be %q or %q, got %q", auth.AlgorithmArgon2id, auth.AlgorithmBcrypt, c.PasswordHash)
	}
	switch c.SessionBackend {
	case "memory", "redis", "sql":
	default:
		return fmt.Errorf("SESSION_BACKEND must be \"memory\", \"redis\" or \"sql\", got %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.PasswordMinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be at least 1")
	}
	return nil
}

// Dialect returns the SQL dialect for DBDriver.
func (c *Config) Dialect() repository.Dialect {
	d, _ := repository.ParseDialect(c.DBDriver)
	return d
}

// Database returns the PostgreSQL connection settings.
func (c *Config) Database() repository.Config {
	return repository.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// Accounts returns the account store configuration.
func (c *Config) Accounts() accounts.Config {
	return accounts.Config{
		LockoutThreshold: c.LockoutThreshold,
		Messages: accounts.Messages{
			Locked:    c.LockedMessage,
			NowLocked: c.NowLockedMessage,
		},
		ExistenceCheck: accounts.ExistenceCheck(c.ExistenceCheck),
	}
}

// PasswordPolicy returns the policy applied at registration.
func (c *Config) PasswordPolicy() auth.PasswordPolicy {
	var maxBytes int
	if strings.EqualFold(c.PasswordHash, auth.AlgorithmBcrypt) {
		maxBytes = auth.BcryptMaxPasswordBytes
	}
	return auth.PasswordPolicy{
		MaxBytes:         maxBytes,
		MinLength:        c.PasswordMinLength,
		RequireUppercase: c.PasswordRequireUppercase,
		RequireLowercase: c.PasswordRequireLowercase,
		RequireNumber:    c.PasswordRequireNumber,
		RequireSpecial:   c.PasswordRequireSpecial,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
