package accounts

import "fmt"

// ExistenceCheck selects how Store.Exists answers.
type ExistenceCheck string

const (
	// ExistsAnyAccount reports whether the accounts table has any row at all,
	// whatever id is asked about. This is the long-standing behaviour.
	ExistsAnyAccount ExistenceCheck = "table"
	// ExistsByID reports whether a row with the given id exists.
	ExistsByID ExistenceCheck = "id"
)

// Default lockout settings.
const (
	DefaultLockoutThreshold = 6
	DefaultLockedMessage    = "This account is locked."
	DefaultNowLockedMessage = "Too many failed attempts. This account is now locked."
)

// Messages are the user-facing strings written to the session.
type Messages struct {
	// Locked is shown when a login targets an account that is already locked.
	Locked string
	// NowLocked is shown on the failed attempt that locks the account.
	NowLocked string
}

// Config is injected into the store at construction.
type Config struct {
	LockoutThreshold int
	Messages         Messages
	ExistenceCheck   ExistenceCheck
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		LockoutThreshold: DefaultLockoutThreshold,
		Messages: Messages{
			Locked:    DefaultLockedMessage,
			NowLocked: DefaultNowLockedMessage,
		},
		ExistenceCheck: ExistsAnyAccount,
	}
}

// Validate checks the configuration for values the store cannot work with.
func (c Config) Validate() error {
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("lockout threshold must be at least 1, got %d", c.LockoutThreshold)
	}
	switch c.ExistenceCheck {
	case ExistsAnyAccount, ExistsByID:
	default:
		return fmt.Errorf("unknown existence check %q", c.ExistenceCheck)
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = d.LockoutThreshold
	}
	if c.Messages.Locked == "" {
		c.Messages.Locked = d.Messages.Locked
	}
	if c.Messages.NowLocked == "" {
		c.Messages.NowLocked = d.Messages.NowLocked
	}
	if c.ExistenceCheck == "" {
		c.ExistenceCheck = d.ExistenceCheck
	}
}
