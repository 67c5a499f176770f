package domain

import (
	"strconv"
	"strings"
)

// Account represents a row of the accounts table.
type Account struct {
	ID           int64  `json:"id"`
	UserName     string `json:"user_name"`
	FamilyName   string `json:"family_name"`
	FirstName    string `json:"first_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
	IsDeleted    bool   `json:"is_deleted"`
	LockedFlg    bool   `json:"locked_flg"`
	ErrorCount   int    `json:"error_count"`
}

// IsLocked returns true once the account has been locked by the lockout counter.
// Locks are permanent; nothing in this module clears them.
func (a *Account) IsLocked() bool {
	return a.LockedFlg
}

// CanAuthenticate reports whether the account is allowed to log in at all,
// regardless of the password supplied.
func (a *Account) CanAuthenticate() bool {
	return !a.IsDeleted && !a.LockedFlg
}

// AccountSummary is the partial record returned when listing accounts.
type AccountSummary struct {
	ID           int64  `json:"id"`
	UserName     string `json:"user_name"`
	PasswordHash string `json:"-"`
	FamilyName   string `json:"family_name"`
	FirstName    string `json:"first_name"`
	IsAdmin      bool   `json:"is_admin"`
	IsDeleted    bool   `json:"is_deleted"`
}

// ValidID reports whether id can reference an account.
func ValidID(id int64) bool {
	return id > 0
}

// ParseAccountID parses untrusted input (path parameters, form values) into an
// account ID. Only positive base-10 integers are accepted.
func ParseAccountID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] == '+' {
		return 0, ErrInvalidAccountID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !ValidID(id) {
		return 0, ErrInvalidAccountID
	}
	return id, nil
}
