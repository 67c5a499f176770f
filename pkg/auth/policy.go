package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tendant/simple-accounts/pkg/domain"
)

// PasswordPolicy defines password complexity requirements applied at registration.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
	// MaxBytes caps the encoded length; 0 means no cap.
	MaxBytes int
}

// Validate returns an error wrapping domain.ErrWeakPassword listing every
// requirement password misses.
// A password over MaxBytes wraps domain.ErrPasswordTooLong instead.
func (p PasswordPolicy) Validate(password string) error {
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		return fmt.Errorf("%w: at most %d bytes", domain.ErrPasswordTooLong, p.MaxBytes)
	}

	var upper, lower, number, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			number = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}

	var missing []string
	if p.MinLength > 0 && len([]rune(password)) < p.MinLength {
		missing = append(missing, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase && !upper {
		missing = append(missing, "one uppercase letter")
	}
	if p.RequireLowercase && !lower {
		missing = append(missing, "one lowercase letter")
	}
	if p.RequireNumber && !number {
		missing = append(missing, "one number")
	}
	if p.RequireSpecial && !special {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", domain.ErrWeakPassword, strings.Join(missing, ", "))
	}
	return nil
}

// Requirements returns a human-readable description of the policy.
func (p PasswordPolicy) Requirements() string {
	var req []string
	if p.MinLength > 0 {
		req = append(req, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase {
		req = append(req, "one uppercase letter")
	}
	if p.RequireLowercase {
		req = append(req, "one lowercase letter")
	}
	if p.RequireNumber {
		req = append(req, "one number")
	}
	if p.RequireSpecial {
		req = append(req, "one special character")
	}
	if len(req) == 0 {
		return "No password requirements"
	}
	return "Password must contain " + strings.Join(req, ", ")
}
