package auth

import (
	"fmt"
	"html"
	"net/mail"
	"strings"
	"unicode"

	"github.com/tendant/simple-accounts/pkg/domain"
)

const maxEmailLength = 254 // RFC 5321

// NormalizeEmail lowercases and trims an email address. Accounts are stored
// and looked up by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a single bare address of sane length.
// Errors wrap domain.ErrInvalidEmail.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: address is required", domain.ErrInvalidEmail)
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: longer than %d characters", domain.ErrInvalidEmail, maxEmailLength)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: malformed address", domain.ErrInvalidEmail)
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return fmt.Errorf("%w: domain must be fully qualified", domain.ErrInvalidEmail)
	}
	return nil
}

// SanitizeName trims a personal name, drops control characters and escapes HTML.
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	return html.EscapeString(name)
}
