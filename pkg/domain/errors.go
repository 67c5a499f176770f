package domain

import "errors"

// Account errors
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrInvalidAccountID     = errors.New("invalid account id")
)

// Validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrPasswordTooLong = errors.New("password too long")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)
