// Package validation holds the input validation rules shared by the service
// layer and the HTTP handlers.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 6
	// MaxPasswordLength guards against absurd bcrypt inputs (bcrypt caps at 72 bytes).
	MaxPasswordLength = 72
	// MaxNameLength bounds free-text profile fields.
	MaxNameLength = 120
)

// ValidateEmail checks that s parses as a single RFC 5322 address.
func ValidateEmail(s string) error {
	if s == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(s string) error {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(s) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidateName checks a required free-text field such as a full name.
func ValidateName(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > MaxNameLength {
		return fmt.Errorf("%s must be at most %d characters", field, MaxNameLength)
	}
	return nil
}
