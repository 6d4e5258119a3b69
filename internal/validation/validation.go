// Package validation checks user-supplied fields before they reach a service.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,50}$`)
	wordRegex     = regexp.MustCompile(`^[\p{L}][\p{L}' \-]*$`)
)

const maxWordLength = 100

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks a display name such as a class name, reporting
// failures against field
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: field, Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateUsername allows 3-50 letters, digits, dots, dashes and underscores.
func ValidateUsername(username string) error {
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "username must be 3-50 letters, digits, '.', '-' or '_'"}
	}
	return nil
}

// ValidateWord checks a practice word or phrase after trimming.
func ValidateWord(word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return ValidationError{Field: "word", Message: "word is required"}
	}
	if utf8.RuneCountInString(word) > maxWordLength {
		return ValidationError{Field: "word", Message: "word is too long"}
	}
	if !wordRegex.MatchString(word) {
		return ValidationError{Field: "word", Message: "word may only contain letters, spaces, apostrophes and hyphens"}
	}
	return nil
}

// ValidateRole accepts "student" or "teacher".
func ValidateRole(role string) error {
	if role != "student" && role != "teacher" {
		return ValidationError{Field: "role", Message: "role must be student or teacher"}
	}
	return nil
}
