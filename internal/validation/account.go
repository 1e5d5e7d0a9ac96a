// Package validation holds input format checks shared by services.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPasswordBytes is the longest password bcrypt accepts without truncation.
const MaxPasswordBytes = 72

var (
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizePhone strips spaces and dashes commonly typed inside numbers.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
}

// ValidatePhone checks a normalized phone number: 10 to 14 digits with an
// optional leading plus, at most 15 characters overall.
func ValidatePhone(phone string) error {
	if phone == "" {
		return errors.New("phone is required")
	}
	if !phoneRegex.MatchString(phone) {
		return errors.New("phone must contain 10 to 14 digits")
	}
	return nil
}

// ValidatePassword requires a non-empty password within the bcrypt limit.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateEmail checks the basic local@domain.tld shape.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return errors.New("email is not valid")
	}
	return nil
}

// ValidateName requires a non-blank display name of bounded length.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > 150 {
		return errors.New("name must be at most 150 characters")
	}
	return nil
}

// ValidateHTTPURL accepts absolute http and https URLs.
func ValidateHTTPURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}
