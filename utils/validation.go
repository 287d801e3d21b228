package utils

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	emailRegex      = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	postalCodeRegex = regexp.MustCompile(`^\d{4}$`)

	// South African mobile numbers in the three shapes customers
	// actually type: 0821234567, 27821234567, +27821234567. The
	// first subscriber digit must be 6-8.
	saPhoneRegex = regexp.MustCompile(`^(?:0|27|\+27)[6-8]\d{8}$`)

	sanitizePolicy = bluemonday.StrictPolicy()
)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

func IsValidSAPhoneNumber(phone string) bool {
	return saPhoneRegex.MatchString(strings.TrimSpace(phone))
}

// FormatSAPhoneNumber normalizes any accepted SA mobile shape to the
// canonical +27XXXXXXXXX form. Returns the empty string for input
// that does not validate.
func FormatSAPhoneNumber(phone string) string {
	p := strings.TrimSpace(phone)
	if !saPhoneRegex.MatchString(p) {
		return ""
	}
	switch {
	case strings.HasPrefix(p, "+27"):
		return p
	case strings.HasPrefix(p, "27"):
		return "+" + p
	default: // leading 0
		return "+27" + p[1:]
	}
}

// IsValidPassword requires at least 8 characters with one upper-case
// letter, one lower-case letter and one digit.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

func IsValidPostalCode(code string) bool {
	return postalCodeRegex.MatchString(strings.TrimSpace(code))
}

// IsValidTextInput accepts non-empty free text shorter than 256
// characters.
func IsValidTextInput(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && len(t) < 256
}

// SanitizeText strips all HTML from user-supplied text. Backed by
// bluemonday's strict policy, which also neutralizes attribute and
// entity-encoded vectors that a bare angle-bracket escaper misses.
func SanitizeText(text string) string {
	return sanitizePolicy.Sanitize(text)
}
