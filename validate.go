package bookshelf

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Policy validators are the first line of defense: pure, deterministic, and
// evaluated before any network call. The backing store enforces overlapping
// constraints independently, so these are never the authoritative check.

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\x{4e00}-\x{9fa5}]+$`)
	allDigitPattern = regexp.MustCompile(`^\d+$`)

	lowerPattern = regexp.MustCompile(`[a-z]`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	digitPattern = regexp.MustCompile(`\d`)
)

// commonPasswords is a small denylist matched case-insensitively
var commonPasswords = []string{
	"password", "123456", "qwerty", "abc123",
}

const (
	// UsernameMinLength is the shortest accepted username
	UsernameMinLength = 3
	// UsernameMaxLength is the longest accepted username
	UsernameMaxLength = 20
	// PasswordMinLength is the shortest accepted password
	PasswordMinLength = 6
)

// ValidateEmail checks the general local@domain.tld shape. No DNS or mailbox
// verification happens here.
func ValidateEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// UsernameValidation reports every violated username rule
type UsernameValidation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// ValidateUsername applies the username policy: 3 to 20 characters drawn from
// letters, digits, underscore, and CJK ideographs, and not purely numeric.
// All violations are reported together, not just the first.
func ValidateUsername(value string) UsernameValidation {
	var issues []string

	length := utf8.RuneCountInString(value)
	if length < UsernameMinLength {
		issues = append(issues, "username must be at least 3 characters")
	}
	if length > UsernameMaxLength {
		issues = append(issues, "username must be at most 20 characters")
	}

	if !usernamePattern.MatchString(value) {
		issues = append(issues, "username may only contain letters, digits, underscore, and CJK characters")
	}

	if allDigitPattern.MatchString(value) {
		issues = append(issues, "username cannot be all digits")
	}

	return UsernameValidation{Valid: len(issues) == 0, Issues: issues}
}

// PasswordStrength reports every violated password rule
type PasswordStrength struct {
	Strong bool     `json:"strong"`
	Issues []string `json:"issues,omitempty"`
}

// CheckPasswordStrength applies the password policy: minimum length, lower
// and upper case letters, a digit, and not a well-known weak password. All
// violations are reported together.
func CheckPasswordStrength(value string) PasswordStrength {
	var issues []string

	if len(value) < PasswordMinLength {
		issues = append(issues, "password must be at least 6 characters")
	}

	if !lowerPattern.MatchString(value) {
		issues = append(issues, "password must contain a lowercase letter")
	}

	if !upperPattern.MatchString(value) {
		issues = append(issues, "password must contain an uppercase letter")
	}

	if !digitPattern.MatchString(value) {
		issues = append(issues, "password must contain a digit")
	}

	lowered := strings.ToLower(value)
	for _, common := range commonPasswords {
		if lowered == common {
			issues = append(issues, "password is too common")
			break
		}
	}

	return PasswordStrength{Strong: len(issues) == 0, Issues: issues}
}
