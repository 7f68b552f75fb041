package validate

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MinPassword = 6
	// bcrypt ignores everything past 72 bytes and x/crypto rejects it.
	MaxPassword = 72
	MaxName     = 120
	MaxEmail    = 320
)

var reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// NormalizeEmail trims and lower-cases; stored emails are always in this form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email normalizes s and checks its shape.
func Email(s string) (string, bool) {
	s = NormalizeEmail(s)
	if len(s) == 0 || len(s) > MaxEmail {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Name validates a display name. Empty is allowed and means "no name".
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, len(s) <= MaxName
}

// Password enforces the length window accepted for new passwords.
func Password(s string) bool {
	return len(s) >= MinPassword && len(s) <= MaxPassword
}

// ID parses a positive numeric resource id.
func ID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 || n > uint64(^uint(0)) {
		return 0, false
	}
	return uint(n), true
}
