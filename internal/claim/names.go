package claim

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength = 50
	MinNameLength = 2
)

var (
	nameStripPattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	addressPattern   = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// SanitizeName trims whitespace and strips everything outside [A-Za-z0-9_-].
func SanitizeName(raw string) string {
	return nameStripPattern.ReplaceAllString(strings.TrimSpace(raw), "")
}

// validateName applies the registration rules to a raw name and returns
// the sanitized form.
func validateName(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", newError(InvalidInput, "name required")
	}
	if utf8.RuneCountInString(raw) > MaxNameLength {
		return "", newError(InvalidInput, "name too long")
	}
	name := SanitizeName(raw)
	if len(name) < MinNameLength {
		return "", newError(InvalidInput, "name too short")
	}
	return name, nil
}

// CanonicalAddress validates a 0x-prefixed 40-hex-digit address and
// returns it lowercased.
func CanonicalAddress(address string) (string, bool) {
	if !addressPattern.MatchString(address) {
		return "", false
	}
	return strings.ToLower(address), true
}
