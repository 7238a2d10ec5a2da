package util

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

// NormalizeEmail is the form addresses are stored and looked up in.
func NormalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

var nonSlugChars = regexp.MustCompile(`\s+`)

// Slugify lowercases name and joins whitespace runs with dashes.
func Slugify(name string) string {
	return nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// ShortID returns the first eight characters of id.
func ShortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
