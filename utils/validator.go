// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strings"
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// scientificNameRegex accepts a capitalized genus followed by one or more
// lowercase epithets, e.g. "Monstera deliciosa" or "Ficus benjamina var. nuda".
var scientificNameRegex = regexp.MustCompile(`^[A-Z][a-zA-Z-]+( [a-z.×-]+)+$`)

// ValidateScientificName checks the binomial/trinomial form of a species name.
func ValidateScientificName(name string) bool {
	return scientificNameRegex.MatchString(strings.TrimSpace(name))
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
