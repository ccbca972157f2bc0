package env

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidBool is returned when a string cannot be parsed as a boolean.
var ErrInvalidBool = errors.New("invalid boolean value")

// ParseBool interprets a string as a boolean.
// It trims leading and trailing whitespace, then lowercases the value
// before matching.
//
// Accepted values (case-insensitive, after trimming):
//   - "true", "yes", "1"  -> true
//   - "false", "no", "0"  -> false
//   - "" (empty)          -> false, nil error
//   - any other non-empty -> false, ErrInvalidBool
func ParseBool(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBool, value)
	}
}

// FailsafeParseBoolEnv reads an environment variable and parses it as a boolean.
// It returns defaultValue if the variable is unset, empty, or contains an invalid
// value.
func FailsafeParseBoolEnv(envVar string, defaultValue bool) bool {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return defaultValue
	}

	b, err := ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}
