package errors

import (
	"strconv"
	"strings"
	"unicode"
)

// ValidateTimeSignature validates a "beats/beatValue" meter string.
//
// The rules match what a voice can be built from:
//   - Both parts must be positive integers
//   - The beat value must be a power of two (1, 2, 4, 8, ...)
//   - The beat value may not exceed 256 (the shortest supported duration)
func ValidateTimeSignature(sig string) error {
	beats, value, ok := strings.Cut(strings.TrimSpace(sig), "/")
	if !ok {
		return New(ErrCodeInvalidMeter, "time signature %q must have the form beats/value", sig)
	}
	b, err := strconv.Atoi(beats)
	if err != nil || b <= 0 {
		return New(ErrCodeInvalidMeter, "time signature %q: beats must be a positive integer", sig)
	}
	v, err := strconv.Atoi(value)
	if err != nil || v <= 0 {
		return New(ErrCodeInvalidMeter, "time signature %q: beat value must be a positive integer", sig)
	}
	if v&(v-1) != 0 || v > 256 {
		return New(ErrCodeInvalidMeter, "time signature %q: beat value must be a power of two up to 256", sig)
	}
	return nil
}

// ValidatePath validates a file path given to the CLI or server for safety.
// It prevents path traversal and control characters.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidInput, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
