package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSessionID validates a session identifier before it reaches a store.
// Session IDs become file names, Redis keys and SQL parameters, so the rules
// are conservative:
//   - No empty IDs
//   - Maximum length of 128 characters
//   - Only letters, digits, '-' and '_'
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session ID cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "session ID too long (max 128 characters)")
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return New(ErrCodeInvalidInput, "session ID contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateKey validates a node or edge key supplied by a client.
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "key cannot be empty")
	}
	if len(key) > 512 {
		return New(ErrCodeInvalidInput, "key too long (max 512 characters)")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "key contains invalid control characters")
		}
	}
	return nil
}

// ValidatePath validates a local file path given on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidateColor validates a CSS hex color such as "#fc9044".
func ValidateColor(color string) error {
	if !hexColor.MatchString(color) {
		return New(ErrCodeInvalidInput, "invalid color %q (want #rgb, #rrggbb or #rrggbbaa)", color)
	}
	return nil
}

// ValidateFormat validates an output format against the allowed set.
func ValidateFormat(format string, allowed map[string]bool) error {
	if !allowed[format] {
		return New(ErrCodeInvalidFormat, "unsupported format %q", format)
	}
	return nil
}
