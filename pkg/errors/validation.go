package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// instanceNameRegex matches instance names accepted by the API and the run store.
var instanceNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateInstanceName validates a user-supplied instance name.
// Names are recorded in the run history and echoed back in API responses, so
// they are restricted to a conservative character set:
//   - No empty names
//   - Maximum length of 128 characters
//   - Letters, digits, dot, dash and underscore only
//   - No path traversal sequences (..)
func ValidateInstanceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "instance name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "instance name too long (max 128 characters)")
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "instance name cannot contain path traversal sequences (..)")
	}

	if !instanceNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid instance name: %q", name)
	}

	return nil
}

// ValidatePath validates a local file path passed on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a connection URL against a set of allowed schemes.
// It is used for the redis and mongodb connection strings in the config.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes: %s", strings.Join(schemes, ", "))
}
