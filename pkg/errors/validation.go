package errors

import (
	"net/url"
	"strings"
	"unicode"
)

const maxIdentifierLength = 256

// ValidateURL validates a backend base URL.
// It must be absolute with an http or https scheme and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL must include a host")
	}

	return nil
}

// ValidateIdentifier validates an opaque identifier received from or sent to
// the backend (run ids, request ids).
//
// Validation rules:
//   - Cannot be empty
//   - Maximum length of 256 characters
//   - No control characters or whitespace
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", kind)
	}

	if len(id) > maxIdentifierLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", kind, maxIdentifierLength)
	}

	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsControl(r) || unicode.IsSpace(r) }) >= 0 {
		return New(ErrCodeInvalidInput, "%s contains invalid characters", kind)
	}

	return nil
}
