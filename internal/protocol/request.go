package protocol

import (
	"strings"
	"unicode"
)

const (
	// Scheme is the only URL scheme this client speaks.
	Scheme = "gemini"

	// SchemePrefix is Scheme followed by the authority separator.
	SchemePrefix = Scheme + "://"

	// DefaultPort is used when a host carries no explicit port.
	DefaultPort = "1965"

	// MaxRequestLength is the maximum length in bytes of a request URL.
	MaxRequestLength = 1024
)

// NewRequest frames an absolute request URL for the wire.
// Trailing whitespace is removed and CR LF is appended.
func NewRequest(url string) ([]byte, error) {
	url = strings.TrimRightFunc(url, unicode.IsSpace)
	if url == "" {
		return nil, ErrEmptyRequest
	}
	if len(url) > MaxRequestLength {
		return nil, ErrRequestTooLong
	}
	payload := make([]byte, 0, len(url)+2)
	payload = append(payload, url...)
	payload = append(payload, '\r', '\n')
	return payload, nil
}
