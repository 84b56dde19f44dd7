package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped in a *ParseError) by ParseResponse.
var (
	// ErrShortResponse indicates that fewer than two bytes were received.
	ErrShortResponse = errors.New("response shorter than a status code")

	// ErrInvalidStatus indicates that the first two bytes are not a decimal status code.
	ErrInvalidStatus = errors.New("invalid status code")

	// ErrUnknownCategory indicates a status whose tens digit selects no category (0x, 7x, 8x, 9x).
	ErrUnknownCategory = errors.New("unknown status category")

	// ErrMalformedHeader indicates a carriage return that is not followed by a line feed.
	ErrMalformedHeader = errors.New("malformed header terminator")

	// ErrInvalidEncoding indicates meta text or body that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8")
)

// Sentinel errors returned by NewRequest.
var (
	// ErrEmptyRequest indicates an empty request URL.
	ErrEmptyRequest = errors.New("empty request")

	// ErrRequestTooLong indicates a request URL longer than MaxRequestLength bytes.
	ErrRequestTooLong = errors.New("request exceeds 1024 bytes")
)

// ParseError describes a response that could not be parsed.
type ParseError struct {
	// Offset is the byte offset at which parsing failed.
	Offset int

	// Err is one of the sentinel errors of this package.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response at byte %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
