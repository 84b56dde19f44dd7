package model

import (
	"errors"
	"strings"

	"github.com/nao1215/remi/internal/protocol"
)

var (
	// ErrUnsupportedScheme indicates a request URL whose scheme is not gemini.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrEmptyHost indicates a gemini URL with nothing after the scheme prefix.
	ErrEmptyHost = errors.New("empty host")
)

// Location is an absolute request URL. The host and port are always derived
// from the request and never stored separately.
//
// The zero value is an empty location.
type Location struct {
	request string
}

// ParseLocation validates an absolute gemini:// request URL.
func ParseLocation(request string) (Location, error) {
	if !strings.HasPrefix(request, protocol.SchemePrefix) {
		return Location{}, ErrUnsupportedScheme
	}
	if len(request) == len(protocol.SchemePrefix) {
		return Location{}, ErrEmptyHost
	}
	return Location{request: request}, nil
}

// MustParseLocation is like ParseLocation but panics on error.
// It is intended for constants and tests.
func MustParseLocation(request string) Location {
	loc, err := ParseLocation(request)
	if err != nil {
		panic(err)
	}
	return loc
}

// Request returns the absolute request URL.
func (l Location) Request() string {
	return l.request
}

// HostAndPort returns everything between the scheme prefix and the first
// '/', '?' or '#'. The port is included only when the URL carries one.
func (l Location) HostAndPort() string {
	rest := strings.TrimPrefix(l.request, protocol.SchemePrefix)
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// HasPath reports whether the request has anything after the host.
func (l Location) HasPath() bool {
	return len(l.HostAndPort()) < len(l.request)-len(protocol.SchemePrefix)
}

// IsZero reports whether l is the empty location.
func (l Location) IsZero() bool {
	return l.request == ""
}

// String returns the request URL.
func (l Location) String() string {
	return l.request
}
