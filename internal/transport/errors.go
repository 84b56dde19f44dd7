package transport

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrResponseTooLarge indicates a response exceeding the configured size limit.
	ErrResponseTooLarge = errors.New("response too large")

	// ErrCertificateRejected indicates a server certificate refused by the policy.
	ErrCertificateRejected = errors.New("certificate rejected")

	// ErrOnionNeedsProxy indicates a .onion host without a proxy dialer.
	ErrOnionNeedsProxy = errors.New(".onion hosts require a Tor proxy")

	// ErrInvalidHost indicates a host that cannot be converted to ASCII.
	ErrInvalidHost = errors.New("invalid host")

	// ErrUnknownPolicy indicates an unknown certificate policy name.
	ErrUnknownPolicy = errors.New("unknown certificate policy")
)

// Operation names used in Error.Op.
const (
	OpDial      = "dial"
	OpHandshake = "handshake"
	OpWrite     = "write"
	OpRead      = "read"
)

// Error describes a failed request.
type Error struct {
	// Op is the step that failed: dial, handshake, write or read.
	Op string

	// Host is the host name as given by the caller.
	Host string

	// Port is the port dialed.
	Port string

	// Class is the errclass classification of Err, such as "ETIMEDOUT".
	Class string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, net.JoinHostPort(e.Host, e.Port), e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
