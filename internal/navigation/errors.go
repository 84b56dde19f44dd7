package navigation

import (
	"errors"
	"fmt"

	"github.com/nao1215/remi/internal/protocol"
)

// Sentinel errors for navigation outcomes.
var (
	// ErrRejected indicates a target that cannot be resolved to a gemini:// request.
	ErrRejected = errors.New("target rejected")

	// ErrNoBase indicates a relative target with no current location to resolve against.
	ErrNoBase = errors.New("relative target without a current location")

	// ErrTransport indicates that the request could not be sent or the response not read.
	ErrTransport = errors.New("transport failure")

	// ErrNotFound indicates a 51 response.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedResponse indicates a response with no automatic handling.
	ErrUnsupportedResponse = errors.New("unsupported response")

	// ErrUnresolvableRedirect indicates a permanent redirect to a rejected target.
	ErrUnresolvableRedirect = errors.New("unresolvable redirect")

	// ErrTooManyRedirects indicates a redirect chain longer than the configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrNavigationInFlight indicates a navigation started while another one is running.
	ErrNavigationInFlight = errors.New("navigation already in flight")

	// ErrNoHistory indicates a history move with no entry to move to.
	ErrNoHistory = errors.New("no history entry")
)

// ResolveError describes a target that Resolve rejected.
type ResolveError struct {
	// Target is the rejected target string.
	Target string

	// Err is the reason, for example model.ErrUnsupportedScheme.
	Err error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Target, e.Err)
}

// Unwrap returns both ErrRejected and the reason.
func (e *ResolveError) Unwrap() []error {
	return []error{ErrRejected, e.Err}
}

// UnsupportedResponseError carries a response the engine does not handle.
type UnsupportedResponseError struct {
	Response protocol.Response
}

// Error implements the error interface.
func (e *UnsupportedResponseError) Error() string {
	return fmt.Sprintf("unsupported response: status %s (%s)",
		e.Response.Status(), e.Response.Category())
}

// Unwrap returns ErrUnsupportedResponse.
func (e *UnsupportedResponseError) Unwrap() error {
	return ErrUnsupportedResponse
}
