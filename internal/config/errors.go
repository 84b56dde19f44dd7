package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidHome is returned when the home page is not an absolute gemini:// request.
	ErrInvalidHome = errors.New("invalid home: must be an absolute gemini:// URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect limit is not positive.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be positive")

	// ErrInvalidMaxResponseSize is returned when the response size limit is not positive.
	ErrInvalidMaxResponseSize = errors.New("invalid max response size: must be positive")

	// ErrInvalidTLSPolicy is returned for a certificate policy other than
	// verify, pinned or insecure.
	ErrInvalidTLSPolicy = errors.New("invalid tls policy: must be verify, pinned or insecure")

	// ErrConflictingOutputFormats is returned when both --json and --markdown are specified.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: --json and --markdown cannot be used together")

	// ErrConflictingProxy is returned when both --proxy and --tor are specified.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")
)

// HostError reports an invalid per-host setting in the configuration file.
type HostError struct {
	Host string
	Err  error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Host, e.Err)
}

// Unwrap returns the underlying error.
func (e *HostError) Unwrap() error {
	return e.Err
}
