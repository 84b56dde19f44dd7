package protocol

import "strconv"

// Status is a two digit Gemini status code.
type Status int

// Category returns the category selected by the tens digit.
// It returns CategoryUnknown for codes outside 10-69.
func (s Status) Category() Category {
	if s < 10 || s > 69 {
		return CategoryUnknown
	}
	return Category(s / 10)
}

// String returns the code as two digits.
func (s Status) String() string {
	if s >= 0 && s < 10 {
		return "0" + strconv.Itoa(int(s))
	}
	return strconv.Itoa(int(s))
}

// Category is the response category selected by the tens digit of a status.
type Category int

const (
	// CategoryUnknown is not a valid category.
	CategoryUnknown Category = iota
	// CategoryInput is 1x.
	CategoryInput
	// CategorySuccess is 2x.
	CategorySuccess
	// CategoryRedirection is 3x.
	CategoryRedirection
	// CategoryTemporaryFailure is 4x.
	CategoryTemporaryFailure
	// CategoryPermanentFailure is 5x.
	CategoryPermanentFailure
	// CategoryClientCertificate is 6x.
	CategoryClientCertificate
)

// String returns the category name in snake case.
func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategorySuccess:
		return "success"
	case CategoryRedirection:
		return "redirection"
	case CategoryTemporaryFailure:
		return "temporary_failure"
	case CategoryPermanentFailure:
		return "permanent_failure"
	case CategoryClientCertificate:
		return "client_certificate"
	default:
		return "unknown"
	}
}

// InputKind distinguishes 1x responses.
type InputKind int

const (
	// InputBasic is 10 and any unassigned 1x code.
	InputBasic InputKind = iota
	// InputSensitive is 11; the answer should not be echoed.
	InputSensitive
)

func inputKind(s Status) InputKind {
	if s == 11 {
		return InputSensitive
	}
	return InputBasic
}

// String returns the kind name.
func (k InputKind) String() string {
	if k == InputSensitive {
		return "sensitive"
	}
	return "basic"
}

// RedirectKind distinguishes 3x responses.
type RedirectKind int

const (
	// RedirectTemporary is 30 and any unassigned 3x code.
	RedirectTemporary RedirectKind = iota
	// RedirectPermanent is 31.
	RedirectPermanent
)

func redirectKind(s Status) RedirectKind {
	if s == 31 {
		return RedirectPermanent
	}
	return RedirectTemporary
}

// String returns the kind name.
func (k RedirectKind) String() string {
	if k == RedirectPermanent {
		return "permanent"
	}
	return "temporary"
}

// TemporaryFailureKind distinguishes 4x responses.
type TemporaryFailureKind int

const (
	// TemporaryUnspecified is 40 and any unassigned 4x code.
	TemporaryUnspecified TemporaryFailureKind = iota
	// ServerUnavailable is 41.
	ServerUnavailable
	// CGIError is 42.
	CGIError
	// ProxyError is 43.
	ProxyError
	// SlowDown is 44.
	SlowDown
)

func temporaryFailureKind(s Status) TemporaryFailureKind {
	switch s {
	case 41:
		return ServerUnavailable
	case 42:
		return CGIError
	case 43:
		return ProxyError
	case 44:
		return SlowDown
	default:
		return TemporaryUnspecified
	}
}

// String returns the kind name.
func (k TemporaryFailureKind) String() string {
	switch k {
	case ServerUnavailable:
		return "server_unavailable"
	case CGIError:
		return "cgi_error"
	case ProxyError:
		return "proxy_error"
	case SlowDown:
		return "slow_down"
	default:
		return "unspecified"
	}
}

// PermanentFailureKind distinguishes 5x responses.
type PermanentFailureKind int

const (
	// PermanentGeneral is 50 and any unassigned 5x code.
	PermanentGeneral PermanentFailureKind = iota
	// NotFound is 51.
	NotFound
	// Gone is 52.
	Gone
	// ProxyRequestRefused is 53.
	ProxyRequestRefused
	// BadRequest is 59.
	BadRequest
)

func permanentFailureKind(s Status) PermanentFailureKind {
	switch s {
	case 51:
		return NotFound
	case 52:
		return Gone
	case 53:
		return ProxyRequestRefused
	case 59:
		return BadRequest
	default:
		return PermanentGeneral
	}
}

// String returns the kind name.
func (k PermanentFailureKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Gone:
		return "gone"
	case ProxyRequestRefused:
		return "proxy_request_refused"
	case BadRequest:
		return "bad_request"
	default:
		return "general"
	}
}

// ClientCertificateKind distinguishes 6x responses.
type ClientCertificateKind int

const (
	// CertificateRequired is 60 and any unassigned 6x code.
	CertificateRequired ClientCertificateKind = iota
	// CertificateNotAuthorized is 61.
	CertificateNotAuthorized
	// CertificateNotValid is 62.
	CertificateNotValid
)

func clientCertificateKind(s Status) ClientCertificateKind {
	switch s {
	case 61:
		return CertificateNotAuthorized
	case 62:
		return CertificateNotValid
	default:
		return CertificateRequired
	}
}

// String returns the kind name.
func (k ClientCertificateKind) String() string {
	switch k {
	case CertificateNotAuthorized:
		return "not_authorized"
	case CertificateNotValid:
		return "not_valid"
	default:
		return "certificate_required"
	}
}
