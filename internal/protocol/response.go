package protocol

import (
	"bytes"
	"unicode/utf8"
)

// Response is a classified Gemini response.
//
// The implementations are Input, Success, Redirection, TemporaryFailure,
// PermanentFailure and ClientCertificate. The set is closed.
type Response interface {
	// Status returns the exact status code received.
	Status() Status

	// Category returns the category of the status code.
	Category() Category

	isResponse()
}

// Input is a 1x response: the server asks the client for a line of input.
type Input struct {
	Code   Status
	Kind   InputKind
	Prompt string
}

// Success is a 2x response carrying the document body.
type Success struct {
	Code Status
	Body string
}

// Redirection is a 3x response pointing to another location.
type Redirection struct {
	Code Status
	Kind RedirectKind
	To   string
}

// TemporaryFailure is a 4x response.
type TemporaryFailure struct {
	Code Status
	Kind TemporaryFailureKind
	Msg  string
}

// PermanentFailure is a 5x response.
type PermanentFailure struct {
	Code Status
	Kind PermanentFailureKind
	Msg  string
}

// ClientCertificate is a 6x response.
type ClientCertificate struct {
	Code Status
	Kind ClientCertificateKind
	Msg  string
}

var (
	_ Response = Input{}
	_ Response = Success{}
	_ Response = Redirection{}
	_ Response = TemporaryFailure{}
	_ Response = PermanentFailure{}
	_ Response = ClientCertificate{}
)

// Status implements Response.
func (r Input) Status() Status { return r.Code }

// Category implements Response.
func (Input) Category() Category { return CategoryInput }

func (Input) isResponse() {}

// Status implements Response.
func (r Success) Status() Status { return r.Code }

// Category implements Response.
func (Success) Category() Category { return CategorySuccess }

func (Success) isResponse() {}

// Status implements Response.
func (r Redirection) Status() Status { return r.Code }

// Category implements Response.
func (Redirection) Category() Category { return CategoryRedirection }

func (Redirection) isResponse() {}

// Status implements Response.
func (r TemporaryFailure) Status() Status { return r.Code }

// Category implements Response.
func (TemporaryFailure) Category() Category { return CategoryTemporaryFailure }

func (TemporaryFailure) isResponse() {}

// Status implements Response.
func (r PermanentFailure) Status() Status { return r.Code }

// Category implements Response.
func (PermanentFailure) Category() Category { return CategoryPermanentFailure }

func (PermanentFailure) isResponse() {}

// Status implements Response.
func (r ClientCertificate) Status() Status { return r.Code }

// Category implements Response.
func (ClientCertificate) Category() Category { return CategoryClientCertificate }

func (ClientCertificate) isResponse() {}

// ParseResponse classifies raw response bytes.
//
// The header is the two digit status, an optional single space, and the meta
// text up to the first CR LF. Everything after CR LF is the body. Input that
// contains no CR at all yields empty meta and an empty body. A CR that is not
// immediately followed by LF is an error, as is meta text or a body that is
// not valid UTF-8.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return nil, &ParseError{Offset: len(raw), Err: ErrShortResponse}
	}
	if !isDigit(raw[0]) || !isDigit(raw[1]) {
		return nil, &ParseError{Offset: 0, Err: ErrInvalidStatus}
	}
	code := Status(int(raw[0]-'0')*10 + int(raw[1]-'0'))
	category := code.Category()
	if category == CategoryUnknown {
		return nil, &ParseError{Offset: 0, Err: ErrUnknownCategory}
	}

	meta, body, err := splitHeader(raw)
	if err != nil {
		return nil, err
	}

	switch category {
	case CategoryInput:
		return Input{Code: code, Kind: inputKind(code), Prompt: meta}, nil
	case CategorySuccess:
		return Success{Code: code, Body: body}, nil
	case CategoryRedirection:
		return Redirection{Code: code, Kind: redirectKind(code), To: meta}, nil
	case CategoryTemporaryFailure:
		return TemporaryFailure{Code: code, Kind: temporaryFailureKind(code), Msg: meta}, nil
	case CategoryPermanentFailure:
		return PermanentFailure{Code: code, Kind: permanentFailureKind(code), Msg: meta}, nil
	default:
		return ClientCertificate{Code: code, Kind: clientCertificateKind(code), Msg: meta}, nil
	}
}

// splitHeader returns the meta text and the body following the status code.
func splitHeader(raw []byte) (string, string, error) {
	cr := bytes.IndexByte(raw[2:], '\r')
	if cr < 0 {
		return "", "", nil
	}
	cr += 2
	if cr+1 >= len(raw) || raw[cr+1] != '\n' {
		return "", "", &ParseError{Offset: cr, Err: ErrMalformedHeader}
	}

	metaStart := 2
	if metaStart < cr && raw[metaStart] == ' ' {
		metaStart++
	}
	meta := raw[metaStart:cr]
	if !utf8.Valid(meta) {
		return "", "", &ParseError{Offset: metaStart, Err: ErrInvalidEncoding}
	}

	body := raw[cr+2:]
	if !utf8.Valid(body) {
		return "", "", &ParseError{Offset: cr + 2, Err: ErrInvalidEncoding}
	}
	return string(meta), string(body), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
