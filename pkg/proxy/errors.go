package proxy

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	ErrClientConstruction = errors.New("client construction error")
	ErrRequest            = errors.New("request error")
	ErrHTTPStatus         = errors.New("http status error")
	ErrResponseRead       = errors.New("response read error")
	ErrJSONParse          = errors.New("json parse error")
	ErrEncoding           = errors.New("character encoding error")
	ErrInvalidParams      = errors.New("invalid params")
	ErrUnknownCommand     = errors.New("unknown command")
)

// Operation names used in errors and logs.
const (
	OpFetchQuote = "fetch_quote"
	OpFetchFund  = "fetch_fund"
)

// unknownErrorBody stands in for a status error body that could not be read.
const unknownErrorBody = "unknown error"

// Error is the terminal failure of a proxy operation.
type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if errors.Is(e.Kind, ErrHTTPStatus) {
		return fmt.Sprintf("HTTP %s: %s", e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func statusError(op string, code int, status, body string) *Error {
	return &Error{Kind: ErrHTTPStatus, Op: op, StatusCode: code, Status: status, Body: body}
}
