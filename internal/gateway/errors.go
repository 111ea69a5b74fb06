package gateway

import "fmt"

// ErrorKind classifies a gateway failure.
type ErrorKind int

const (
	ErrorGeneric ErrorKind = iota
	ErrorMalformedResponse
	ErrorUnexpectedHTTPStatus
	ErrorDNSFailure
	ErrorConnectionTimeout
	ErrorSocket
)

var kindNames = map[ErrorKind]string{
	ErrorGeneric:              "generic gateway error",
	ErrorMalformedResponse:    "malformed response",
	ErrorUnexpectedHTTPStatus: "unexpected HTTP status",
	ErrorDNSFailure:           "DNS failure",
	ErrorConnectionTimeout:    "connection timeout",
	ErrorSocket:               "socket error",
}

// String names the kind for logs.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "generic gateway error"
}

// Error is a classified gateway failure. Any operation that hits one still
// lands its local record on a terminal-for-this-attempt status.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewError builds a classified gateway error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.cause }
