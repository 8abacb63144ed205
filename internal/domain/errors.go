package domain

import (
	"errors"
	"fmt"
)

// Messages shown to operators
const (
	MsgOrderNotFound     = "Comanda nu a fost găsită"
	MsgAlreadyGenerated  = "AWB deja generat pentru această comandă"
	MsgOperationInFlight = "O operație pentru această comandă este deja în curs"
	MsgUnknownAPIError   = "Eroare necunoscută"
	MsgMissingCredential = "API credentials are missing"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNoRecipient   = errors.New("order has no billing email")
)

// ErrorKind classifies AWB failures
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindDomain     ErrorKind = "domain"
	KindMalformed  ErrorKind = "malformed"
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindInternal   ErrorKind = "internal"
)

// AWBError is the single error type crossing the courier and orchestration boundary.
// Code is the remote error code for KindDomain, Fields holds per-field messages for KindValidation.
type AWBError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AWBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AWBError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a network, HTTP status or decoding failure
func NewTransportError(message string, err error) *AWBError {
	return &AWBError{Kind: KindTransport, Message: message, Err: err}
}

// NewDomainError carries a non-zero remote error code
func NewDomainError(code int, message string) *AWBError {
	if message == "" {
		message = MsgUnknownAPIError
	}
	return &AWBError{Kind: KindDomain, Code: code, Message: message}
}

// NewMalformedError reports a success envelope missing its payload field
func NewMalformedError(message string) *AWBError {
	return &AWBError{Kind: KindMalformed, Message: message}
}

// NewValidationError reports local precondition failures
func NewValidationError(message string, fields map[string]string) *AWBError {
	return &AWBError{Kind: KindValidation, Message: message, Fields: fields}
}

// NewConflictError reports a held generation lock
func NewConflictError() *AWBError {
	return &AWBError{Kind: KindConflict, Message: MsgOperationInFlight}
}

// NewNotFoundError reports a missing order
func NewNotFoundError() *AWBError {
	return &AWBError{Kind: KindNotFound, Message: MsgOrderNotFound, Err: ErrOrderNotFound}
}

// NewInternalError wraps persistence and other local failures
func NewInternalError(message string, err error) *AWBError {
	return &AWBError{Kind: KindInternal, Message: message, Err: err}
}

// AsAWBError extracts an *AWBError from err
func AsAWBError(err error) (*AWBError, bool) {
	var awbErr *AWBError
	if errors.As(err, &awbErr) {
		return awbErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	if awbErr, ok := AsAWBError(err); ok {
		return awbErr.Kind
	}
	return KindInternal
}
