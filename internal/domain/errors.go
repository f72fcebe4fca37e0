package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable class of a failure surfaced to callers.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation_error"
	KindNotFound        ErrorKind = "not_found"
	KindAuthorization   ErrorKind = "authorization_error"
	KindConflict        ErrorKind = "conflict"
	KindUpstream        ErrorKind = "upstream_error"
	KindUnauthenticated ErrorKind = "unauthenticated"
)

func (k ErrorKind) String() string {
	return string(k)
}

// Error carries a kind, a human readable message and optionally the cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewValidationErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(message string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: err}
}

func NewAuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NewUnauthenticatedError(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func NewConflictError(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func NewUpstreamError(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf reports the kind of err. Errors outside the taxonomy are upstream failures.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUpstream
}

// MessageOf returns the caller-facing message of err without internal causes.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

var (
	ErrNoItems             = NewValidationError("no items to order")
	ErrInvalidStatus       = NewValidationError("invalid order status")
	ErrIllegalTransition   = NewValidationError("illegal transition of order status")
	ErrInvalidPayment      = NewValidationError("payment method must be card or bank-transfer")
	ErrPaymentKeyNotCard   = NewValidationError("payment key can only be attached to card orders")
	ErrPaymentKeyRequired  = NewValidationError("payment key is required")
	ErrInvalidQuantity     = NewValidationError("quantity must be at least 1")
	ErrQuantityTooLarge    = NewValidationErrorf("quantity must be at most %d", MaxQuantity)
	ErrAmountTooLarge      = NewValidationError("order amount exceeds the supported maximum")
	ErrArtworkNotAvailable = NewValidationError("artwork is not available")
)
