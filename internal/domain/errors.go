package domain

import (
	"errors"
	"fmt"
)

// Code identifies one kind of operational error. The set is closed: every
// error surfaced by the exchange core carries exactly one of these codes.
type Code int

const (
	CodeUnknown           Code = 10000
	CodeStorage           Code = 10100
	CodeNotFound          Code = 10200
	CodePermissionDenied  Code = 10300
	CodeInvalidParam      Code = 10400
	CodeInsufficientFunds Code = 10500
	CodeInvalidOrder      Code = 10600
	CodeTimeout           Code = 10700
)

// String returns the stable wire name of the code.
func (c Code) String() string {
	switch c {
	case CodeStorage:
		return "STORAGE_ERROR"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeInvalidParam:
		return "INVALID_PARAM"
	case CodeInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case CodeInvalidOrder:
		return "INVALID_ORDER"
	case CodeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Error is the operational error type carried through every layer.
// Callers receive it as a structured {code, message} pair.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return e.Code.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates an operational error with the given code.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an operational error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code to an underlying error, keeping it for Unwrap.
// An err that already carries a code is returned unchanged.
func WrapError(code Code, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Code: code, Message: err.Error(), cause: err}
}

// CodeOf extracts the operational code from err, or CodeUnknown for
// errors from outside the taxonomy.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}
