package mailbus

import (
	"bytes"
	"errors"
	"fmt"
)

// Error codes. The http package maps each one to a fixed status.
const (
	ErrInvalid       = "invalid"
	ErrUnauthorized  = "unauthorized"
	ErrNotFound      = "not_found"
	ErrConflict      = "conflict"
	ErrStorage       = "storage"
	ErrEmailDelivery = "email_delivery"
	ErrInternal      = "internal"
)

// Error is the application error. Code classifies it, Message is safe to show
// to the end user, Op and Err keep the causal chain for logs.
type Error struct {
	Code    string
	Message string
	Op      string
	Err     error
}

// Errorf returns a new Error with a user facing message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the outermost Error carrying one.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	}
	if errors.As(err, &e) {
		if e.Code != "" {
			return e.Code
		}
		if e.Err != nil {
			return ErrorCode(e.Err)
		}
	}

	return ErrInternal
}

// ErrorMessage returns the user facing message of err. Storage and delivery
// failures never carry one, so they fall back to the generic message.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	}
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return ErrorMessage(e.Err)
		}
	}

	return "An internal error has occurred."
}

func (e *Error) Error() string {
	var buf bytes.Buffer

	if e.Op != "" {
		fmt.Fprintf(&buf, "%s: ", e.Op)
	}

	if e.Err != nil {
		buf.WriteString(e.Err.Error())
	} else {
		if e.Code != "" {
			fmt.Fprintf(&buf, "<%s> ", e.Code)
		}
		buf.WriteString(e.Message)
	}

	return buf.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
