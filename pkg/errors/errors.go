package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur during a scrape run
type ErrorType string

const (
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeCancelled  ErrorType = "cancelled"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a pipeline error with type information
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Type, e.Op, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so errors.Is(err, &Error{Type: ErrorTypeTimeout}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Op == "" || t.Op == e.Op)
}

// New creates a typed error
func New(errType ErrorType, op, message string) *Error {
	return &Error{Type: errType, Op: op, Message: message}
}

// Wrap attaches a type and operation to err. A nil err stays nil.
func Wrap(errType ErrorType, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Op: op, Err: err}
}

// Session wraps a browser session failure
func Session(op string, err error) error { return Wrap(ErrorTypeSession, op, err) }

// Navigation wraps a page navigation failure
func Navigation(op string, err error) error { return Wrap(ErrorTypeNavigation, op, err) }

// Timeout wraps a bounded wait that expired
func Timeout(op string, err error) error { return Wrap(ErrorTypeTimeout, op, err) }

// Extraction wraps a per-post extraction failure
func Extraction(op string, err error) error { return Wrap(ErrorTypeExtraction, op, err) }

// TypeOf reports the ErrorType of err. Context errors map to cancelled or timeout.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	if stderrors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	return ErrorTypeUnknown
}

// IsTimeout reports whether err is a timeout
func IsTimeout(err error) bool {
	return TypeOf(err) == ErrorTypeTimeout
}
