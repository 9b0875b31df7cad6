package errx

import (
	"errors"
	"fmt"
)

// Error is a categorized error with a stable code and optional details
type Error struct {
	// Code is the stable error code
	Code Code `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Details contains additional context about the error
	Details map[string]interface{} `json:"details,omitempty"`

	// Err is the underlying error (not exported in JSON)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail
func (e *Error) WithDetail(key string, value interface{}) *Error {
	cp := e.clone()
	cp.Details[key] = value
	return cp
}

// WithMessage returns a copy of the error with a different message
func (e *Error) WithMessage(message string) *Error {
	cp := e.clone()
	cp.Message = message
	return cp
}

func (e *Error) clone() *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &Error{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Details:    details,
		Err:        e.Err,
	}
}

// New creates a new Error for a code
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: code.HTTPStatus(),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a categorized error. The sentinel's message and
// code are preserved.
func Wrap(sentinel *Error, cause error) *Error {
	if cause == nil {
		return sentinel
	}
	cp := sentinel.clone()
	cp.Err = cause
	return cp
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// From returns the *Error in err's chain, converting uncategorized errors
// into an internal error wrapping the cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: CodeInternal.HTTPStatus(),
		Err:        err,
	}
}
