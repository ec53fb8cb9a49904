package api

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindForbidden  ErrorKind = "forbidden"
	ErrorKindBadRequest ErrorKind = "bad_request"
	ErrorKindUpstream   ErrorKind = "upstream"
	ErrorKindInternal   ErrorKind = "internal"
)

// Error is the single error type returned by every API operation. The HTTP
// layer maps Kind to a status code.
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

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return newError(ErrorKindNotFound, format, args...)
}

func forbidden(format string, args ...interface{}) *Error {
	return newError(ErrorKindForbidden, format, args...)
}

func badRequest(format string, args ...interface{}) *Error {
	return newError(ErrorKindBadRequest, format, args...)
}

func upstream(err error, format string, args ...interface{}) *Error {
	apiErr := newError(ErrorKindUpstream, format, args...)
	apiErr.Err = err
	return apiErr
}

func internal(err error, format string, args ...interface{}) *Error {
	apiErr := newError(ErrorKindInternal, format, args...)
	apiErr.Err = err
	return apiErr
}

// AsError converts any error into an *Error, treating unknown errors as
// internal.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: ErrorKindInternal, Message: err.Error(), Err: err}
}
