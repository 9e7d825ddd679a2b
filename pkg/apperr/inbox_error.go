// Package apperr defines the application error type shared by services and
// HTTP handlers. Errors carry a stable code, an HTTP status and an optional
// wrapped cause.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
	CodeInternal           Code = "INTERNAL"
	CodeDatabase           Code = "DATABASE_ERROR"
	CodeExternal           Code = "EXTERNAL_ERROR"
)

// AppError is the application-wide error type
type AppError struct {
	Code    Code
	Message string
	Status  int
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// New creates an AppError with an explicit code and status
func New(code Code, status int, format string, args ...any) *AppError {
	return &AppError{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new AppError
func Wrap(err error, code Code, status int, format string, args ...any) *AppError {
	return &AppError{Code: code, Status: status, Message: fmt.Sprintf(format, args...), cause: err}
}

func BadRequest(format string, args ...any) *AppError {
	return New(CodeBadRequest, http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *AppError {
	return New(CodeForbidden, http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *AppError {
	return New(CodeNotFound, http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...any) *AppError {
	return New(CodeConflict, http.StatusConflict, format, args...)
}

func PreconditionFailed(format string, args ...any) *AppError {
	return New(CodePreconditionFailed, http.StatusPreconditionFailed, format, args...)
}

func TooManyRequests(format string, args ...any) *AppError {
	return New(CodeTooManyRequests, http.StatusTooManyRequests, format, args...)
}

func Internal(err error, format string, args ...any) *AppError {
	return Wrap(err, CodeInternal, http.StatusInternalServerError, format, args...)
}

func DatabaseError(err error, format string, args ...any) *AppError {
	return Wrap(err, CodeDatabase, http.StatusInternalServerError, format, args...)
}

func ExternalError(err error, format string, args ...any) *AppError {
	return Wrap(err, CodeExternal, http.StatusBadGateway, format, args...)
}

// IsAppError reports whether err is (or wraps) an AppError
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// AsAppError extracts the AppError from err, if any
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status for err, defaulting to 500
func GetHTTPStatus(err error) int {
	if ae, ok := AsAppError(err); ok && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given code
func IsCode(err error, code Code) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Code == code
}
