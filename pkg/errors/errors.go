// Package errors carries the API error type rendered by ErrorHandler.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with the HTTP status, machine code and extra
// response headers it is rendered with
type AppError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    any               `json:"details,omitempty"`
	Headers    map[string]string `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// WithDetails sets the details field of the response body
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithHeader attaches a response header written alongside the error body
func (e *AppError) WithHeader(key, value string) *AppError {
	if e.Headers == nil {
		e.Headers = make(map[string]string, 1)
	}
	e.Headers[key] = value
	return e
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{StatusCode: status, Code: code, Message: message}
}

func NewBadRequestError(code, message string) *AppError {
	return newAppError(http.StatusBadRequest, code, message)
}

// BadRequestWithDetails is a 400 whose details explain what failed validation
func BadRequestWithDetails(code, message string, details any) *AppError {
	return NewBadRequestError(code, message).WithDetails(details)
}

// NewUnauthorizedError is a 401 carrying the bearer challenge
func NewUnauthorizedError(code, message string) *AppError {
	return newAppError(http.StatusUnauthorized, code, message).WithHeader("WWW-Authenticate", "Bearer")
}

func NewForbiddenError(code, message string) *AppError {
	return newAppError(http.StatusForbidden, code, message)
}

func NewNotFoundError(code, message string) *AppError {
	return newAppError(http.StatusNotFound, code, message)
}

// NewTooManyRequestsError is a 429; callers add Retry-After via WithHeader
func NewTooManyRequestsError(code, message string) *AppError {
	return newAppError(http.StatusTooManyRequests, code, message)
}

func NewInternalServerError(code, message string) *AppError {
	return newAppError(http.StatusInternalServerError, code, message)
}

// FromError unwraps an AppError from err. Anything else becomes an opaque
// 500 so driver messages never reach clients.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalServerError("INTERNAL_ERROR", "Internal server error")
}
