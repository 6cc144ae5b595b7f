package common

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks locally rejected input. No collaborator call is made for it.
	ErrValidation = errors.New("validation failed")
	// ErrExternal marks failures reported by (or while reaching) the storefront API.
	ErrExternal = errors.New("external service failure")
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ValidationError builds a 422 AppError carrying a human readable reason.
func ValidationError(reason string, err error) *AppError {
	if err == nil {
		err = ErrValidation
	}
	return &AppError{Code: "VALIDATION_FAILED", Message: reason, HTTPStatus: http.StatusUnprocessableEntity, Err: err}
}

// PayloadTooLarge builds the 413 AppError for request bodies over the configured limit.
func PayloadTooLarge(err error) *AppError {
	return &AppError{Code: "PAYLOAD_TOO_LARGE", Message: "request entity too large", HTTPStatus: http.StatusRequestEntityTooLarge, Err: err}
}
