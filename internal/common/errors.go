package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

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

// ValidationError reports caller-supplied data that cannot be processed.
// It is surfaced to the client as-is and never retried.
type ValidationError struct {
	Field  string
	Reason string
	// Fields holds every failing field when more than one was rejected.
	Fields map[string]string
	Err    error
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: ErrValidation}
}

// WrapValidation builds a ValidationError that also matches cause via errors.Is.
func WrapValidation(field, reason string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: errors.Join(ErrValidation, cause)}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e == nil || e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// AsAppError converts known error kinds into an AppError suitable for rendering.
// Unknown errors map to a generic 500.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		details := map[string]string{}
		for field, reason := range vErr.Fields {
			details[field] = reason
		}
		if vErr.Field != "" {
			details[vErr.Field] = vErr.Reason
		}
		return &AppError{
			Code:       "VALIDATION_ERROR",
			Message:    vErr.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
			Details:    details,
		}
	}
	return &AppError{Code: "INTERNAL", Message: "internal error", HTTPStatus: http.StatusInternalServerError, Err: err}
}
