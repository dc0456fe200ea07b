// Copyright (c) 2026 DevSearch. All rights reserved.

/*
Package apperr defines the centralized error handling framework for DevSearch.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing a machine-readable code and a user-friendly message.
  - Taxonomy: Codes mirror the public API contract (validation_error, non_existent, ...).
  - Mapping: Explicit mapping from AppError to standard HTTP status codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"net/http"
)

// # Error Codes

// Machine-readable error codes exposed in the failure envelope.
const (
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNonExistent     = "non_existent"
	CodeValidationError = "validation_error"
	CodeExpired         = "expired"
	CodeAlreadyExists   = "already_exists"
	CodeServerError     = "server_error"
)

// AppError is the canonical error type for the DevSearch API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, optional field-level validation details, and an optional hint
// payload surfaced in the envelope's data field.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "non_existent").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for validation_error responses.
	Details []FieldError `json:"details,omitempty"`
	// Hint is an optional payload rendered as the envelope data (e.g. next_action).
	Hint map[string]any `json:"-"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithHint attaches an envelope data payload, returning the same error for chaining.
func (e *AppError) WithHint(hint map[string]any) *AppError {
	e.Hint = hint
	return e
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError].
//
// Example:
//
//	apperr.NotFound("User with this email does not exist.")
func NotFound(msg string) *AppError {
	return &AppError{
		Code:       CodeNonExistent,
		Message:    msg,
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// AlreadyExists creates a 422 [AppError] for unique-constraint violations.
//
// Registration reports duplicate emails through the validation channel
// rather than a bare 409, matching the public API contract.
func AlreadyExists(msg string) *AppError {
	return &AppError{
		Code:       CodeAlreadyExists,
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// ValidationError creates a 422 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidationError,
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// BadRequest creates a 400 [AppError] for malformed input (bad JSON, wrong OTP).
func BadRequest(msg string) *AppError {
	return &AppError{
		Code:       CodeValidationError,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Expired creates a 410 [AppError] for secrets past their validity window.
func Expired(msg string) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    msg,
		HTTPStatus: http.StatusGone,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeServerError,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
