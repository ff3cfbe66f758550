// Package domain provides the response and error types shared by the
// executor, its endpoints and the HTTP transport.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeVerification indicates the proof-of-work check did not pass.
	ErrorTypeVerification ErrorType = "verification"

	// ErrorTypeForbiddenOrigin indicates the request came from an unknown site.
	ErrorTypeForbiddenOrigin ErrorType = "forbidden_origin"

	// ErrorTypeUpstream indicates a downstream service (mail delivery) failed.
	ErrorTypeUpstream ErrorType = "upstream"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeMissingOrigin    ErrorCode = "missing_origin"
	ErrorCodeInvalidJSON      ErrorCode = "invalid_json"
	ErrorCodeBodyTooLarge     ErrorCode = "body_too_large"
	ErrorCodeUnknownService   ErrorCode = "unknown_service"
	ErrorCodeChallengeExpired ErrorCode = "challenge_expired"
	ErrorCodeChallengeReused  ErrorCode = "challenge_reused"
)

// APIError is a business failure returned by a step. The transport renders it
// as {"error": Message} with HTTPStatusCode().
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param is the dotted path of the offending field (if applicable)
	Param string `json:"param,omitempty"`

	// StatusCode overrides the status derived from Type
	StatusCode int `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeVerification, ErrorTypeForbiddenOrigin:
		return http.StatusBadRequest
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	case ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the JSON payload sent to the client.
func (e *APIError) Body() map[string]string {
	return map[string]string{"error": e.Message}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithParam adds a parameter path to the error.
func (e *APIError) WithParam(param string) *APIError {
	e.Param = param
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause records the error that led to this one.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// Convenience constructors for common errors

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrVerification creates a failed verification error.
func ErrVerification(message string) *APIError {
	return NewAPIError(ErrorTypeVerification, message)
}

// ErrForbiddenOrigin creates an unknown origin error.
func ErrForbiddenOrigin(message string) *APIError {
	return NewAPIError(ErrorTypeForbiddenOrigin, message)
}

// ErrUpstream creates a downstream failure error.
func ErrUpstream(message string) *APIError {
	return NewAPIError(ErrorTypeUpstream, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}
