// Package errors provides standardized error handling for the vidshare API.
// Every failure a handler can produce maps to one ErrorCode, and every
// ErrorCode maps to exactly one HTTP status.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code for the vidshare API.
type ErrorCode string

const (
	// Validation errors
	VS_VALIDATION  ErrorCode = "VS_VALIDATION"  // Malformed id, missing field, bad pagination
	VS_BAD_REQUEST ErrorCode = "VS_BAD_REQUEST" // Unparseable request body
	VS_MEDIA_TYPE  ErrorCode = "VS_MEDIA_TYPE"  // Upload content type not allowed

	// Authentication/Authorization errors
	VS_AUTHN     ErrorCode = "VS_AUTHN"     // Missing or invalid bearer token
	VS_NOT_OWNER ErrorCode = "VS_NOT_OWNER" // Requester does not own the resource

	// Resource errors
	VS_NOT_FOUND         ErrorCode = "VS_NOT_FOUND"         // Resource not found
	VS_CONFLICT          ErrorCode = "VS_CONFLICT"          // Idempotency key reused with another body
	VS_PAYLOAD_TOO_LARGE ErrorCode = "VS_PAYLOAD_TOO_LARGE" // Request body exceeds the upload limit

	// Rate limiting
	VS_RATE_LIMIT ErrorCode = "VS_RATE_LIMIT" // Rate limit exceeded

	// Media host errors
	VS_UPLOAD        ErrorCode = "VS_UPLOAD"        // Upload to the media host failed
	VS_REMOTE_DELETE ErrorCode = "VS_REMOTE_DELETE" // Removing a superseded remote asset failed

	// Server errors
	VS_INTERNAL    ErrorCode = "VS_INTERNAL"    // Internal server error
	VS_UNAVAILABLE ErrorCode = "VS_UNAVAILABLE" // Dependency unavailable
)

// Error represents a standardized error response.
type Error struct {
	Code          ErrorCode   `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	HTTPStatus    int         `json:"-"`

	cause error
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatusCodeForCode(code),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, details interface{}) *Error {
	e := New(code, message)
	e.Details = details
	return e
}

// Wrap creates an Error that keeps cause for logging and errors.Is/As.
// The cause is never rendered to clients.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// WithCorrelationID returns a copy of e stamped with the request's correlation id.
func (e *Error) WithCorrelationID(id string) *Error {
	c := *e
	c.CorrelationID = id
	return &c
}

// As extracts an *Error from err. Anything else becomes VS_INTERNAL.
func As(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(VS_INTERNAL, "Internal server error", err)
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case VS_VALIDATION, VS_BAD_REQUEST, VS_MEDIA_TYPE:
		return http.StatusBadRequest
	case VS_AUTHN, VS_NOT_OWNER:
		return http.StatusUnauthorized
	case VS_NOT_FOUND:
		return http.StatusNotFound
	case VS_CONFLICT:
		return http.StatusConflict
	case VS_PAYLOAD_TOO_LARGE:
		return http.StatusRequestEntityTooLarge
	case VS_RATE_LIMIT:
		return http.StatusTooManyRequests
	case VS_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
