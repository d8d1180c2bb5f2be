package core

import (
	"errors"
	"fmt"
)

// Error represents a canonical Boncuk error.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrPermissionDenied means camera or microphone access was refused.
	ErrPermissionDenied ErrorType = "permission_denied"
	// ErrDeviceUnavailable means the requested capture device does not exist or is busy.
	ErrDeviceUnavailable ErrorType = "device_unavailable"
	// ErrCredentialMissing means no model API key was configured.
	ErrCredentialMissing ErrorType = "credential_missing"
	// ErrConnection covers failures to open or write to the remote endpoint.
	ErrConnection ErrorType = "connection_failure"
	// ErrDecode covers malformed inbound payloads.
	ErrDecode ErrorType = "decode_failure"

	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
)

// NewPermissionDeniedError creates a permission denied error.
func NewPermissionDeniedError(message string, cause error) *Error {
	return &Error{Type: ErrPermissionDenied, Message: message, cause: cause}
}

// NewDeviceUnavailableError creates a device unavailable error.
func NewDeviceUnavailableError(message string, cause error) *Error {
	return &Error{Type: ErrDeviceUnavailable, Message: message, cause: cause}
}

// NewCredentialMissingError creates a credential missing error.
func NewCredentialMissingError(message string) *Error {
	return &Error{Type: ErrCredentialMissing, Message: message}
}

// NewConnectionError wraps a transport failure.
func NewConnectionError(message string, cause error) *Error {
	return &Error{Type: ErrConnection, Message: message, cause: cause}
}

// NewDecodeError wraps a payload decoding failure.
func NewDecodeError(message string, cause error) *Error {
	return &Error{Type: ErrDecode, Message: message, cause: cause}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewAuthenticationError means the configured credential was rejected.
func NewAuthenticationError(message string, cause error) *Error {
	return &Error{Type: ErrAuthentication, Message: message, cause: cause}
}

// NewRateLimitError means the remote endpoint throttled the request.
func NewRateLimitError(message string, cause error) *Error {
	return &Error{Type: ErrRateLimit, Message: message, cause: cause}
}

// NewOverloadedError means the remote endpoint is temporarily unavailable.
func NewOverloadedError(message string, cause error) *Error {
	return &Error{Type: ErrOverloaded, Message: message, cause: cause}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string, cause error) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
		cause:   cause,
	}
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or "".
func TypeOf(err error) ErrorType {
	var ce *Error
	if errors.As(err, &ce) && ce != nil {
		return ce.Type
	}
	return ""
}

// IsType reports whether err carries a canonical error of type t.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
