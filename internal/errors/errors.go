package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the LMS client core and the development backend
var (
	// Transport errors
	ErrTransport = errors.New("transport error")

	// Authorization errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshFailed       = errors.New("token refresh failed")

	// Session errors
	ErrSessionExpired   = errors.New("session expired")
	ErrValidationFailed = errors.New("session validation failed")

	// General errors
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternal        = errors.New("internal error")
	ErrUserBlocked     = errors.New("user is blocked")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrMissingArgument = errors.New("missing argument")
)

// StatusError is a non-2xx response from one of the backend services.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match a StatusError against the status sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// NewStatusError builds a StatusError, defaulting the message to the status text.
func NewStatusError(statusCode int, message string) *StatusError {
	return &StatusError{StatusCode: statusCode, Message: message}
}

// TransportError wraps network and timeout failures. They are never retried.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors so that each remains matchable with Is
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// New returns a plain error, mirroring the standard library
func New(text string) error {
	return errors.New(text)
}
