package errors

import (
	"errors"
	"fmt"
)

// Common error types for the chat auth client
var (
	// Identity endpoint errors
	ErrTransport          = errors.New("identity endpoint unreachable")
	ErrUnexpectedResponse = errors.New("unexpected identity response")
	ErrMissingAPIKey      = errors.New("identity api key is not configured")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrSuperseded       = errors.New("attempt superseded")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")

	// Storage errors
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
	ErrInvalidKey = errors.New("namespace and key are required")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInternal      = errors.New("internal error")
)

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}

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

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
