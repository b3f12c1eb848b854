package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers of the session subsystem.
var (
	// ErrValidation covers malformed input and credential failures reported by the identity provider.
	ErrValidation = errors.New("validation error")
	// ErrCancelled is a user-initiated cancellation of a social sign-in flow.
	ErrCancelled = errors.New("cancelled")
	// ErrNoUser means the operation needs an active session and there is none.
	ErrNoUser = errors.New("no user logged in")
	// ErrAuthenticationRequired means every token resolution fallback was exhausted.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrStorage means secure storage is unavailable or a stored token could not be decoded.
	ErrStorage = errors.New("storage error")
	// ErrNetwork means the backend or provider could not be reached. Safe to retry.
	ErrNetwork = errors.New("network error")
)

// AuthError is a translated provider or storage failure. Message is always human readable,
// Code is the normalized provider code and is never shown to users.
type AuthError struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "authentication error"
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As.
func (e *AuthError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if e.Kind != nil {
		unwrapped = append(unwrapped, e.Kind)
	}
	if e.Err != nil {
		unwrapped = append(unwrapped, e.Err)
	}
	return unwrapped
}

// New builds an AuthError of the given kind.
func New(kind error, code, message string) *AuthError {
	return &AuthError{Kind: kind, Code: code, Message: message}
}

// Newf builds an AuthError wrapping cause.
func Newf(kind error, cause error, format string, args ...interface{}) *AuthError {
	return &AuthError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Retryable reports whether err is safe to retry. Only network failures are.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// Message returns the human readable text of err, or fallback when err carries none.
func Message(err error, fallback string) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
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
