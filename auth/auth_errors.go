package auth

import (
	"context"
	"errors"
	"net"

	apperrors "github.com/brainbox-app/brainbox/internal/errors"
)

// Normalized provider error codes.
const (
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeWeakPassword         = "auth/weak-password"
	CodeUserDisabled         = "auth/user-disabled"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeNoCurrentUser        = "auth/no-current-user"
	CodeUserTokenExpired     = "auth/user-token-expired"
)

const GenericAuthErrorMessage = "Authentication failed. Please try again"

var authErrorMessages = map[string]string{
	CodeEmailAlreadyInUse:    "This email is already registered",
	CodeInvalidEmail:         "Invalid email address",
	CodeOperationNotAllowed:  "Operation not allowed",
	CodeWeakPassword:         "Password is too weak",
	CodeUserDisabled:         "This account has been disabled",
	CodeUserNotFound:         "No account found with this email",
	CodeWrongPassword:        "Incorrect password",
	CodeInvalidCredential:    "Invalid email or password",
	CodeTooManyRequests:      "Too many attempts. Please try again later",
	CodeNetworkRequestFailed: "Network error. Please check your connection",
}

// ErrorMessage returns the user facing text for a provider code. Unknown codes get a generic message.
func ErrorMessage(code string) string {
	if message, ok := authErrorMessages[code]; ok {
		return message
	}
	return GenericAuthErrorMessage
}

// translateError turns any provider, transport or storage failure into an AuthError.
// Errors that are already AuthErrors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var authErr *apperrors.AuthError
	if errors.As(err, &authErr) {
		return err
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		kind := apperrors.ErrValidation
		switch providerErr.Code {
		case CodeNetworkRequestFailed:
			kind = apperrors.ErrNetwork
		case CodeNoCurrentUser:
			kind = apperrors.ErrNoUser
		}
		return &apperrors.AuthError{Kind: kind, Code: providerErr.Code, Message: ErrorMessage(providerErr.Code), Err: err}
	}

	if isNetworkError(err) {
		return &apperrors.AuthError{Kind: apperrors.ErrNetwork, Code: CodeNetworkRequestFailed, Message: ErrorMessage(CodeNetworkRequestFailed), Err: err}
	}

	return &apperrors.AuthError{Kind: apperrors.ErrValidation, Message: GenericAuthErrorMessage, Err: err}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
