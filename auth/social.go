package auth

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/brainbox-app/brainbox/internal/errors"
)

// Native social SDK status codes.
const (
	SocialCodeSignInCancelled          = "SIGN_IN_CANCELLED"
	SocialCodeSignInCancelledAndroid   = "-5"
	SocialCodeInProgress               = "IN_PROGRESS"
	SocialCodePlayServicesNotAvailable = "PLAY_SERVICES_NOT_AVAILABLE"
	SocialCodeAppleRequestCanceled     = "ERR_REQUEST_CANCELED"
)

// GoogleSignIn is the native Google sign-in SDK.
type GoogleSignIn interface {
	HasPlayServices(ctx context.Context) error
	// SignIn runs the interactive flow and returns the Google ID token.
	SignIn(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// AppleAuthorizer runs the native Apple sign-in with the hashed nonce and returns the identity token.
type AppleAuthorizer interface {
	SignIn(ctx context.Context, hashedNonce string) (string, error)
}

// SocialError is a failure reported by a native social SDK.
type SocialError struct {
	Code    string
	Message string
}

func (e *SocialError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func translateSocialError(err error, fallback string) error {
	var socialErr *SocialError
	if !errors.As(err, &socialErr) {
		if isNetworkError(err) {
			return translateError(err)
		}
		return &apperrors.AuthError{Kind: apperrors.ErrValidation, Message: fallback, Err: err}
	}

	switch socialErr.Code {
	case SocialCodeSignInCancelled, SocialCodeSignInCancelledAndroid:
		return &apperrors.AuthError{Kind: apperrors.ErrCancelled, Code: socialErr.Code, Message: "Google sign-in was cancelled", Err: err}
	case SocialCodeAppleRequestCanceled:
		return &apperrors.AuthError{Kind: apperrors.ErrCancelled, Code: socialErr.Code, Message: "Apple sign-in was cancelled", Err: err}
	case SocialCodeInProgress:
		return &apperrors.AuthError{Kind: apperrors.ErrValidation, Code: socialErr.Code, Message: "Google sign-in is already in progress", Err: err}
	case SocialCodePlayServicesNotAvailable:
		return &apperrors.AuthError{Kind: apperrors.ErrValidation, Code: socialErr.Code, Message: "Google Play Services not available", Err: err}
	}

	message := socialErr.Message
	if message == "" {
		message = fallback
	}
	return &apperrors.AuthError{Kind: apperrors.ErrValidation, Code: socialErr.Code, Message: message, Err: err}
}
