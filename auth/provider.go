package auth

import (
	"context"
	"fmt"
)

// Account is the identity provider's view of the signed-in user.
type Account struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	RefreshToken  string
}

type CredentialProviderID string

const (
	ProviderGoogle CredentialProviderID = "google.com"
	ProviderApple  CredentialProviderID = "apple.com"
)

// Credential is an identity token issued by an external OAuth provider, exchanged for a provider session.
// RawNonce is only set for Apple, and is the unhashed value.
type Credential struct {
	ProviderID CredentialProviderID
	IDToken    string
	RawNonce   string
}

// Provider is the identity provider capability the AuthService is built on.
// Implementations keep track of the current account, like the provider SDKs do.
type Provider interface {
	CreateUser(ctx context.Context, email, password string) (*Account, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Account, error)
	SignInWithCredential(ctx context.Context, credential Credential) (*Account, error)

	// UpdateDisplayName, SendEmailVerification, Reload and IDToken act on the current account.
	UpdateDisplayName(ctx context.Context, displayName string) error
	SendEmailVerification(ctx context.Context) error
	Reload(ctx context.Context) (*Account, error)
	IDToken(ctx context.Context, forceRefresh bool) (string, error)

	SendPasswordReset(ctx context.Context, email string) error
	CurrentAccount() *Account
	SignOut(ctx context.Context) error
}

// ProviderError is a provider failure carrying a normalized code such as "auth/wrong-password".
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
