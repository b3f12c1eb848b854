package auth

import (
	"context"
	"errors"

	apperrors "github.com/brainbox-app/brainbox/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	saveTokensFailedMessage    = "Failed to save authentication tokens"
	refreshTokenFailedMessage  = "Failed to refresh authentication token"
	noUserLoggedInMessage      = "No user logged in"
	missingGoogleTokenMessage  = "Failed to get Google ID token"
	missingAppleTokenMessage   = "Missing Apple identity token"
	appleNoTokenMessage        = "Apple Sign-In failed: no identity token returned"
	googleNotConfiguredMessage = "Google sign-in is not configured"
)

// SessionStore is the part of the token store the AuthService writes to.
type SessionStore interface {
	SaveSession(ctx context.Context, accessToken, refreshToken string) error
	ClearSession(ctx context.Context) error
}

// AuthService wraps the identity provider and keeps the token store in sync with it.
// Every successful sign-in path persists the session before returning.
type AuthService struct {
	provider Provider
	store    SessionStore
	google   GoogleSignIn
}

// AuthServiceOption defines a function type to modify the AuthService instance.
type AuthServiceOption func(*AuthService)

// WithGoogleSignIn enables SignInWithGoogle using the native SDK.
func WithGoogleSignIn(google GoogleSignIn) AuthServiceOption {
	return func(as *AuthService) {
		as.google = google
	}
}

func NewAuthService(provider Provider, store SessionStore, options ...AuthServiceOption) *AuthService {
	as := &AuthService{
		provider: provider,
		store:    store,
	}
	for _, opt := range options {
		opt(as)
	}
	return as
}

// SignUp creates the account, sets its display name, sends the verification email and persists the session.
func (as *AuthService) SignUp(ctx context.Context, name, email, password string) (*Account, error) {
	account, err := as.provider.CreateUser(ctx, email, password)
	if err != nil {
		log.Warn().Err(err).Msg("[AuthService.SignUp] CreateUser")
		return nil, translateError(err)
	}

	if err := as.provider.UpdateDisplayName(ctx, name); err != nil {
		log.Warn().Err(err).Str("uid", account.UID).Msg("[AuthService.SignUp] UpdateDisplayName")
		return nil, translateError(err)
	}
	account.DisplayName = name

	if err := as.provider.SendEmailVerification(ctx); err != nil {
		log.Warn().Err(err).Str("uid", account.UID).Msg("[AuthService.SignUp] SendEmailVerification")
		return nil, translateError(err)
	}

	if err := as.saveTokens(ctx, account); err != nil {
		return nil, err
	}
	log.Info().Str("uid", account.UID).Msg("[AuthService.SignUp] account created")
	return account, nil
}

// SignIn authenticates with email and password. Unverified accounts still get a session.
func (as *AuthService) SignIn(ctx context.Context, email, password string) (*Account, error) {
	account, err := as.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		log.Debug().Err(err).Msg("[AuthService.SignIn] SignInWithPassword")
		return nil, translateError(err)
	}
	if err := as.saveTokens(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// SignInWithGoogle runs the native Google flow and exchanges its ID token with the identity provider.
func (as *AuthService) SignInWithGoogle(ctx context.Context) (*Account, error) {
	if as.google == nil {
		return nil, apperrors.New(apperrors.ErrValidation, "", googleNotConfiguredMessage)
	}
	if err := as.google.HasPlayServices(ctx); err != nil {
		return nil, translateSocialError(err, GenericAuthErrorMessage)
	}

	idToken, err := as.google.SignIn(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("[AuthService.SignInWithGoogle] native sign-in")
		return nil, translateSocialError(err, GenericAuthErrorMessage)
	}
	if idToken == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "", missingGoogleTokenMessage)
	}

	return as.signInWithCredential(ctx, Credential{ProviderID: ProviderGoogle, IDToken: idToken})
}

// SignInWithApple exchanges an Apple identity token. rawNonce must be the unhashed nonce
// whose SHA-256 was handed to Apple.
func (as *AuthService) SignInWithApple(ctx context.Context, identityToken, rawNonce string) (*Account, error) {
	if identityToken == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "", missingAppleTokenMessage)
	}
	return as.signInWithCredential(ctx, Credential{ProviderID: ProviderApple, IDToken: identityToken, RawNonce: rawNonce})
}

// SignInWithAppleFlow generates a nonce, runs the native Apple flow with its hash and
// exchanges the result with the raw nonce.
func (as *AuthService) SignInWithAppleFlow(ctx context.Context, authorizer AppleAuthorizer) (*Account, error) {
	rawNonce, err := GenerateNonce(DefaultNonceLength)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrValidation, err, GenericAuthErrorMessage)
	}

	identityToken, err := authorizer.SignIn(ctx, HashNonce(rawNonce))
	if err != nil {
		log.Debug().Err(err).Msg("[AuthService.SignInWithAppleFlow] native sign-in")
		return nil, translateSocialError(err, GenericAuthErrorMessage)
	}
	if identityToken == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "", appleNoTokenMessage)
	}
	return as.SignInWithApple(ctx, identityToken, rawNonce)
}

func (as *AuthService) signInWithCredential(ctx context.Context, credential Credential) (*Account, error) {
	account, err := as.provider.SignInWithCredential(ctx, credential)
	if err != nil {
		log.Warn().Err(err).Str("provider", string(credential.ProviderID)).Msg("[AuthService.signInWithCredential] SignInWithCredential")
		return nil, translateError(err)
	}
	if err := as.saveTokens(ctx, account); err != nil {
		return nil, err
	}
	log.Info().Str("uid", account.UID).Str("provider", string(credential.ProviderID)).Msg("[AuthService.signInWithCredential] signed in")
	return account, nil
}

// Logout signs out of Google (best effort), clears the local session and signs out of the provider.
// The local session is cleared even when provider sign-out fails.
func (as *AuthService) Logout(ctx context.Context) error {
	if as.google != nil && as.provider.CurrentAccount() != nil {
		if err := as.google.SignOut(ctx); err != nil {
			log.Debug().Err(err).Msg("[AuthService.Logout] google sign-out ignored")
		}
	}

	clearErr := as.store.ClearSession(ctx)
	if clearErr != nil {
		log.Error().Err(clearErr).Msg("[AuthService.Logout] ClearSession")
	}

	if err := as.provider.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("[AuthService.Logout] provider SignOut")
		if clearErr == nil {
			return translateError(err)
		}
	}
	return clearErr
}

func (as *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	if err := as.provider.SendPasswordReset(ctx, email); err != nil {
		return translateError(err)
	}
	return nil
}

// ResendVerificationEmail sends a new verification email to the current account.
func (as *AuthService) ResendVerificationEmail(ctx context.Context) error {
	if as.provider.CurrentAccount() == nil {
		return apperrors.New(apperrors.ErrNoUser, "", noUserLoggedInMessage)
	}
	if err := as.provider.SendEmailVerification(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

// RefreshToken forces a new ID token from the provider and persists it with the current refresh token.
func (as *AuthService) RefreshToken(ctx context.Context) (string, error) {
	if as.provider.CurrentAccount() == nil {
		return "", apperrors.New(apperrors.ErrNoUser, "", noUserLoggedInMessage)
	}

	idToken, err := as.provider.IDToken(ctx, true)
	if err != nil {
		log.Warn().Err(err).Msg("[AuthService.RefreshToken] IDToken")
		return "", refreshError(err)
	}

	// The provider may rotate the refresh token while minting the new ID token.
	account := as.provider.CurrentAccount()
	if account == nil {
		return "", apperrors.New(apperrors.ErrNoUser, "", noUserLoggedInMessage)
	}
	if err := as.store.SaveSession(ctx, idToken, account.RefreshToken); err != nil {
		return "", err
	}
	return idToken, nil
}

// ReloadAndCheckEmailVerified reloads the current account and reports whether its email is verified.
// account is the caller's view of the current user; nil means the provider's current account.
// Any failure reports false.
func (as *AuthService) ReloadAndCheckEmailVerified(ctx context.Context, account *Account) bool {
	if account == nil {
		account = as.provider.CurrentAccount()
	}
	if account == nil {
		return false
	}

	reloaded, err := as.provider.Reload(ctx)
	if err != nil {
		log.Warn().Err(err).Str("uid", account.UID).Msg("[AuthService.ReloadAndCheckEmailVerified] Reload")
		return false
	}
	return reloaded.EmailVerified
}

// CurrentToken returns the provider's live ID token without forcing a refresh.
func (as *AuthService) CurrentToken(ctx context.Context) (string, bool) {
	if as.provider.CurrentAccount() == nil {
		return "", false
	}
	idToken, err := as.provider.IDToken(ctx, false)
	if err != nil {
		log.Debug().Err(err).Msg("[AuthService.CurrentToken] IDToken")
		return "", false
	}
	return idToken, idToken != ""
}

func (as *AuthService) CurrentAccount() *Account {
	return as.provider.CurrentAccount()
}

// saveTokens persists the current account's ID token and refresh token.
func (as *AuthService) saveTokens(ctx context.Context, account *Account) error {
	idToken, err := as.provider.IDToken(ctx, false)
	if err != nil {
		log.Error().Err(err).Str("uid", account.UID).Msg("[AuthService.saveTokens] IDToken")
		return apperrors.Newf(apperrors.ErrStorage, err, saveTokensFailedMessage)
	}
	if idToken == "" || account.RefreshToken == "" {
		return apperrors.New(apperrors.ErrStorage, "", saveTokensFailedMessage)
	}
	return as.store.SaveSession(ctx, idToken, account.RefreshToken)
}

func refreshError(err error) error {
	translated := translateError(err)
	var authErr *apperrors.AuthError
	if errors.As(translated, &authErr) && (errors.Is(authErr.Kind, apperrors.ErrNetwork) || errors.Is(authErr.Kind, apperrors.ErrNoUser)) {
		return translated
	}
	return &apperrors.AuthError{Kind: apperrors.ErrAuthenticationRequired, Message: refreshTokenFailedMessage, Err: err}
}
