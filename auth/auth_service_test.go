package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brainbox-app/brainbox/auth"
	"github.com/brainbox-app/brainbox/auth/providerfake"
	apperrors "github.com/brainbox-app/brainbox/internal/errors"
	"github.com/brainbox-app/brainbox/internal/jwttest"
	"github.com/brainbox-app/brainbox/token"
	tokenrepofake "github.com/brainbox-app/brainbox/token/repofake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testName     = "Ana"
	testEmail    = "ana@example.com"
	testPassword = "s3cret-pass"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeGoogle struct {
	playServicesErr error
	idToken         string
	signInErr       error
	signOutErr      error
	signOuts        int
}

func (g *fakeGoogle) HasPlayServices(context.Context) error { return g.playServicesErr }

func (g *fakeGoogle) SignIn(context.Context) (string, error) { return g.idToken, g.signInErr }

func (g *fakeGoogle) SignOut(context.Context) error {
	g.signOuts++
	return g.signOutErr
}

type fakeApple struct {
	hashedNonce   string
	identityToken string
	err           error
}

func (a *fakeApple) SignIn(_ context.Context, hashedNonce string) (string, error) {
	a.hashedNonce = hashedNonce
	return a.identityToken, a.err
}

// testFixture holds all test dependencies
type testFixture struct {
	provider *providerfake.FakeProvider
	repo     *tokenrepofake.FakeTokenRepo
	store    *token.Store
	google   *fakeGoogle
	service  *auth.AuthService
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	now := func() time.Time { return testNow }
	provider := providerfake.NewFakeProvider(providerfake.WithNowTime(now))
	repo := tokenrepofake.NewFakeTokenRepo()
	store := token.NewStore(repo, token.WithNowFunc(now))
	google := &fakeGoogle{}

	return &testFixture{
		provider: provider,
		repo:     repo,
		store:    store,
		google:   google,
		service:  auth.NewAuthService(provider, store, auth.WithGoogleSignIn(google)),
	}
}

func requireAuthError(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	require.Equal(t, message, err.Error())
}

func TestSignUp_CreatesAccountAndPersistsSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	account, err := f.service.SignUp(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testName, account.DisplayName)
	require.Equal(t, testEmail, account.Email)
	require.False(t, account.EmailVerified)
	require.Equal(t, []string{testEmail}, f.provider.VerificationEmailsSent())

	require.True(t, f.store.IsAuthenticated(ctx))
	session, err := f.store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, account.RefreshToken, session.RefreshToken)
	require.Equal(t, account.UID, token.Subject(session.AccessToken))
	require.Equal(t, testNow.Add(time.Hour).UnixMilli(), session.Expiry.UnixMilli())
}

func TestSignUp_MapsProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		message  string
	}{
		{name: "duplicate email", email: testEmail, password: testPassword, message: "This email is already registered"},
		{name: "invalid email", email: "not-an-email", password: testPassword, message: "Invalid email address"},
		{name: "weak password", email: "new@example.com", password: "123", message: "Password is too weak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.provider.AddAccount(testEmail, testPassword, testName, true)

			_, err := f.service.SignUp(context.Background(), testName, tt.email, tt.password)
			requireAuthError(t, err, apperrors.ErrValidation, tt.message)
			require.NotContains(t, err.Error(), "auth/")
			require.Empty(t, f.repo.Values())
		})
	}
}

func TestSignIn_UnverifiedAccountStillPersistsSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.provider.AddAccount(testEmail, testPassword, testName, false)

	account, err := f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.False(t, account.EmailVerified)
	require.True(t, f.store.IsAuthenticated(ctx))
}

func TestSignIn_WrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount(testEmail, testPassword, testName, true)

	ctx := context.Background()

	_, err := f.service.SignIn(ctx, testEmail, "wrong")
	requireAuthError(t, err, apperrors.ErrValidation, "Incorrect password")

	var authErr *apperrors.AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, auth.CodeWrongPassword, authErr.Code)
	require.False(t, apperrors.Retryable(err))

	require.False(t, f.store.IsAuthenticated(ctx))
	_, err = f.store.Session(ctx)
	require.ErrorIs(t, err, token.ErrNoSession)
}

func TestSignIn_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		message string
	}{
		{name: "user not found", err: &auth.ProviderError{Code: auth.CodeUserNotFound}, kind: apperrors.ErrValidation, message: "No account found with this email"},
		{name: "disabled", err: &auth.ProviderError{Code: auth.CodeUserDisabled}, kind: apperrors.ErrValidation, message: "This account has been disabled"},
		{name: "invalid credential", err: &auth.ProviderError{Code: auth.CodeInvalidCredential}, kind: apperrors.ErrValidation, message: "Invalid email or password"},
		{name: "too many requests", err: &auth.ProviderError{Code: auth.CodeTooManyRequests}, kind: apperrors.ErrValidation, message: "Too many attempts. Please try again later"},
		{name: "not allowed", err: &auth.ProviderError{Code: auth.CodeOperationNotAllowed}, kind: apperrors.ErrValidation, message: "Operation not allowed"},
		{name: "network", err: &auth.ProviderError{Code: auth.CodeNetworkRequestFailed}, kind: apperrors.ErrNetwork, message: "Network error. Please check your connection"},
		{name: "unknown code", err: &auth.ProviderError{Code: "auth/quota-exceeded"}, kind: apperrors.ErrValidation, message: auth.GenericAuthErrorMessage},
		{name: "deadline", err: context.DeadlineExceeded, kind: apperrors.ErrNetwork, message: "Network error. Please check your connection"},
		{name: "opaque", err: errors.New("boom"), kind: apperrors.ErrValidation, message: auth.GenericAuthErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.provider.Fail("SignInWithPassword", tt.err)

			_, err := f.service.SignIn(context.Background(), testEmail, testPassword)
			requireAuthError(t, err, tt.kind, tt.message)
		})
	}
}

func TestSignIn_StorageFailureIsStorageError(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount(testEmail, testPassword, testName, true)
	f.repo.SetApplyError(errors.New("keychain locked"))

	_, err := f.service.SignIn(context.Background(), testEmail, testPassword)
	requireAuthError(t, err, apperrors.ErrStorage, "Failed to save authentication tokens")
}

func TestSignInWithGoogle(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.google.idToken = jwttest.Mint(jwt.MapClaims{"sub": "google-123", "email": testEmail})

	account, err := f.service.SignInWithGoogle(ctx)
	require.NoError(t, err)
	require.Equal(t, testEmail, account.Email)
	require.True(t, f.store.IsAuthenticated(ctx))

	credentials := f.provider.Credentials()
	require.Len(t, credentials, 1)
	require.Equal(t, auth.ProviderGoogle, credentials[0].ProviderID)
	require.Equal(t, f.google.idToken, credentials[0].IDToken)
}

func TestSignInWithGoogle_NativeErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(g *fakeGoogle)
		kind    error
		message string
	}{
		{
			name:    "cancelled",
			prepare: func(g *fakeGoogle) { g.signInErr = &auth.SocialError{Code: auth.SocialCodeSignInCancelled} },
			kind:    apperrors.ErrCancelled,
			message: "Google sign-in was cancelled",
		},
		{
			name:    "cancelled android",
			prepare: func(g *fakeGoogle) { g.signInErr = &auth.SocialError{Code: auth.SocialCodeSignInCancelledAndroid} },
			kind:    apperrors.ErrCancelled,
			message: "Google sign-in was cancelled",
		},
		{
			name:    "in progress",
			prepare: func(g *fakeGoogle) { g.signInErr = &auth.SocialError{Code: auth.SocialCodeInProgress} },
			kind:    apperrors.ErrValidation,
			message: "Google sign-in is already in progress",
		},
		{
			name: "no play services",
			prepare: func(g *fakeGoogle) {
				g.playServicesErr = &auth.SocialError{Code: auth.SocialCodePlayServicesNotAvailable}
			},
			kind:    apperrors.ErrValidation,
			message: "Google Play Services not available",
		},
		{
			name:    "missing id token",
			prepare: func(g *fakeGoogle) {},
			kind:    apperrors.ErrValidation,
			message: "Failed to get Google ID token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			tt.prepare(f.google)

			_, err := f.service.SignInWithGoogle(context.Background())
			requireAuthError(t, err, tt.kind, tt.message)
			require.Zero(t, f.provider.Calls("SignInWithCredential"))
		})
	}
}

func TestSignInWithGoogle_NotConfigured(t *testing.T) {
	provider := providerfake.NewFakeProvider()
	service := auth.NewAuthService(provider, token.NewStore(tokenrepofake.NewFakeTokenRepo()))

	_, err := service.SignInWithGoogle(context.Background())
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSignInWithApple_RequiresIdentityToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.SignInWithApple(context.Background(), "", "nonce")
	requireAuthError(t, err, apperrors.ErrValidation, "Missing Apple identity token")
	require.Zero(t, f.provider.Calls("SignInWithCredential"))
}

func TestSignInWithAppleFlow_SendsHashedNonceAndForwardsRaw(t *testing.T) {
	f := setupTestFixture(t)
	apple := &fakeApple{identityToken: jwttest.Mint(jwt.MapClaims{"sub": "apple-1"})}

	_, err := f.service.SignInWithAppleFlow(context.Background(), apple)
	require.NoError(t, err)

	credentials := f.provider.Credentials()
	require.Len(t, credentials, 1)
	require.Equal(t, auth.ProviderApple, credentials[0].ProviderID)
	require.Len(t, credentials[0].RawNonce, auth.DefaultNonceLength)
	require.Equal(t, auth.HashNonce(credentials[0].RawNonce), apple.hashedNonce)
	require.NotEqual(t, credentials[0].RawNonce, apple.hashedNonce)
}

func TestSignInWithAppleFlow_Cancelled(t *testing.T) {
	f := setupTestFixture(t)
	apple := &fakeApple{err: &auth.SocialError{Code: auth.SocialCodeAppleRequestCanceled}}

	_, err := f.service.SignInWithAppleFlow(context.Background(), apple)
	require.ErrorIs(t, err, apperrors.ErrCancelled)
}

func TestLogout_ClearsSessionAndSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.provider.AddAccount(testEmail, testPassword, testName, true)
	_, err := f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.NoError(t, f.store.SetOnboardingSeen(ctx))

	f.google.signOutErr = errors.New("not signed in with google")
	require.NoError(t, f.service.Logout(ctx))

	require.Equal(t, 1, f.google.signOuts)
	require.False(t, f.store.IsAuthenticated(ctx))
	require.True(t, f.store.HasSeenOnboarding(ctx))
	require.Nil(t, f.service.CurrentAccount())
}

func TestLogout_ProviderFailureStillClearsLocalSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.provider.AddAccount(testEmail, testPassword, testName, true)
	_, err := f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	f.provider.Fail("SignOut", &auth.ProviderError{Code: auth.CodeNetworkRequestFailed})
	err = f.service.Logout(ctx)
	require.ErrorIs(t, err, apperrors.ErrNetwork)
	require.False(t, f.store.IsAuthenticated(ctx))
}

func TestResendVerificationEmail_NoUser(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.ResendVerificationEmail(context.Background())
	requireAuthError(t, err, apperrors.ErrNoUser, "No user logged in")
}

func TestSendPasswordReset(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount(testEmail, testPassword, testName, true)

	require.NoError(t, f.service.SendPasswordReset(context.Background(), testEmail))
	require.Equal(t, []string{testEmail}, f.provider.PasswordResetsSent())

	err := f.service.SendPasswordReset(context.Background(), "nobody@example.com")
	requireAuthError(t, err, apperrors.ErrValidation, "No account found with this email")
}

func TestRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.RefreshToken(ctx)
	require.ErrorIs(t, err, apperrors.ErrNoUser)

	f.provider.AddAccount(testEmail, testPassword, testName, true)
	_, err = f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	before, ok := f.store.AccessToken(ctx)
	require.True(t, ok)

	refreshed, err := f.service.RefreshToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before, refreshed)

	stored, ok := f.store.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, refreshed, stored)
}

func TestRefreshToken_ProviderFailure(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.provider.AddAccount(testEmail, testPassword, testName, true)
	_, err := f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	f.provider.Fail("IDToken", &auth.ProviderError{Code: auth.CodeUserTokenExpired})
	_, err = f.service.RefreshToken(ctx)
	requireAuthError(t, err, apperrors.ErrAuthenticationRequired, "Failed to refresh authentication token")

	f.provider.Fail("IDToken", &auth.ProviderError{Code: auth.CodeNetworkRequestFailed})
	_, err = f.service.RefreshToken(ctx)
	require.True(t, apperrors.Retryable(err))
}

func TestReloadAndCheckEmailVerified(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.False(t, f.service.ReloadAndCheckEmailVerified(ctx, nil))

	f.provider.AddAccount(testEmail, testPassword, testName, false)
	account, err := f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.False(t, f.service.ReloadAndCheckEmailVerified(ctx, account))

	f.provider.SetEmailVerified(testEmail, true)
	require.True(t, f.service.ReloadAndCheckEmailVerified(ctx, account))

	f.provider.Fail("Reload", &auth.ProviderError{Code: auth.CodeNetworkRequestFailed})
	require.False(t, f.service.ReloadAndCheckEmailVerified(ctx, nil))
}

func TestCurrentToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, ok := f.service.CurrentToken(ctx)
	require.False(t, ok)

	f.provider.AddAccount(testEmail, testPassword, testName, true)
	_, err := f.service.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	liveToken, ok := f.service.CurrentToken(ctx)
	require.True(t, ok)
	stored, _ := f.store.AccessToken(ctx)
	require.Equal(t, stored, liveToken)

	f.provider.Fail("IDToken", errors.New("offline"))
	_, ok = f.service.CurrentToken(ctx)
	require.False(t, ok)
}
