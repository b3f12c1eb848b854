package clientstate

import (
	"context"
	"errors"
	"time"

	"github.com/brainbox-app/brainbox/auth"
	apperrors "github.com/brainbox-app/brainbox/internal/errors"
	"github.com/brainbox-app/brainbox/userapi"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultResendInterval = 30 * time.Second
	signUpToastDuration   = 5 * time.Second
)

// Route is the screen the app shell should show after Initialize.
type Route string

const (
	RouteOnboarding  Route = "onboarding"
	RouteSignIn      Route = "sign-in"
	RouteVerifyEmail Route = "verify-email"
	RouteHome        Route = "home"
)

var ErrResendThrottled = apperrors.New(apperrors.ErrValidation, "", "Please wait before requesting another verification email")

// Auth is the identity side the store orchestrates. *auth.AuthService satisfies it.
type Auth interface {
	SignUp(ctx context.Context, name, email, password string) (*auth.Account, error)
	SignIn(ctx context.Context, email, password string) (*auth.Account, error)
	SignInWithGoogle(ctx context.Context) (*auth.Account, error)
	SignInWithAppleFlow(ctx context.Context, authorizer auth.AppleAuthorizer) (*auth.Account, error)
	Logout(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	ResendVerificationEmail(ctx context.Context) error
	ReloadAndCheckEmailVerified(ctx context.Context, account *auth.Account) bool
	CurrentAccount() *auth.Account
}

// Users is the backend user service. *userapi.Client satisfies it.
type Users interface {
	GetCurrentUser(ctx context.Context) (*userapi.User, error)
	CreateUser(ctx context.Context, req userapi.CreateUserRequest) (*userapi.User, error)
	UpdateUser(ctx context.Context, id string, req userapi.UpdateUserRequest) (*userapi.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Onboarding is the persisted first-launch flag. *token.Store satisfies it.
type Onboarding interface {
	HasSeenOnboarding(ctx context.Context) bool
	SetOnboardingSeen(ctx context.Context) error
}

// Store is the observable client session state plus the flows that drive it.
// Every flow holds the loading flag for its whole duration and toasts exactly once on failure.
type Store struct {
	*observable
	auth          Auth
	users         Users
	onboarding    Onboarding
	resendLimiter *rate.Limiter
}

type StoreOption func(*storeOptions)

type storeOptions struct {
	toastDuration  time.Duration
	resendInterval time.Duration
}

func WithToastDuration(duration time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.toastDuration = duration
	}
}

// WithResendInterval sets the minimum gap between verification email resends.
func WithResendInterval(interval time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.resendInterval = interval
	}
}

func NewStore(authService Auth, users Users, onboarding Onboarding, options ...StoreOption) *Store {
	opts := storeOptions{
		toastDuration:  DefaultToastDuration,
		resendInterval: DefaultResendInterval,
	}
	for _, opt := range options {
		opt(&opts)
	}
	return &Store{
		observable:    newObservable(opts.toastDuration),
		auth:          authService,
		users:         users,
		onboarding:    onboarding,
		resendLimiter: rate.NewLimiter(rate.Every(opts.resendInterval), 1),
	}
}

func (s *Store) SignUp(ctx context.Context, name, email, password string) error {
	done := s.beginLoading()
	defer done()

	account, err := s.auth.SignUp(ctx, name, email, password)
	if err != nil {
		return s.fail("[Store.SignUp]", err, "Sign up failed")
	}

	profile := profileFromAccount(account)
	if profile.Name == "" {
		profile.Name = name
	}
	s.setSession(profile, StatusAwaitingVerification)
	s.SetToast("Verification email sent. Please check your inbox.", ToastSuccess, signUpToastDuration)
	return nil
}

// SignIn signs in with email and password. An unverified account is left awaiting
// verification with a partial profile and a warning, and is not an error.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	done := s.beginLoading()
	defer done()

	account, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return s.fail("[Store.SignIn]", err, "Sign in failed")
	}

	if !account.EmailVerified {
		s.setSession(&Profile{ID: account.UID, Email: account.Email}, StatusAwaitingVerification)
		s.SetToast("Please verify your email first", ToastWarning, 0)
		return nil
	}

	s.loadProfile(ctx, account)
	s.SetToast("Signed in successfully", ToastSuccess, 0)
	return nil
}

func (s *Store) SignInWithGoogle(ctx context.Context) error {
	done := s.beginLoading()
	defer done()

	account, err := s.auth.SignInWithGoogle(ctx)
	if err != nil {
		return s.fail("[Store.SignInWithGoogle]", err, "Google sign-in failed")
	}
	s.loadProfile(ctx, account)
	s.SetToast("Signed in with Google successfully", ToastSuccess, 0)
	return nil
}

func (s *Store) SignInWithApple(ctx context.Context, authorizer auth.AppleAuthorizer) error {
	done := s.beginLoading()
	defer done()

	account, err := s.auth.SignInWithAppleFlow(ctx, authorizer)
	if err != nil {
		return s.fail("[Store.SignInWithApple]", err, "Apple sign-in failed")
	}
	s.loadProfile(ctx, account)
	s.SetToast("Signed in with Apple successfully", ToastSuccess, 0)
	return nil
}

// SignOut always drops the local profile. The local session is gone even when provider sign-out fails.
func (s *Store) SignOut(ctx context.Context) error {
	done := s.beginLoading()
	defer done()

	err := s.auth.Logout(ctx)
	s.setSession(nil, StatusUnauthenticated)
	if err != nil {
		return s.fail("[Store.SignOut]", err, "Sign out failed")
	}
	s.SetToast("Signed out successfully", ToastInfo, 0)
	return nil
}

// CheckEmailVerified reloads the verified flag. Once verified, the profile is fetched and
// the store becomes authenticated. Failures report false.
func (s *Store) CheckEmailVerified(ctx context.Context) bool {
	done := s.beginLoading()
	defer done()

	account := s.auth.CurrentAccount()
	if account == nil {
		s.SetToast("Failed to check verification", ToastError, 0)
		return false
	}
	if !s.auth.ReloadAndCheckEmailVerified(ctx, account) {
		return false
	}

	account.EmailVerified = true
	s.loadProfile(ctx, account)
	return true
}

func (s *Store) SendPasswordReset(ctx context.Context, email string) error {
	done := s.beginLoading()
	defer done()

	if err := s.auth.SendPasswordReset(ctx, email); err != nil {
		return s.fail("[Store.SendPasswordReset]", err, "Password reset failed")
	}
	s.SetToast("Password reset email sent. Please check your inbox.", ToastSuccess, signUpToastDuration)
	return nil
}

// ResendVerificationEmail is throttled to one send per resend interval.
func (s *Store) ResendVerificationEmail(ctx context.Context) error {
	done := s.beginLoading()
	defer done()

	if !s.resendLimiter.Allow() {
		s.SetToast(ErrResendThrottled.Message, ToastWarning, 0)
		return ErrResendThrottled
	}
	if err := s.auth.ResendVerificationEmail(ctx); err != nil {
		return s.fail("[Store.ResendVerificationEmail]", err, "Failed to resend verification email")
	}
	s.SetToast("Verification email sent. Please check your inbox.", ToastSuccess, signUpToastDuration)
	return nil
}

// FetchCurrentUser merges the backend profile with the provider account. The provider's
// display name wins. When the backend fetch fails the provider-only profile is used.
// Returns nil when nobody is signed in.
func (s *Store) FetchCurrentUser(ctx context.Context) *Profile {
	done := s.beginLoading()
	defer done()

	account := s.auth.CurrentAccount()
	if account == nil {
		s.setSession(nil, StatusUnauthenticated)
		return nil
	}
	return s.loadProfile(ctx, account)
}

func (s *Store) CreateUser(ctx context.Context, req userapi.CreateUserRequest) (*Profile, error) {
	done := s.beginLoading()
	defer done()

	user, err := s.users.CreateUser(ctx, req)
	if err != nil {
		return nil, s.fail("[Store.CreateUser]", err, "Create user failed")
	}
	profile := profileFromUser(user)
	s.SetUser(profile)
	s.SetToast("User created", ToastSuccess, 0)
	return profile, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, req userapi.UpdateUserRequest) (*Profile, error) {
	done := s.beginLoading()
	defer done()

	user, err := s.users.UpdateUser(ctx, id, req)
	if err != nil {
		return nil, s.fail("[Store.UpdateUser]", err, "Update user failed")
	}
	profile := profileFromUser(user)
	s.SetUser(profile)
	s.SetToast("User updated", ToastSuccess, 0)
	return profile, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	done := s.beginLoading()
	defer done()

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return s.fail("[Store.DeleteUser]", err, "Delete user failed")
	}
	s.SetUser(nil)
	s.SetToast("User deleted", ToastSuccess, 0)
	return nil
}

// Initialize resolves the boot route: onboarding on first launch, then sign-in,
// then email verification, then home.
func (s *Store) Initialize(ctx context.Context) Route {
	done := s.beginLoading()
	defer done()

	firstLaunch := !s.onboarding.HasSeenOnboarding(ctx)

	route := RouteHome
	account := s.auth.CurrentAccount()
	switch {
	case account == nil:
		s.setSession(nil, StatusUnauthenticated)
		route = RouteSignIn
	case !s.auth.ReloadAndCheckEmailVerified(ctx, account):
		s.setSession(&Profile{ID: account.UID, Email: account.Email, Name: account.DisplayName}, StatusAwaitingVerification)
		route = RouteVerifyEmail
	default:
		account.EmailVerified = true
		s.loadProfile(ctx, account)
	}

	if firstLaunch {
		return RouteOnboarding
	}
	return route
}

// CompleteOnboarding records that the onboarding screens were shown.
func (s *Store) CompleteOnboarding(ctx context.Context) error {
	if err := s.onboarding.SetOnboardingSeen(ctx); err != nil {
		log.Error().Err(err).Msg("[Store.CompleteOnboarding] SetOnboardingSeen")
		return err
	}
	return nil
}

// loadProfile fetches and merges the backend profile for account and publishes it.
func (s *Store) loadProfile(ctx context.Context, account *auth.Account) *Profile {
	status := StatusAuthenticated
	if !account.EmailVerified {
		status = StatusAwaitingVerification
	}

	profile := profileFromAccount(account)
	if s.users != nil {
		user, err := s.users.GetCurrentUser(ctx)
		if err == nil {
			profile = profileFromUser(user)
			if account.DisplayName != "" {
				profile.Name = account.DisplayName
			}
		} else {
			log.Warn().Err(err).Str("uid", account.UID).Msg("[Store.loadProfile] backend profile unavailable, using provider profile")
		}
	}

	s.setSession(profile, status)
	copied := *profile
	return &copied
}

// fail emits the single failure toast for a flow and hands the error back.
func (s *Store) fail(op string, err error, fallback string) error {
	toastType := ToastError
	if errors.Is(err, apperrors.ErrCancelled) {
		toastType = ToastInfo
	}
	log.Warn().Err(err).Msg(op)
	s.SetToast(toastMessage(err, fallback), toastType, 0)
	return err
}

// toastMessage only surfaces messages written for users. Anything else gets the fallback.
func toastMessage(err error, fallback string) string {
	var authErr *apperrors.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}

func profileFromAccount(account *auth.Account) *Profile {
	return &Profile{ID: account.UID, Email: account.Email, Name: account.DisplayName}
}

func profileFromUser(user *userapi.User) *Profile {
	return &Profile{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
