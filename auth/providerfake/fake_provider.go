package providerfake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brainbox-app/brainbox/auth"
	"github.com/brainbox-app/brainbox/internal/jwttest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenLifetime = time.Hour
	minPasswordLength    = 6
)

var _ auth.Provider = (*FakeProvider)(nil)

type fakeAccount struct {
	account  auth.Account
	password string
}

// FakeProvider is an in-memory identity provider. Failures can be injected per method name.
type FakeProvider struct {
	accounts          map[string]*fakeAccount // keyed by email, or provider:subject for social accounts
	current           *fakeAccount
	idToken           string
	errs              map[string]error
	calls             map[string]int
	verificationsSent []string
	passwordResets    []string
	credentials       []auth.Credential
	nowTime           func() time.Time
	tokenLifetime     time.Duration
	lock              sync.RWMutex
}

type Option func(*FakeProvider)

// WithNowTime sets the clock used for minted token iat/exp claims.
func WithNowTime(nowFunc func() time.Time) Option {
	return func(fp *FakeProvider) {
		fp.nowTime = nowFunc
	}
}

func WithTokenLifetime(lifetime time.Duration) Option {
	return func(fp *FakeProvider) {
		fp.tokenLifetime = lifetime
	}
}

func NewFakeProvider(options ...Option) *FakeProvider {
	fp := &FakeProvider{
		accounts:      make(map[string]*fakeAccount),
		errs:          make(map[string]error),
		calls:         make(map[string]int),
		nowTime:       time.Now,
		tokenLifetime: defaultTokenLifetime,
	}
	for _, opt := range options {
		opt(fp)
	}
	return fp
}

// AddAccount registers an email/password account without signing it in.
func (fp *FakeProvider) AddAccount(email, password, displayName string, verified bool) auth.Account {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	fa := fp.newAccount(email, password)
	fa.account.DisplayName = displayName
	fa.account.EmailVerified = verified
	return fa.account
}

// SetEmailVerified flips the verified flag, as clicking the emailed link would.
func (fp *FakeProvider) SetEmailVerified(email string, verified bool) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if fa, ok := fp.accounts[email]; ok {
		fa.account.EmailVerified = verified
	}
}

// Fail makes every later call to method return err. A nil err clears it.
func (fp *FakeProvider) Fail(method string, err error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err == nil {
		delete(fp.errs, method)
		return
	}
	fp.errs[method] = err
}

func (fp *FakeProvider) Calls(method string) int {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.calls[method]
}

func (fp *FakeProvider) VerificationEmailsSent() []string {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return append([]string(nil), fp.verificationsSent...)
}

func (fp *FakeProvider) PasswordResetsSent() []string {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return append([]string(nil), fp.passwordResets...)
}

func (fp *FakeProvider) Credentials() []auth.Credential {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return append([]auth.Credential(nil), fp.credentials...)
}

func (fp *FakeProvider) CreateUser(_ context.Context, email, password string) (*auth.Account, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enter("CreateUser"); err != nil {
		return nil, err
	}
	if !strings.Contains(email, "@") {
		return nil, &auth.ProviderError{Code: auth.CodeInvalidEmail}
	}
	if _, exists := fp.accounts[email]; exists {
		return nil, &auth.ProviderError{Code: auth.CodeEmailAlreadyInUse}
	}
	if len(password) < minPasswordLength {
		return nil, &auth.ProviderError{Code: auth.CodeWeakPassword, Message: "Password should be at least 6 characters"}
	}

	fa := fp.newAccount(email, password)
	fp.signInLocked(fa)
	return fp.copyCurrent(), nil
}

func (fp *FakeProvider) SignInWithPassword(_ context.Context, email, password string) (*auth.Account, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enter("SignInWithPassword"); err != nil {
		return nil, err
	}
	fa, ok := fp.accounts[email]
	if !ok {
		return nil, &auth.ProviderError{Code: auth.CodeUserNotFound}
	}
	if fa.password != password {
		return nil, &auth.ProviderError{Code: auth.CodeWrongPassword}
	}

	fp.signInLocked(fa)
	return fp.copyCurrent(), nil
}

// SignInWithCredential accepts any non-empty external token. The account is keyed on
// the token's provider and subject and is created on first use.
func (fp *FakeProvider) SignInWithCredential(_ context.Context, credential auth.Credential) (*auth.Account, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enter("SignInWithCredential"); err != nil {
		return nil, err
	}
	if credential.IDToken == "" {
		return nil, &auth.ProviderError{Code: auth.CodeInvalidCredential}
	}
	fp.credentials = append(fp.credentials, credential)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential.IDToken, claims); err != nil {
		return nil, &auth.ProviderError{Code: auth.CodeInvalidCredential, Err: err}
	}
	subject, _ := claims.GetSubject()
	email, _ := claims["email"].(string)

	key := string(credential.ProviderID) + ":" + subject
	fa, ok := fp.accounts[key]
	if !ok {
		fa = &fakeAccount{account: auth.Account{
			UID:           uuid.NewString(),
			Email:         email,
			EmailVerified: true,
			RefreshToken:  "refresh-" + uuid.NewString(),
		}}
		fp.accounts[key] = fa
	}

	fp.signInLocked(fa)
	return fp.copyCurrent(), nil
}

func (fp *FakeProvider) UpdateDisplayName(_ context.Context, displayName string) error {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enterWithUser("UpdateDisplayName"); err != nil {
		return err
	}
	fp.current.account.DisplayName = displayName
	return nil
}

func (fp *FakeProvider) SendEmailVerification(_ context.Context) error {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enterWithUser("SendEmailVerification"); err != nil {
		return err
	}
	fp.verificationsSent = append(fp.verificationsSent, fp.current.account.Email)
	return nil
}

func (fp *FakeProvider) SendPasswordReset(_ context.Context, email string) error {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enter("SendPasswordReset"); err != nil {
		return err
	}
	if _, ok := fp.accounts[email]; !ok {
		return &auth.ProviderError{Code: auth.CodeUserNotFound}
	}
	fp.passwordResets = append(fp.passwordResets, email)
	return nil
}

func (fp *FakeProvider) Reload(_ context.Context) (*auth.Account, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enterWithUser("Reload"); err != nil {
		return nil, err
	}
	return fp.copyCurrent(), nil
}

func (fp *FakeProvider) IDToken(_ context.Context, forceRefresh bool) (string, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enterWithUser("IDToken"); err != nil {
		return "", err
	}
	if forceRefresh || fp.idToken == "" {
		fp.idToken = fp.mint(fp.current.account)
	}
	return fp.idToken, nil
}

func (fp *FakeProvider) CurrentAccount() *auth.Account {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.copyCurrent()
}

func (fp *FakeProvider) SignOut(_ context.Context) error {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	if err := fp.enter("SignOut"); err != nil {
		return err
	}
	fp.current = nil
	fp.idToken = ""
	return nil
}

func (fp *FakeProvider) enter(method string) error {
	fp.calls[method]++
	return fp.errs[method]
}

func (fp *FakeProvider) enterWithUser(method string) error {
	if err := fp.enter(method); err != nil {
		return err
	}
	if fp.current == nil {
		return &auth.ProviderError{Code: auth.CodeNoCurrentUser}
	}
	return nil
}

func (fp *FakeProvider) newAccount(email, password string) *fakeAccount {
	fa := &fakeAccount{
		account: auth.Account{
			UID:          uuid.NewString(),
			Email:        email,
			RefreshToken: "refresh-" + uuid.NewString(),
		},
		password: password,
	}
	fp.accounts[email] = fa
	return fa
}

func (fp *FakeProvider) signInLocked(fa *fakeAccount) {
	fp.current = fa
	fp.idToken = fp.mint(fa.account)
}

func (fp *FakeProvider) mint(account auth.Account) string {
	now := fp.nowTime()
	return jwttest.Mint(jwt.MapClaims{
		"sub":            account.UID,
		"email":          account.Email,
		"email_verified": account.EmailVerified,
		"iat":            now.Unix(),
		"exp":            now.Add(fp.tokenLifetime).Unix(),
		"jti":            uuid.NewString(),
	})
}

func (fp *FakeProvider) copyCurrent() *auth.Account {
	if fp.current == nil {
		return nil
	}
	account := fp.current.account
	return &account
}
