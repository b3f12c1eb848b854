package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brainbox-app/brainbox/auth"
	"github.com/brainbox-app/brainbox/auth/providerfake"
	"github.com/brainbox-app/brainbox/internal/cli"
	"github.com/brainbox-app/brainbox/internal/config"
	"github.com/brainbox-app/brainbox/internal/jwttest"
	"github.com/brainbox-app/brainbox/token"
	tokenrepofake "github.com/brainbox-app/brainbox/token/repofake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.Session
	apiURL string
}

func (c testConfig) GetAPIURL() string { return c.apiURL }

// fakeBackend answers the user routes for whoever holds a bearer token.
type fakeBackend struct {
	lock     sync.Mutex
	requests []string
	name     string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	name := b.name
	b.lock.Unlock()

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/me":
		_, _ = w.Write([]byte(`{"id":"backend-id","email":"ana@example.com","name":"` + name + `"}`))
	case r.Method == http.MethodPatch:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": strings.TrimPrefix(r.URL.Path, "/users/"), "email": "ana@example.com", "name": body["name"]})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) Requests() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.requests...)
}

type testFixture struct {
	provider *providerfake.FakeProvider
	repo     *tokenrepofake.FakeTokenRepo
	backend  *fakeBackend
	cfg      testConfig
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	backend := &fakeBackend{name: "Backend Name"}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	return &testFixture{
		provider: providerfake.NewFakeProvider(),
		repo:     tokenrepofake.NewFakeTokenRepo(),
		backend:  backend,
		cfg:      testConfig{apiURL: server.URL},
	}
}

// run executes one CLI invocation with a freshly built app over the shared provider and token repo.
func (f *testFixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := cli.NewRootCommand(func(ctx context.Context) (*cli.App, error) {
		return cli.Build(ctx, f.cfg, f.provider, f.repo)
	})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSignUpSendsVerification(t *testing.T) {
	f := setupTestFixture(t)

	out, _, err := f.run(t, "signup", "--name", "Ana", "--email", "ana@example.com", "--password", "s3cret-pass")
	require.NoError(t, err)
	require.Contains(t, out, "[success] Verification email sent")
	require.Equal(t, []string{"ana@example.com"}, f.provider.VerificationEmailsSent())
	require.Contains(t, f.repo.Values(), token.KeyAccessToken)

	out, _, err = f.run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "route: onboarding")
	require.Contains(t, out, "status: awaiting_verification")
}

func TestSignInWhoAmIAndToken(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount("ana@example.com", "s3cret-pass", "Ana", true)

	out, _, err := f.run(t, "signin", "--email", "ana@example.com", "--password", "s3cret-pass")
	require.NoError(t, err)
	require.Contains(t, out, "[success] Signed in successfully")

	out, _, err = f.run(t, "whoami")
	require.NoError(t, err)
	var profile map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	require.Equal(t, "Ana", profile["name"])
	require.Equal(t, "backend-id", profile["id"])
	require.Contains(t, f.backend.Requests(), "GET /users/me")

	out, _, err = f.run(t, "token")
	require.NoError(t, err)
	stored, ok := token.NewStore(f.repo).AccessToken(context.Background())
	require.True(t, ok)
	require.Equal(t, stored, strings.TrimSpace(out))
}

func TestSignInFailureIsReportedOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount("ana@example.com", "s3cret-pass", "Ana", true)

	out, errOut, err := f.run(t, "signin", "--email", "ana@example.com", "--password", "wrong")
	require.Error(t, err)
	require.Empty(t, out)
	require.Contains(t, errOut, "[error] ")
	require.Equal(t, 1, strings.Count(errOut, "\n"))
}

func TestSignInUnverifiedWarns(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount("ana@example.com", "s3cret-pass", "Ana", false)

	out, _, err := f.run(t, "signin", "--email", "ana@example.com", "--password", "s3cret-pass")
	require.NoError(t, err)
	require.Contains(t, out, "[warning] Please verify your email first")

	out, _, err = f.run(t, "verify")
	require.NoError(t, err)
	require.Contains(t, out, "Email not verified yet")

	f.provider.SetEmailVerified("ana@example.com", true)
	out, _, err = f.run(t, "verify")
	require.NoError(t, err)
	require.Contains(t, out, "Email verified")
}

func TestSignInWithGoogleIDToken(t *testing.T) {
	f := setupTestFixture(t)

	googleIDToken := jwttest.Mint(jwt.MapClaims{"sub": "google-sub-1", "email": "ana@gmail.com"})

	out, _, err := f.run(t, "signin", "--google-id-token", googleIDToken)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in with Google successfully")

	credentials := f.provider.Credentials()
	require.Len(t, credentials, 1)
	require.Equal(t, auth.ProviderGoogle, credentials[0].ProviderID)
	require.Equal(t, googleIDToken, credentials[0].IDToken)
	require.True(t, token.NewStore(f.repo).IsAuthenticated(context.Background()))
}

func TestSignInNeedsCredentials(t *testing.T) {
	f := setupTestFixture(t)
	_, _, err := f.run(t, "signin", "--email", "ana@example.com")
	require.ErrorContains(t, err, "--password")
}

func TestSignOutClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount("ana@example.com", "s3cret-pass", "Ana", true)
	_, _, err := f.run(t, "signin", "--email", "ana@example.com", "--password", "s3cret-pass")
	require.NoError(t, err)

	out, _, err := f.run(t, "signout")
	require.NoError(t, err)
	require.Contains(t, out, "[info] Signed out successfully")
	require.NotContains(t, f.repo.Values(), token.KeyAccessToken)

	out, _, err = f.run(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")

	_, _, err = f.run(t, "token")
	require.Error(t, err)
}

func TestOnboardingThenStatus(t *testing.T) {
	f := setupTestFixture(t)

	out, _, err := f.run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "route: onboarding")

	_, _, err = f.run(t, "onboarding-complete")
	require.NoError(t, err)

	out, _, err = f.run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "route: sign-in")
	require.Contains(t, out, "status: unauthenticated")
}

func TestResetPasswordAndResend(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddAccount("ana@example.com", "s3cret-pass", "Ana", false)

	out, _, err := f.run(t, "reset-password", "--email", "ana@example.com")
	require.NoError(t, err)
	require.Contains(t, out, "Password reset email sent")
	require.Equal(t, []string{"ana@example.com"}, f.provider.PasswordResetsSent())

	_, _, err = f.run(t, "signin", "--email", "ana@example.com", "--password", "s3cret-pass")
	require.NoError(t, err)
	out, _, err = f.run(t, "resend-verification")
	require.NoError(t, err)
	require.Contains(t, out, "Verification email sent")
}

func TestProfileUpdate(t *testing.T) {
	f := setupTestFixture(t)
	account := f.provider.AddAccount("ana@example.com", "s3cret-pass", "Ana", true)
	_, _, err := f.run(t, "signin", "--email", "ana@example.com", "--password", "s3cret-pass")
	require.NoError(t, err)

	out, _, err := f.run(t, "profile", "update", "--name", "Ana B")
	require.NoError(t, err)
	require.Contains(t, out, "[success] User updated")
	require.Contains(t, out, `"name": "Ana B"`)
	require.Contains(t, f.backend.Requests(), "PATCH /users/"+account.UID)
}

func TestProfileNeedsSignIn(t *testing.T) {
	f := setupTestFixture(t)
	_, _, err := f.run(t, "profile", "delete")
	require.ErrorContains(t, err, "not signed in")
}

type restoringProvider struct {
	*providerfake.FakeProvider
	restored []string
}

func (p *restoringProvider) Restore(idToken, refreshToken string) error {
	p.restored = append(p.restored, idToken, refreshToken)
	return nil
}

func TestBuildRestoresPersistedSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	provider := &restoringProvider{FakeProvider: f.provider}

	app, err := cli.Build(ctx, f.cfg, provider, f.repo)
	require.NoError(t, err)
	app.Close()
	require.Empty(t, provider.restored)

	idToken := jwttest.Expiring("u1", time.Now().Add(time.Hour))
	require.NoError(t, token.NewStore(f.repo).SaveSession(ctx, idToken, "refresh-token"))
	app, err = cli.Build(ctx, f.cfg, provider, f.repo)
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, []string{idToken, "refresh-token"}, provider.restored)
}
