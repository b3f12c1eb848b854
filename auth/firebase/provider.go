// Package firebase implements auth.Provider on the Firebase Identity Toolkit and Secure Token REST APIs.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/brainbox-app/brainbox/auth"
	"github.com/brainbox-app/brainbox/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL     = "https://securetoken.googleapis.com/v1/token"

	// tokenRefreshWindow is how early a cached ID token is replaced.
	tokenRefreshWindow = 5 * time.Minute
	defaultIDTokenTTL  = time.Hour
	idpRequestURI      = "http://localhost"
	maxErrorBodyBytes  = 64 << 10
)

var ErrAPIKeyRequired = errors.New("firebase api key required")

// Provider keeps the current account in memory the way the client SDKs do.
type Provider struct {
	apiKey      string
	identityURL string
	tokenURL    string
	httpClient  *http.Client
	nowTime     func() time.Time

	lock    sync.RWMutex
	current *auth.Account
	idToken string
	expiry  time.Time
}

var _ auth.Provider = (*Provider)(nil)

type Option func(*Provider)

func WithIdentityToolkitURL(baseURL string) Option {
	return func(p *Provider) {
		p.identityURL = baseURL
	}
}

func WithSecureTokenURL(tokenURL string) Option {
	return func(p *Provider) {
		p.tokenURL = tokenURL
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

func New(apiKey string, options ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	p := &Provider{
		apiKey:      apiKey,
		identityURL: DefaultIdentityToolkitURL,
		tokenURL:    DefaultSecureTokenURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// authResponse is the shared shape of signUp, signInWithPassword, signInWithIdp and update responses.
type authResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"users"`
}

func (p *Provider) CreateUser(ctx context.Context, email, password string) (*auth.Account, error) {
	var resp authResponse
	err := p.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.signedIn(resp), nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Account, error) {
	var resp authResponse
	err := p.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	// signInWithPassword omits emailVerified, so look it up before reporting the account.
	account := p.signedIn(resp)
	if reloaded, err := p.Reload(ctx); err == nil {
		account = reloaded
	} else {
		log.Warn().Err(err).Str("uid", account.UID).Msg("[firebase.SignInWithPassword] lookup after sign-in")
	}
	return account, nil
}

func (p *Provider) SignInWithCredential(ctx context.Context, credential auth.Credential) (*auth.Account, error) {
	postBody := url.Values{}
	postBody.Set("id_token", credential.IDToken)
	postBody.Set("providerId", string(credential.ProviderID))
	if credential.RawNonce != "" {
		postBody.Set("nonce", credential.RawNonce)
	}

	var resp authResponse
	err := p.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          idpRequestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.signedIn(resp), nil
}

func (p *Provider) UpdateDisplayName(ctx context.Context, displayName string) error {
	idToken, err := p.IDToken(ctx, false)
	if err != nil {
		return err
	}

	var resp authResponse
	err = p.call(ctx, "accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.current != nil {
		p.current.DisplayName = displayName
		if resp.IDToken != "" {
			p.setTokenLocked(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
		}
	}
	return nil
}

func (p *Provider) SendEmailVerification(ctx context.Context) error {
	idToken, err := p.IDToken(ctx, false)
	if err != nil {
		return err
	}
	return p.call(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, nil)
}

func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	return p.call(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// Reload fetches the current account's profile, including the verified flag.
func (p *Provider) Reload(ctx context.Context) (*auth.Account, error) {
	idToken, err := p.IDToken(ctx, false)
	if err != nil {
		return nil, err
	}

	var resp lookupResponse
	if err := p.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, &auth.ProviderError{Code: auth.CodeUserNotFound}
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.current == nil {
		return nil, &auth.ProviderError{Code: auth.CodeNoCurrentUser}
	}
	user := resp.Users[0]
	p.current.Email = user.Email
	p.current.DisplayName = user.DisplayName
	p.current.EmailVerified = user.EmailVerified
	account := *p.current
	return &account, nil
}

// IDToken returns the cached ID token, refreshing through the Secure Token endpoint when
// forced or when the cached token is within five minutes of expiry.
func (p *Provider) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	p.lock.RLock()
	if p.current == nil {
		p.lock.RUnlock()
		return "", &auth.ProviderError{Code: auth.CodeNoCurrentUser}
	}
	idToken, expiry, refreshToken := p.idToken, p.expiry, p.current.RefreshToken
	p.lock.RUnlock()

	if !forceRefresh && idToken != "" && p.nowTime().Before(expiry.Add(-tokenRefreshWindow)) {
		return idToken, nil
	}
	return p.refresh(ctx, refreshToken)
}

func (p *Provider) CurrentAccount() *auth.Account {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.current == nil {
		return nil
	}
	account := *p.current
	return &account
}

func (p *Provider) SignOut(_ context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.current = nil
	p.idToken = ""
	p.expiry = time.Time{}
	return nil
}

// Restore rebuilds the current account from a persisted session, as the SDKs do on app start.
func (p *Provider) Restore(idToken, refreshToken string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return fmt.Errorf("[firebase.Restore] ParseUnverified: %w", err)
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return fmt.Errorf("[firebase.Restore] %w", token.ErrMalformedToken)
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	verified, _ := claims["email_verified"].(bool)

	expiry, err := token.ExpiryFromToken(idToken, p.nowTime(), defaultIDTokenTTL)
	if err != nil {
		return fmt.Errorf("[firebase.Restore] ExpiryFromToken: %w", err)
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.current = &auth.Account{
		UID:           subject,
		Email:         email,
		DisplayName:   name,
		EmailVerified: verified,
		RefreshToken:  refreshToken,
	}
	p.idToken = idToken
	p.expiry = expiry
	return nil
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (string, error) {
	config := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.tokenURL + "?key=" + url.QueryEscape(p.apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	refreshed, err := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return "", errorFromBody(status, retrieveErr.Body)
		}
		return "", transportError(err)
	}

	idToken, _ := refreshed.Extra("id_token").(string)
	if idToken == "" {
		idToken = refreshed.AccessToken
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.current == nil {
		return "", &auth.ProviderError{Code: auth.CodeNoCurrentUser}
	}
	p.idToken = idToken
	p.expiry = refreshed.Expiry
	if p.expiry.IsZero() {
		p.expiry = p.nowTime().Add(defaultIDTokenTTL)
	}
	if refreshed.RefreshToken != "" {
		p.current.RefreshToken = refreshed.RefreshToken
	}
	log.Debug().Str("uid", p.current.UID).Time("expiry", p.expiry).Msg("[firebase.refresh] id token refreshed")
	return idToken, nil
}

func (p *Provider) signedIn(resp authResponse) *auth.Account {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.current = &auth.Account{
		UID:           resp.LocalID,
		Email:         resp.Email,
		DisplayName:   resp.DisplayName,
		EmailVerified: resp.EmailVerified,
	}
	p.setTokenLocked(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	account := *p.current
	return &account
}

func (p *Provider) setTokenLocked(idToken, refreshToken, expiresIn string) {
	p.idToken = idToken
	if refreshToken != "" {
		p.current.RefreshToken = refreshToken
	}
	ttl := defaultIDTokenTTL
	if seconds, err := strconv.Atoi(expiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	p.expiry = p.nowTime().Add(ttl)
}

// call POSTs a JSON body to an Identity Toolkit method and decodes the response into out.
func (p *Provider) call(ctx context.Context, method string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("[firebase.call] json.Marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", p.identityURL, method, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("[firebase.call] NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		log.Debug().Int("status", resp.StatusCode).Str("method", method).Msg("[firebase.call] request rejected")
		return errorFromBody(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("[firebase.call] decode %s: %w", method, err)
	}
	return nil
}
