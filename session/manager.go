package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/brainbox-app/brainbox/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshTimeout = 20 * time.Second
	refreshKey            = "refresh"
	noTokenMessage        = "No authentication token available"
)

// TokenSource is the identity provider side of token resolution.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, error)
}

// TokenCache is the persisted side of token resolution. AccessToken never returns an expired token.
type TokenCache interface {
	AccessToken(ctx context.Context) (string, bool)
	IsTokenExpired(ctx context.Context) bool
}

// Manager resolves the bearer token for outbound requests. It is the only path callers
// should use to build authenticated headers.
type Manager struct {
	source         TokenSource
	cache          TokenCache
	refreshTimeout time.Duration
	group          singleflight.Group
}

type ManagerOption func(*Manager)

// WithRefreshTimeout bounds a forced refresh. The refresh keeps running if the caller gives up.
func WithRefreshTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshTimeout = timeout
	}
}

func NewManager(source TokenSource, cache TokenCache, options ...ManagerOption) *Manager {
	m := &Manager{
		source:         source,
		cache:          cache,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// AuthorizationHeader returns the bearer Authorization and JSON Content-Type headers.
func (m *Manager) AuthorizationHeader(ctx context.Context) (http.Header, error) {
	bearer, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+bearer)
	header.Set("Content-Type", "application/json")
	return header, nil
}

// Token resolves a usable token: the provider's live token, then the cached token,
// then one forced refresh. There are no retries beyond that.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if live, ok := m.source.CurrentToken(ctx); ok {
		return live, nil
	}

	cached, ok := m.cache.AccessToken(ctx)
	if ok && !m.cache.IsTokenExpired(ctx) {
		return cached, nil
	}

	log.Debug().Bool("cached", ok).Msg("[Manager.Token] forcing refresh")
	refreshed, err := m.refresh(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		log.Warn().Err(err).Msg("[Manager.Token] refresh failed")
		return "", apperrors.Newf(apperrors.ErrAuthenticationRequired, err, noTokenMessage)
	}
	if refreshed == "" {
		return "", apperrors.New(apperrors.ErrAuthenticationRequired, "", noTokenMessage)
	}
	return refreshed, nil
}

// refresh shares one in-flight refresh between concurrent callers. The refresh runs on a
// context detached from the caller so a caller leaving early does not abort it for the others.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	results := m.group.DoChan(refreshKey, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.source.RefreshToken(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Val.(string), nil
	}
}
