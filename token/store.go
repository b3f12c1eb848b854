package token

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/brainbox-app/brainbox/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultTokenLifetime = time.Hour
	defaultExpiryBuffer  = 5 * time.Minute
	onboardingSeenValue  = "1"
)

// ErrNoSession is returned by Session when the stored record is absent or incomplete.
var ErrNoSession = errors.New("no valid session")

// Session is the persisted token record. All four fields are written together.
type Session struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// Store persists the session token record and the onboarding flag.
type Store struct {
	repo            Repo
	writeLock       sync.Mutex // serializes batches so concurrent saves never interleave
	nowFunc         func() time.Time
	expiryBuffer    time.Duration
	defaultLifetime time.Duration
}

type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// WithExpiryBuffer sets how long before the real expiry a token is treated as expired.
func WithExpiryBuffer(buffer time.Duration) StoreOption {
	return func(s *Store) {
		s.expiryBuffer = buffer
	}
}

// WithDefaultLifetime sets the lifetime assumed for tokens without an exp claim.
func WithDefaultLifetime(lifetime time.Duration) StoreOption {
	return func(s *Store) {
		s.defaultLifetime = lifetime
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:            repo,
		nowFunc:         time.Now,
		expiryBuffer:    defaultExpiryBuffer,
		defaultLifetime: defaultTokenLifetime,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SaveSession decodes the access token's expiry and persists the full session record in one batch.
// The ID token is stored with the access token's value.
func (s *Store) SaveSession(ctx context.Context, accessToken, refreshToken string) error {
	log.Debug().Int("access_token_len", len(accessToken)).Int("refresh_token_len", len(refreshToken)).Msg("[Store.SaveSession] saving session")

	if refreshToken == "" {
		return apperrors.New(apperrors.ErrStorage, "", "Failed to save authentication tokens")
	}
	expiry, err := ExpiryFromToken(accessToken, s.nowFunc(), s.defaultLifetime)
	if err != nil {
		return apperrors.Newf(apperrors.ErrStorage, err, "Failed to save authentication tokens")
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	err = s.repo.Apply(ctx, Batch{Set: map[string]string{
		KeyAccessToken:  accessToken,
		KeyRefreshToken: refreshToken,
		KeyIDToken:      accessToken,
		KeyTokenExpiry:  strconv.FormatInt(expiry.UnixMilli(), 10),
	}})
	if err != nil {
		log.Error().Err(err).Msg("[Store.SaveSession] failed writing session")
		return apperrors.Newf(apperrors.ErrStorage, err, "Failed to save authentication tokens")
	}

	log.Debug().Time("expiry", expiry).Msg("[Store.SaveSession] session saved")
	return nil
}

// AccessToken returns the stored access token only when the full session record is
// present and the token is not expired.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	session, err := s.Session(ctx)
	if err != nil {
		return "", false
	}
	if !s.nowFunc().Before(session.Expiry.Add(-s.expiryBuffer)) {
		log.Debug().Msg("[Store.AccessToken] stored token expired")
		return "", false
	}
	return session.AccessToken, true
}

// RefreshToken returns the stored refresh token without any expiry check.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.read(ctx, KeyRefreshToken)
}

// IDToken returns the stored ID token without any expiry check.
func (s *Store) IDToken(ctx context.Context) (string, bool) {
	return s.read(ctx, KeyIDToken)
}

// IsTokenExpired reports whether now is past the stored expiry minus the safety buffer.
// A missing or unreadable expiry counts as expired.
func (s *Store) IsTokenExpired(ctx context.Context) bool {
	expiry, ok := s.expiry(ctx)
	if !ok {
		return true
	}
	return !s.nowFunc().Before(expiry.Add(-s.expiryBuffer))
}

// IsAuthenticated reports whether a complete session with a non-expired access token is stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// Session returns the complete record, or ErrNoSession when any of the four entries is missing.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	accessToken, okAccess := s.read(ctx, KeyAccessToken)
	refreshToken, okRefresh := s.read(ctx, KeyRefreshToken)
	idToken, okID := s.read(ctx, KeyIDToken)
	expiry, okExpiry := s.expiry(ctx)
	if !okAccess || !okRefresh || !okID || !okExpiry {
		return nil, ErrNoSession
	}
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IDToken:      idToken,
		Expiry:       expiry,
	}, nil
}

// ClearSession deletes the four session entries. The onboarding flag is kept.
func (s *Store) ClearSession(ctx context.Context) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.repo.Apply(ctx, Batch{Delete: SessionKeys}); err != nil {
		log.Error().Err(err).Msg("[Store.ClearSession] failed clearing session")
		return apperrors.Newf(apperrors.ErrStorage, err, "Failed to clear authentication tokens")
	}
	return nil
}

func (s *Store) SetOnboardingSeen(ctx context.Context) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.repo.Apply(ctx, Batch{Set: map[string]string{KeyOnboardingSeen: onboardingSeenValue}}); err != nil {
		return apperrors.Newf(apperrors.ErrStorage, err, "Failed to save onboarding state")
	}
	return nil
}

func (s *Store) HasSeenOnboarding(ctx context.Context) bool {
	value, ok := s.read(ctx, KeyOnboardingSeen)
	return ok && value == onboardingSeenValue
}

func (s *Store) expiry(ctx context.Context) (time.Time, bool) {
	raw, ok := s.read(ctx, KeyTokenExpiry)
	if !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn().Err(err).Msg("[Store.expiry] corrupt expiry entry")
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// read treats storage failures as absence; callers at this layer cannot act on them.
func (s *Store) read(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("[Store.read] storage read failed")
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
