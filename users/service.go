package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultCacheTTL = 5 * time.Minute

// Cache is the read-through store for user records. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo     Repo
	cache    Cache
	cacheTTL time.Duration
	nowTime  func() time.Time
}

type ServiceOption func(*Service)

func WithCache(cache Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithNowTime(nowTime func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowTime
	}
}

func NewService(repo Repo, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		cacheTTL: DefaultCacheTTL,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func CacheKey(id string) string {
	return "user:" + id
}

type CreateParams struct {
	ID       string
	Email    string
	Name     string
	Password string
}

// UpdateParams leaves a field unchanged when it is nil.
type UpdateParams struct {
	Email    *string
	Name     *string
	Password *string
}

// Get returns the user, served from the cache when present.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if user, ok := s.cached(ctx, id); ok {
		return user, nil
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("[users.Service.Get] %w", err)
	}
	s.store(ctx, user)
	return user, nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*User, error) {
	now := s.nowTime().UTC()
	user := &User{
		ID:        params.ID,
		Email:     normalizeEmail(params.Email),
		Name:      strings.TrimSpace(params.Name),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if params.Password != "" {
		hash, err := HashPassword(params.Password)
		if err != nil {
			return nil, fmt.Errorf("[users.Service.Create] HashPassword: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("[users.Service.Create] %w", err)
	}
	log.Info().Str("uid", user.ID).Msg("[users.Service.Create] user created")
	return user, nil
}

func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("[users.Service.Update] %w", err)
	}

	if params.Email != nil {
		email := normalizeEmail(*params.Email)
		if email != user.Email {
			existing, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != id:
				return nil, fmt.Errorf("[users.Service.Update] %w", ErrEmailTaken)
			case err != nil && !errors.Is(err, ErrUserNotFound):
				return nil, fmt.Errorf("[users.Service.Update] GetByEmail: %w", err)
			}
			user.Email = email
		}
	}
	if params.Name != nil {
		user.Name = strings.TrimSpace(*params.Name)
	}
	if params.Password != nil {
		hash, err := HashPassword(*params.Password)
		if err != nil {
			return nil, fmt.Errorf("[users.Service.Update] HashPassword: %w", err)
		}
		user.PasswordHash = hash
	}
	now := s.nowTime().UTC()
	user.UpdatedAt = &now

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("[users.Service.Update] %w", err)
	}
	s.invalidate(ctx, id)
	return user, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("[users.Service.Delete] %w", err)
	}
	s.invalidate(ctx, id)
	log.Info().Str("uid", id).Msg("[users.Service.Delete] user deleted")
	return nil
}

// Cache failures degrade to the repo and are only logged.

func (s *Service) cached(ctx context.Context, id string) (*User, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, CacheKey(id))
	if err != nil {
		log.Warn().Err(err).Str("uid", id).Msg("[users.Service.cached] cache get")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		log.Warn().Err(err).Str("uid", id).Msg("[users.Service.cached] decode")
		return nil, false
	}
	return &user, true
}

func (s *Service) store(ctx context.Context, user *User) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CacheKey(user.ID), data, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("uid", user.ID).Msg("[users.Service.store] cache set")
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKey(id)); err != nil {
		log.Warn().Err(err).Str("uid", id).Msg("[users.Service.invalidate] cache delete")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
