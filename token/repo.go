package token

import "context"

// Storage keys. Values are opaque strings.
const (
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyIDToken        = "id_token"
	KeyTokenExpiry    = "token_expiry"
	KeyOnboardingSeen = "onboarding_seen"
)

// SessionKeys are the four entries making up one session record.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyIDToken, KeyTokenExpiry}

// Batch is a group of writes and deletes that a Repo must apply as a unit.
type Batch struct {
	Set    map[string]string
	Delete []string
}

// Repo is the secure key/value storage behind a Store.
type Repo interface {
	// Get returns the value stored under key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Apply writes the whole batch or nothing.
	Apply(ctx context.Context, batch Batch) error
}
