package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	BackendConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIURL() string
	GetFirebaseAPIKey() string
	GetFirebaseProjectID() string
	GetGoogleClientID() string
	GetTokenStorePath() string
	GetTokenStorePassphrase() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SessionConfig interface {
	GetRequestTimeout() time.Duration
	GetDefaultTokenLifetime() time.Duration
	GetExpiryBuffer() time.Duration
	GetToastDuration() time.Duration
	GetResendVerificationInterval() time.Duration
}

type BackendConfig interface {
	GetDatabaseURL() string
	GetRedisURL() string
	GetRateLimitMax() int64
	GetRateLimitWindow() time.Duration
	GetProfileCacheTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Backend
}

// New loads any .env files found in the working directory and returns the environment backed config.
// Variables already present in the environment are never overridden by .env values.
func New(envFiles ...string) Config {
	_ = godotenv.Load(envFiles...)
	return mainConfig{}
}
