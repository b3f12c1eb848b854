package config

import "time"

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

func (Backend) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379")
}

func (Backend) GetRateLimitMax() int64 {
	return GetIntEnv("RATE_LIMIT_MAX", 100)
}

func (Backend) GetRateLimitWindow() time.Duration {
	return GetDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
}

func (Backend) GetProfileCacheTTL() time.Duration {
	return 5 * time.Minute
}
