package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

// GetRequestTimeout bounds token refreshes and profile fetches.
func (Session) GetRequestTimeout() time.Duration {
	return GetDurationEnv("REQUEST_TIMEOUT", 20*time.Second)
}

// GetDefaultTokenLifetime applies when an access token carries no exp claim.
func (Session) GetDefaultTokenLifetime() time.Duration {
	return time.Hour
}

func (Session) GetExpiryBuffer() time.Duration {
	return 5 * time.Minute
}

func (Session) GetToastDuration() time.Duration {
	return 3 * time.Second
}

func (Session) GetResendVerificationInterval() time.Duration {
	return GetDurationEnv("RESEND_VERIFICATION_INTERVAL", 30*time.Second)
}
