package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	logLevelVar    = "LOG_LEVEL"
	apiURLVar      = "API_URL"
	tokenStoreVar  = "TOKEN_STORE_PATH"
	passphraseVar  = "TOKEN_STORE_PASSPHRASE"
	defaultAPIURL  = "https://your-api.com"
	defaultAppName = "BrainBox"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, defaultAppName)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetAPIURL returns the base URL of the backend user service.
// The placeholder default is kept so an unset value fails loudly on first request.
func (EnvVars) GetAPIURL() string {
	return GetEnv(apiURLVar, defaultAPIURL)
}

func (EnvVars) GetFirebaseAPIKey() string {
	return GetEnv("FIREBASE_API_KEY", "")
}

func (EnvVars) GetFirebaseProjectID() string {
	return GetEnv("FIREBASE_PROJECT_ID", "")
}

func (EnvVars) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

// GetTokenStorePath returns the location of the encrypted session file.
func (EnvVars) GetTokenStorePath() string {
	if path := os.Getenv(tokenStoreVar); path != "" {
		return path
	}
	home, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "brainbox", "session.bin")
	}
	return filepath.Join(home, "brainbox", "session.bin")
}

func (EnvVars) GetTokenStorePassphrase() string {
	return GetEnv(passphraseVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses a Go duration string ("20s", "5m"), falling back on absent or malformed values.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func GetIntEnv(envVar string, defaultValue int64) int64 {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
