// Package jwttest mints unverified-but-well-formed JWTs for tests.
package jwttest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "brainbox-test-secret"

// Mint signs claims with a throwaway HMAC key. Panics on failure, tests only.
func Mint(claims jwt.MapClaims) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Expiring returns a token for sub that expires at exp.
func Expiring(sub string, exp time.Time) string {
	return Mint(jwt.MapClaims{
		"sub": sub,
		"iat": exp.Add(-time.Hour).Unix(),
		"exp": exp.Unix(),
	})
}

// WithoutExpiry returns a token for sub carrying no exp claim.
func WithoutExpiry(sub string) string {
	return Mint(jwt.MapClaims{"sub": sub})
}
