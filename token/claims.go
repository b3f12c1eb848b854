package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("token is not a three-part JWT")

// ExpiryFromToken returns the absolute expiry of a JWT access token taken from its exp claim.
// The signature is not verified, the token only needs to be structurally a JWT.
// Tokens without an exp claim expire fallback after now.
func ExpiryFromToken(rawToken string, now time.Time, fallback time.Duration) (time.Time, error) {
	if strings.Count(rawToken, ".") != 2 {
		return time.Time{}, ErrMalformedToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("[ExpiryFromToken] exp claim: %w", err)
	}
	if exp == nil {
		return now.Add(fallback), nil
	}
	return exp.Time, nil
}

// Subject returns the sub claim of an unverified JWT, or "" when absent or undecodable.
func Subject(rawToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
