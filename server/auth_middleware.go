package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyCaller stores the verified *Caller
const ContextKeyCaller ContextKey = "caller"

// Caller is the identity taken from a verified ID token.
type Caller struct {
	UserID        string
	Email         string
	EmailVerified bool
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func CallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(ContextKeyCaller).(*Caller)
	return caller, ok && caller != nil
}

// RequireAuth is middleware that validates a Bearer ID token and puts the Caller on the context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "unauthorized", "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") {
				writeJSONError(w, "unauthorized", "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			if token = strings.TrimSpace(token); token == "" {
				writeJSONError(w, "unauthorized", "Empty token", http.StatusUnauthorized)
				return
			}

			idToken, err := s.verifier.Verify(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("[Server.RequireAuth] Verify")
				writeJSONError(w, "unauthorized", "Invalid token", http.StatusUnauthorized)
				return
			}
			if idToken.Subject == "" {
				writeJSONError(w, "unauthorized", "Token has no subject", http.StatusUnauthorized)
				return
			}

			var claims idTokenClaims
			if err := idToken.Claims(&claims); err != nil {
				writeJSONError(w, "unauthorized", "Invalid token claims", http.StatusUnauthorized)
				return
			}

			caller := &Caller{UserID: idToken.Subject, Email: claims.Email, EmailVerified: claims.EmailVerified}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyCaller, caller)))
		}
	}
}

// RateLimit counts requests per verified caller, so it must run after RequireAuth.
// A limiter failure lets the request through.
func (s *Server) RateLimit() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if s.limiter == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				log.Error().Str("path", r.URL.Path).Msg("[Server.RateLimit] no caller on context")
				writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
				return
			}
			key := "user:" + caller.UserID

			limit, err := s.limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("[Server.RateLimit] Allow")
				next(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(s.limiter.Max(), 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(limit.Remaining, 10))
			if !limit.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(limit.ResetIn.Seconds()))))
				writeJSONError(w, "rate_limited", "Too many requests", http.StatusTooManyRequests)
				return
			}
			next(w, r)
		}
	}
}
