package server

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/brainbox-app/brainbox/cache"
	"github.com/brainbox-app/brainbox/internal/config"
	"github.com/brainbox-app/brainbox/users"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// TokenVerifier checks a raw ID token. *oidc.IDTokenVerifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// HealthChecker is a dependency reported by /healthz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config interface {
	config.EnvConfig
	config.CorsConfig
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   Config
	users    *users.Service
	verifier TokenVerifier
	limiter  *cache.RateLimiter
	validate *validator.Validate
	checks   map[string]HealthChecker
}

type Option func(*Server)

// WithRateLimiter limits each caller on the user routes. Without it requests are not limited.
func WithRateLimiter(limiter *cache.RateLimiter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

func WithHealthCheck(name string, checker HealthChecker) Option {
	return func(s *Server) {
		s.checks[name] = checker
	}
}

func New(cfg Config, userService *users.Service, verifier TokenVerifier, opts ...Option) (*Server, error) {
	if userService == nil {
		return nil, fmt.Errorf("[Server New] user service is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("[Server New] token verifier is required")
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		users:    userService,
		verifier: verifier,
		validate: validate,
		checks:   make(map[string]HealthChecker),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Info().Msgf("[%s] %s", colourMethod(method), path)
	}
}
