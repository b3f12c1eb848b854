package cli

import (
	"context"
	"fmt"

	"github.com/brainbox-app/brainbox/auth"
	"github.com/brainbox-app/brainbox/auth/firebase"
	"github.com/brainbox-app/brainbox/clientstate"
	"github.com/brainbox-app/brainbox/internal/config"
	"github.com/brainbox-app/brainbox/session"
	"github.com/brainbox-app/brainbox/token"
	"github.com/brainbox-app/brainbox/token/filerepo"
	"github.com/brainbox-app/brainbox/userapi"
	"github.com/rs/zerolog/log"
)

// Config is the part of the configuration the client stack reads.
type Config interface {
	config.SessionConfig
	GetAPIURL() string
}

// Restorer rebuilds a provider's signed-in account from a persisted session.
type Restorer interface {
	Restore(idToken, refreshToken string) error
}

// App is the wired client: token store, identity provider, session manager, API client and state.
type App struct {
	State    *clientstate.Store
	Auth     *auth.AuthService
	Tokens   *token.Store
	Sessions *session.Manager
	Users    *userapi.Client
	Google   *IDTokenGoogleSignIn
}

// Build wires the client stack. A persisted session is restored into provider when it supports it.
func Build(ctx context.Context, cfg Config, provider auth.Provider, repo token.Repo, clientOptions ...userapi.ClientOption) (*App, error) {
	tokens := token.NewStore(repo,
		token.WithExpiryBuffer(cfg.GetExpiryBuffer()),
		token.WithDefaultLifetime(cfg.GetDefaultTokenLifetime()))

	if restorer, ok := provider.(Restorer); ok {
		if err := restoreSession(ctx, tokens, restorer); err != nil {
			log.Warn().Err(err).Msg("[cli.Build] restore session")
		}
	}

	google := &IDTokenGoogleSignIn{}
	authService := auth.NewAuthService(provider, tokens, auth.WithGoogleSignIn(google))
	sessions := session.NewManager(authService, tokens, session.WithRefreshTimeout(cfg.GetRequestTimeout()))

	clientOptions = append([]userapi.ClientOption{userapi.WithTimeout(cfg.GetRequestTimeout())}, clientOptions...)
	users := userapi.NewClient(cfg.GetAPIURL(), sessions, clientOptions...)

	state := clientstate.NewStore(authService, users, tokens,
		clientstate.WithToastDuration(cfg.GetToastDuration()),
		clientstate.WithResendInterval(cfg.GetResendVerificationInterval()))

	return &App{
		State:    state,
		Auth:     authService,
		Tokens:   tokens,
		Sessions: sessions,
		Users:    users,
		Google:   google,
	}, nil
}

// NewFromConfig opens the encrypted session file and talks to Firebase with the configured API key.
func NewFromConfig(ctx context.Context, c config.Config) (*App, error) {
	repo, err := filerepo.Open(c.GetTokenStorePath(), c.GetTokenStorePassphrase())
	if err != nil {
		return nil, fmt.Errorf("[cli.NewFromConfig] open token store: %w", err)
	}
	provider, err := firebase.New(c.GetFirebaseAPIKey())
	if err != nil {
		return nil, fmt.Errorf("[cli.NewFromConfig] %w", err)
	}
	return Build(ctx, c, provider, repo)
}

func (a *App) Close() {
	a.State.Close()
}

func restoreSession(ctx context.Context, tokens *token.Store, restorer Restorer) error {
	idToken, ok := tokens.IDToken(ctx)
	if !ok {
		return nil
	}
	refreshToken, _ := tokens.RefreshToken(ctx)
	return restorer.Restore(idToken, refreshToken)
}
