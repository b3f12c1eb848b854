package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/brainbox-app/brainbox/cache"
	"github.com/brainbox-app/brainbox/internal/config"
	"github.com/brainbox-app/brainbox/internal/logging"
	"github.com/brainbox-app/brainbox/server"
	"github.com/brainbox-app/brainbox/users"
	"github.com/brainbox-app/brainbox/users/postgres"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, c.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := postgres.New(pool)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	store, err := openCache(c)
	if err != nil {
		return err
	}
	defer store.Close()

	verifier, err := server.NewFirebaseVerifier(ctx, c.GetFirebaseProjectID())
	if err != nil {
		return err
	}

	userService := users.NewService(repo, users.WithCache(store, c.GetProfileCacheTTL()))
	handler, err := server.New(c, userService, verifier,
		server.WithRateLimiter(cache.NewRateLimiter(store, c.GetRateLimitMax(), c.GetRateLimitWindow())),
		server.WithHealthCheck("postgres", repo),
		server.WithHealthCheck("cache", store),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() { serverErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serverErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openCache uses valkey unless REDIS_URL is "memory", which keeps everything in process.
func openCache(c config.Config) (cache.Store, error) {
	redisURL := c.GetRedisURL()
	if redisURL == "memory" {
		log.Warn().Msg("Using in-memory cache, rate limits are per instance")
		return cache.NewMemory(), nil
	}
	return cache.NewValkey(redisURL)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
