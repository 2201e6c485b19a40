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

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/mergington-activities/activities"
	"github.com/jrsteele09/mergington-activities/auth"
	"github.com/jrsteele09/mergington-activities/internal/config"
	"github.com/jrsteele09/mergington-activities/provider"
	"github.com/jrsteele09/mergington-activities/server"
	"github.com/jrsteele09/mergington-activities/sessions"
	"github.com/jrsteele09/mergington-activities/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	readHeaderTimeout = 10 * time.Second
	startupTimeout    = 15 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	c := config.New()
	setupLogging(c)

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	config.WarnInsecureDefaults(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	store, err := newStore(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session store")
		}
	}()

	exchange, err := newExchangeClient(ctx, c)
	if err != nil {
		return err
	}

	manager := auth.NewManager(exchange, store,
		auth.WithPendingTTL(c.GetPendingAuthorizationExpiry()),
		auth.WithAccessTTL(c.GetAccessTokenExpiry()),
		auth.WithRefreshTTL(c.GetRefreshTokenExpiry()),
		auth.WithSecureCookies(c.GetSecureCookies()),
		auth.WithTokenCodec(token.NewCodec(token.NewHMACSigner(c.GetSecretKey()))),
	)
	catalog := activities.NewCatalog(activities.DefaultActivities())

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           server.New(c, manager, catalog, server.WithHealthCheck(store)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func newStore(ctx context.Context, c config.Config) (sessions.Store, error) {
	switch backend := c.GetStoreBackend(); backend {
	case config.StoreBackendRedis:
		store, err := sessions.NewRedisStore(ctx, sessions.RedisConfig{
			Addr:         c.GetRedisAddr(),
			Password:     c.GetRedisPassword(),
			DB:           c.GetRedisDB(),
			KeyPrefix:    c.GetRedisKeyPrefix(),
			DigestSecret: c.GetSessionSecret(),
		})
		if err != nil {
			return nil, fmt.Errorf("[main newStore] %w", err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Using Redis session store")
		return store, nil
	case config.StoreBackendMemory:
		log.Info().Dur("sweep_interval", c.GetSweepInterval()).Msg("Using in-memory session store")
		return sessions.NewInMemoryStore(sessions.WithSweepInterval(c.GetSweepInterval())), nil
	default:
		return nil, fmt.Errorf("[main newStore] unknown SESSION_STORE %q", backend)
	}
}

func newExchangeClient(ctx context.Context, c config.OAuthConfig) (*provider.Client, error) {
	httpClient := &http.Client{Timeout: c.GetProviderTimeout()}

	endpoints := provider.Endpoints{
		AuthURL:     c.GetAuthorizeURL(),
		TokenURL:    c.GetTokenURL(),
		UserInfoURL: c.GetUserInfoURL(),
	}
	if issuer := c.GetIssuerURL(); issuer != "" {
		discovered, err := provider.Discover(ctx, issuer, httpClient)
		if err != nil {
			return nil, fmt.Errorf("[main newExchangeClient] %w", err)
		}
		endpoints = discovered
		log.Info().Str("issuer", issuer).Msg("Discovered OAuth endpoints")
	}

	cfg := provider.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURI(),
		Scopes:       c.GetScopes(),
		Endpoints:    endpoints,
		HTTPClient:   httpClient,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("[main newExchangeClient] invalid OAuth configuration: %w", err)
	}
	return provider.New(cfg), nil
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
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
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
