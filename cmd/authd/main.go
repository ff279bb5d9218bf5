// Command authd serves the cookie-session authentication API backed by an
// AWS Cognito user pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/ggoodman/cognito-auth-go/auth"
	"github.com/ggoodman/cognito-auth-go/httpapi"
	"github.com/ggoodman/cognito-auth-go/internal/logctx"
	"github.com/ggoodman/cognito-auth-go/provider/cognito"
)

type config struct {
	ListenAddr   string `env:"LISTEN_ADDR,default=:8080"`
	CORSOrigin   string `env:"CORS_ORIGIN"`
	CookieSecure bool   `env:"COOKIE_SECURE,default=true"`

	AWSRegion          string `env:"AWS_REGION,required"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	UserPoolID   string `env:"COGNITO_USER_POOL_ID,required"`
	ClientID     string `env:"COGNITO_CLIENT_ID,required"`
	ClientSecret string `env:"COGNITO_CLIENT_SECRET,required"`

	// Issuer defaults to the Cognito issuer derived from region and pool id.
	Issuer       string        `env:"COGNITO_ISSUER"`
	KeyCacheTTL  time.Duration `env:"JWKS_CACHE_TTL,default=1h"`
	FetchTimeout time.Duration `env:"JWKS_FETCH_TIMEOUT,default=10s"`
}

func main() {
	log := slog.New(logctx.Handler{Handler: slog.NewJSONHandler(os.Stderr, nil)})
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.AWSRegion, cfg.UserPoolID)
	}

	client, err := cognito.New(ctx, cognito.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		UserPoolID:      cfg.UserPoolID,
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("cognito client: %w", err)
	}

	verifier, err := auth.NewVerifier(issuer,
		auth.WithKeyCacheTTL(cfg.KeyCacheTTL),
		auth.WithFetchTimeout(cfg.FetchTimeout),
	)
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}

	sessions, err := auth.NewSessionAuthenticator(client, verifier, auth.WithLogger(log))
	if err != nil {
		return err
	}

	handler, err := httpapi.New(sessions, httpapi.Config{
		AllowedOrigin: cfg.CORSOrigin,
		SecureCookies: cfg.CookieSecure,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "issuer", issuer)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}
