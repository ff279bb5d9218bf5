package jwtauth

import (
	"context"
	"errors"
	"fmt"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

type keyfuncSource struct {
	kf keyfunc.Keyfunc
}

func (s keyfuncSource) VerificationKey(_ context.Context, token *jwt.Token) (any, error) {
	return s.kf.Keyfunc(token)
}

// NewKeySourceFromDiscovery resolves the issuer's jwks_uri via OpenID Connect
// discovery and returns a KeySource backed by an auto-refreshing JWKS. Use
// this for providers whose key-set endpoint is not at the conventional
// {issuer}/.well-known/jwks.json location.
func NewKeySourceFromDiscovery(ctx context.Context, issuer string) (KeySource, error) {
	if issuer == "" {
		return nil, errors.New("jwtauth: issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, errors.New("discovery incomplete: missing jwks_uri")
	}

	// Auto-refreshing JWKS
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{meta.JwksURI})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}
	return keyfuncSource{kf: kf}, nil
}
