package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ggoodman/cognito-auth-go/internal/jwtauth"
	"github.com/ggoodman/cognito-auth-go/internal/keycache"
)

// VerifierOption configures optional aspects of token verification
// (algorithms, leeway, key cache behavior).
type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	algs         []string
	leeway       time.Duration
	keyTTL       time.Duration
	fetchTimeout time.Duration
	httpClient   *http.Client
}

// WithAllowedAlgs restricts allowed JWS algorithms. "none" is never allowed.
// Defaults to ["RS256"].
func WithAllowedAlgs(algs ...string) VerifierOption {
	return func(o *verifierOptions) { o.algs = append([]string(nil), algs...) }
}

// WithLeeway sets clock skew tolerance for time-based claims. The default is
// zero: an elapsed exp is rejected outright.
func WithLeeway(d time.Duration) VerifierOption {
	return func(o *verifierOptions) { o.leeway = d }
}

// WithKeyCacheTTL bounds how long a fetched signing key is served before it
// is refetched, so provider key rotation is eventually picked up. Defaults
// to 1h; a negative value caches keys for the life of the process.
func WithKeyCacheTTL(ttl time.Duration) VerifierOption {
	return func(o *verifierOptions) { o.keyTTL = ttl }
}

// WithFetchTimeout bounds each key-set fetch attempt. Defaults to 10s.
func WithFetchTimeout(d time.Duration) VerifierOption {
	return func(o *verifierOptions) { o.fetchTimeout = d }
}

// WithHTTPClient overrides the client used for key-set fetches.
func WithHTTPClient(c *http.Client) VerifierOption {
	return func(o *verifierOptions) { o.httpClient = c }
}

// NewVerifier returns a TokenVerifier that resolves signing keys from the
// issuer's conventional key-set endpoint ({issuer}/.well-known/jwks.json)
// through a per-kid cache. This is the right constructor for Cognito-style
// issuers; no discovery round trip is performed.
func NewVerifier(issuer string, opts ...VerifierOption) (TokenVerifier, error) {
	var o verifierOptions
	for _, opt := range opts {
		opt(&o)
	}
	cache, err := keycache.New(keycache.Config{
		Issuer:     issuer,
		HTTPClient: o.httpClient,
		Timeout:    o.fetchTimeout,
		TTL:        o.keyTTL,
	})
	if err != nil {
		return nil, err
	}
	v, err := jwtauth.New(
		jwtauth.Config{Issuer: issuer, AllowedAlgs: o.algs, Leeway: o.leeway},
		jwtauth.CacheKeySource{Cache: cache},
	)
	if err != nil {
		return nil, err
	}
	return &verifierAdapter{v: v}, nil
}

// NewVerifierFromDiscovery returns a TokenVerifier whose key-set location is
// resolved via OpenID Connect discovery and kept fresh by an auto-refreshing
// JWKS. Use it for issuers that publish a non-conventional jwks_uri.
func NewVerifierFromDiscovery(ctx context.Context, issuer string, opts ...VerifierOption) (TokenVerifier, error) {
	var o verifierOptions
	for _, opt := range opts {
		opt(&o)
	}
	src, err := jwtauth.NewKeySourceFromDiscovery(ctx, issuer)
	if err != nil {
		return nil, err
	}
	v, err := jwtauth.New(
		jwtauth.Config{Issuer: issuer, AllowedAlgs: o.algs, Leeway: o.leeway},
		src,
	)
	if err != nil {
		return nil, err
	}
	return &verifierAdapter{v: v}, nil
}

// verifierAdapter maps the internal verifier onto the public contract.
type verifierAdapter struct {
	v *jwtauth.Verifier
}

func (a *verifierAdapter) Verify(ctx context.Context, token string) (Identity, error) {
	claims, err := a.v.Verify(ctx, token)
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}
	return Identity{ID: claims.ID, Email: claims.Email, Name: claims.Name}, nil
}
