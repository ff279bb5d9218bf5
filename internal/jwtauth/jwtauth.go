// Package jwtauth is the token verification core. It validates a bearer
// token's signature, issuer, algorithm and expiry against the issuer's
// published signing keys and extracts the normalized identity claims.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ggoodman/cognito-auth-go/internal/keycache"
)

// ErrInvalidToken is the single kind every verification failure collapses
// into: bad signature, unknown key, disallowed algorithm, issuer mismatch,
// expired. The wrapped detail is for local logs only; callers must not
// surface which check failed.
var ErrInvalidToken = errors.New("jwtauth: invalid token")

// Config controls validation behavior.
type Config struct {
	// Issuer is the exact expected "iss" claim. Required.
	Issuer string
	// AllowedAlgs restricts accepted JWS algorithms. "none" is never
	// allowed. Defaults to ["RS256"].
	AllowedAlgs []string
	// Leeway adds clock-skew tolerance to time-based claims. Defaults to
	// zero: an elapsed exp is rejected outright.
	Leeway time.Duration
}

// Claims is the normalized identity extracted from a verified token.
// Optional profile claims pass through empty when absent.
type Claims struct {
	ID    string
	Email string
	Name  string
}

// KeySource resolves the verification key for a parsed but not yet trusted
// token. Implementations read the untrusted header (kid) only to select a
// key; they must not trust anything else in the token.
type KeySource interface {
	VerificationKey(ctx context.Context, token *jwt.Token) (any, error)
}

// CacheKeySource resolves keys through a per-kid signing key cache.
type CacheKeySource struct {
	Cache *keycache.Cache
}

func (s CacheKeySource) VerificationKey(ctx context.Context, token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid header")
	}
	return s.Cache.Key(ctx, kid)
}

// Verifier validates bearer tokens. Stateless per call; safe for concurrent
// use. A failed verification is terminal for that call.
type Verifier struct {
	cfg  Config
	keys KeySource
}

// New constructs a Verifier.
func New(cfg Config, keys KeySource) (*Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("jwtauth: issuer is required")
	}
	if keys == nil {
		return nil, errors.New("jwtauth: key source is required")
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	return &Verifier{cfg: cfg, keys: keys}, nil
}

// Verify validates tok and returns its normalized claims. Any failure wraps
// ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, tok string) (*Claims, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithLeeway(v.cfg.Leeway),
	)

	parsed, err := parser.Parse(tok, func(t *jwt.Token) (any, error) {
		// Enforce allowed algs before any key material is resolved.
		alg := t.Method.Alg()
		allowed := false
		for _, a := range v.cfg.AllowedAlgs {
			if alg == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("disallowed alg: %s", alg)
		}
		return v.keys.VerificationKey(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: token parse/verify failed: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	if iss, _ := claims["iss"].(string); iss == "" || iss != v.cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &Claims{ID: sub, Email: email, Name: name}, nil
}
