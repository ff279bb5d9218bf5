// Package keycache resolves and caches an issuer's public signing keys.
//
// Keys are fetched lazily from the issuer's published JWKS document
// ({issuer}/.well-known/jwks.json), keyed by kid. A fetch for one kid caches
// every usable key in the document, so sibling keys are warm on first use.
// Concurrent misses for the same kid coalesce into a single fetch.
package keycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound indicates the JWKS document was fetched successfully but
// contains no key with the requested kid.
var ErrKeyNotFound = errors.New("keycache: signing key not found")

// FetchError indicates the JWKS document could not be retrieved or decoded.
// It is retryable by the caller.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("keycache: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config controls key resolution for a single issuer.
type Config struct {
	// Issuer is the identity provider's canonical URL. Required.
	Issuer string

	// HTTPClient overrides the client used for JWKS fetches.
	HTTPClient *http.Client

	// Timeout bounds each fetch attempt. Defaults to 10s.
	Timeout time.Duration

	// TTL bounds how long a cached key is served before it is refetched,
	// so provider key rotation is eventually picked up. Defaults to 1h.
	// A negative TTL disables expiry and keys are cached for the life of
	// the process.
	TTL time.Duration

	// MaxRetries is the number of additional fetch attempts after a
	// transport failure. Defaults to 2. JWKS reads are idempotent, so
	// retrying is safe.
	MaxRetries uint64
}

type entry struct {
	key     any
	fetched time.Time
}

// Cache is a process-wide, concurrency-safe kid -> public key mapping.
type Cache struct {
	jwksURL string
	client  *http.Client
	timeout time.Duration
	ttl     time.Duration
	retries uint64

	mu    sync.RWMutex
	keys  map[string]entry
	group singleflight.Group
}

// New constructs a Cache for the configured issuer.
func New(cfg Config) (*Cache, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("keycache: issuer is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &Cache{
		jwksURL: strings.TrimSuffix(cfg.Issuer, "/") + "/.well-known/jwks.json",
		client:  cfg.HTTPClient,
		timeout: cfg.Timeout,
		ttl:     cfg.TTL,
		retries: cfg.MaxRetries,
		keys:    make(map[string]entry),
	}, nil
}

// Key returns the public key for kid, fetching the issuer's JWKS on a miss.
// Cached keys are served without a network round trip. It returns
// ErrKeyNotFound when the fetched document has no matching kid and a
// *FetchError when the document could not be retrieved.
func (c *Cache) Key(ctx context.Context, kid string) (any, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: empty kid", ErrKeyNotFound)
	}
	if k, ok := c.lookup(kid); ok {
		return k, nil
	}

	// Coalesce concurrent misses for the same kid into one fetch.
	v, err, _ := c.group.Do(kid, func() (any, error) {
		if k, ok := c.lookup(kid); ok {
			return k, nil
		}
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
		if k, ok := c.lookup(kid); ok {
			return k, nil
		}
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Cache) lookup(kid string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.keys[kid]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.fetched) > c.ttl {
		return nil, false
	}
	return e.key, true
}

func (c *Cache) refresh(ctx context.Context) error {
	var set jose.JSONWebKeySet
	op := func() error {
		fctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(fctx, http.MethodGet, c.jwksURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		var ks jose.JSONWebKeySet
		if err := json.NewDecoder(resp.Body).Decode(&ks); err != nil {
			return fmt.Errorf("decode jwks: %w", err)
		}
		set = ks
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), c.retries)); err != nil {
		return &FetchError{URL: c.jwksURL, Err: err}
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range set.Keys {
		if k.KeyID == "" || !k.Valid() || !k.IsPublic() {
			continue
		}
		c.keys[k.KeyID] = entry{key: k.Key, fetched: now}
	}
	return nil
}
