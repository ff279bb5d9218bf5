package jwtauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ggoodman/cognito-auth-go/internal/keycache"
)

func genRSA(t *testing.T) (*rsa.PrivateKey, string, []byte) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	kid := "test-key"
	jwk := jose.JSONWebKey{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
	set := struct {
		Keys []jose.JSONWebKey `json:"keys"`
	}{Keys: []jose.JSONWebKey{jwk}}
	b, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return pk, kid, b
}

func newIssuer(t *testing.T, keysJSON []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(keysJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, pk *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newVerifier(t *testing.T, issuer string) *Verifier {
	t.Helper()
	cache, err := keycache.New(keycache.Config{Issuer: issuer})
	if err != nil {
		t.Fatalf("keycache: %v", err)
	}
	v, err := New(Config{Issuer: issuer}, CacheKeySource{Cache: cache})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerify_HappyPath(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	now := time.Now()
	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss":   srv.URL,
		"sub":   "user-123",
		"email": "alice@example.com",
		"name":  "Alice",
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	})

	claims, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ID != "user-123" {
		t.Fatalf("want sub user-123, got %s", claims.ID)
	}
	if claims.Email != "alice@example.com" || claims.Name != "Alice" {
		t.Fatalf("claims mapping mismatch: %+v", claims)
	}
}

func TestVerify_OptionalClaimsPassThroughEmpty(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss": srv.URL,
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "" || claims.Name != "" {
		t.Fatalf("want empty optional claims, got %+v", claims)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss": "https://evil.example.com",
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss": srv.URL,
		"sub": "user-123",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss": srv.URL,
		"sub": "user-123",
	})

	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for missing exp, got %v", err)
	}
}

func TestVerify_UnknownKid(t *testing.T) {
	pk, _, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	tok := signToken(t, pk, "other-key", jwt.MapClaims{
		"iss": srv.URL,
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for unknown kid, got %v", err)
	}
}

func TestVerify_SymmetricAlgRejected(t *testing.T) {
	_, _, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	// Algorithm-confusion attempt: HMAC-signed token presented to an
	// RS256-only verifier.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": srv.URL,
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "test-key"
	s, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Verify(context.Background(), s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for HS256 token, got %v", err)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	_, _, jwks := genRSA(t)
	srv := newIssuer(t, jwks)
	v := newVerifier(t, srv.URL)

	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for empty token, got %v", err)
	}
}

func TestVerify_LeewayAcceptsRecentlyExpired(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	srv := newIssuer(t, jwks)

	cache, err := keycache.New(keycache.Config{Issuer: srv.URL})
	if err != nil {
		t.Fatalf("keycache: %v", err)
	}
	v, err := New(Config{Issuer: srv.URL, Leeway: time.Minute}, CacheKeySource{Cache: cache})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss": srv.URL,
		"sub": "user-123",
		"exp": time.Now().Add(-10 * time.Second).Unix(),
	})

	if _, err := v.Verify(context.Background(), tok); err != nil {
		t.Fatalf("want leeway to accept, got %v", err)
	}
}

func TestNewKeySourceFromDiscovery(t *testing.T) {
	pk, kid, jwks := genRSA(t)

	var issuer string
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 issuer,
			"jwks_uri":               issuer + "/keys",
			"authorization_endpoint": issuer + "/oauth2/auth",
			"token_endpoint":         issuer + "/oauth2/token",
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwks)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	issuer = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := NewKeySourceFromDiscovery(ctx, issuer)
	if err != nil {
		t.Fatalf("discovery: %v", err)
	}
	v, err := New(Config{Issuer: issuer}, src)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := signToken(t, pk, kid, jwt.MapClaims{
		"iss": issuer,
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	claims, err := v.Verify(ctx, tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ID != "user-123" {
		t.Fatalf("want sub user-123, got %s", claims.ID)
	}
}
