package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SecretHashSigner computes the per-username message authentication code that
// binds an authentication request to a confidential client. The derivation
// must be byte-identical to the provider's: base64(HMAC-SHA256(clientSecret,
// username + clientID)).
type SecretHashSigner struct {
	clientID     string
	clientSecret []byte
}

// NewSecretHashSigner fails when either value is absent; missing client
// configuration is a fatal startup error, not a per-request condition.
func NewSecretHashSigner(clientID, clientSecret string) (*SecretHashSigner, error) {
	if clientID == "" {
		return nil, errors.New("provider: client id is required")
	}
	if clientSecret == "" {
		return nil, errors.New("provider: client secret is required")
	}
	return &SecretHashSigner{clientID: clientID, clientSecret: []byte(clientSecret)}, nil
}

// Sign returns the secret hash for username. Pure computation, no I/O.
func (s *SecretHashSigner) Sign(username string) string {
	mac := hmac.New(sha256.New, s.clientSecret)
	mac.Write([]byte(username + s.clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
