package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated indicates no valid session credential was supplied.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// ErrInvalidToken indicates a bearer token failed verification. All
// verification failures collapse into this one kind; the caller is never
// told which check failed.
var ErrInvalidToken = errors.New("auth: invalid token")

// ErrInvalidCredentials indicates a login was rejected. Wrong password,
// unknown user and disabled account are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrProviderUnavailable indicates a transport or timeout failure talking to
// the identity provider. Retryable by the caller.
var ErrProviderUnavailable = errors.New("auth: identity provider unavailable")

// Identity is the normalized claim set extracted from a verified bearer
// token. ID is always present; Email and Name are empty when the provider
// did not attach them.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenVerifier validates a bearer token and returns the identity it
// asserts. Implementations must verify signature, issuer, algorithm and
// expiry before trusting any claim, and should return an error wrapping
// ErrInvalidToken for anything that fails.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
