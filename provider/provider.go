// Package provider defines the identity-provider client contract used by the
// session authenticator, plus the secret-hash signer some provider auth flows
// require. Concrete clients live in subpackages (see provider/cognito).
//
// Provider-side failures surface as a closed set of sentinel error variants
// so callers can match them structurally with errors.Is instead of comparing
// provider error strings.
package provider

import (
	"context"
	"errors"
)

// ErrNotAuthorized indicates the provider rejected the supplied credentials.
var ErrNotAuthorized = errors.New("provider: not authorized")

// ErrUserNotFound indicates no account exists for the username.
var ErrUserNotFound = errors.New("provider: user not found")

// ErrUserExists indicates an account already exists for the username.
var ErrUserExists = errors.New("provider: user already exists")

// ErrPasswordPolicy indicates the password does not satisfy the provider's
// password policy.
var ErrPasswordPolicy = errors.New("provider: password does not meet policy")

// ErrInvalidParameter indicates the provider rejected the request parameters.
var ErrInvalidParameter = errors.New("provider: invalid parameter")

// ErrUnavailable indicates a transport or timeout failure talking to the
// provider. Retryable by the caller.
var ErrUnavailable = errors.New("provider: unavailable")

// AuthResult carries the credential material issued on a successful
// authentication.
type AuthResult struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int32
}

// UserAttributes are the profile attributes attached at account creation.
type UserAttributes struct {
	Email         string
	EmailVerified bool
	Name          string
}

// CreatedUser describes the account the provider created.
type CreatedUser struct {
	Username string
}

// Client is the outbound surface to the identity provider. All methods
// perform network calls; none persist anything locally.
type Client interface {
	// InitiateAuth submits a username/password credential check.
	InitiateAuth(ctx context.Context, username, password string) (*AuthResult, error)

	// CreateUser provisions an account with a temporary password and
	// suppresses any provider welcome message.
	CreateUser(ctx context.Context, username, temporaryPassword string, attrs UserAttributes) (*CreatedUser, error)

	// SetPermanentPassword replaces the temporary credential with a
	// permanent one.
	SetPermanentPassword(ctx context.Context, username, password string) error
}
