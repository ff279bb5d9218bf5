package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ggoodman/cognito-auth-go/provider"
)

// SessionTokens is the credential material a successful login yields. The
// transport layer is expected to store AccessToken as an HTTP-only,
// same-site-strict cookie with a lifetime of ExpiresIn seconds.
type SessionTokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int32
}

// Registration describes a successfully created account.
type Registration struct {
	UserID string
}

// SessionAuthenticator orchestrates login, registration and token
// introspection. Credential checks and account uniqueness are delegated
// entirely to the identity provider; nothing is persisted locally.
type SessionAuthenticator struct {
	provider provider.Client
	verifier TokenVerifier
	log      *slog.Logger
}

// SessionOption configures the authenticator.
type SessionOption func(*SessionAuthenticator)

// WithLogger sets the logger used for internal failure causes. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *SessionAuthenticator) { s.log = log }
}

// NewSessionAuthenticator wires a provider client and token verifier.
func NewSessionAuthenticator(p provider.Client, v TokenVerifier, opts ...SessionOption) (*SessionAuthenticator, error) {
	if p == nil {
		return nil, errors.New("auth: provider client is required")
	}
	if v == nil {
		return nil, errors.New("auth: token verifier is required")
	}
	s := &SessionAuthenticator{provider: p, verifier: v, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login submits the credentials to the provider and returns the issued
// session tokens. Every provider-side rejection collapses into
// ErrInvalidCredentials; only transport failures surface separately, as
// ErrProviderUnavailable. Never retried automatically.
func (s *SessionAuthenticator) Login(ctx context.Context, email, password string) (*SessionTokens, error) {
	res, err := s.provider.InitiateAuth(ctx, email, password)
	if err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			s.log.ErrorContext(ctx, "identity provider unreachable during login", "err", err)
			return nil, ErrProviderUnavailable
		}
		s.log.InfoContext(ctx, "login rejected", "err", err)
		return nil, ErrInvalidCredentials
	}
	return &SessionTokens{
		AccessToken:  res.AccessToken,
		IDToken:      res.IDToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// WhoAmI verifies the bearer token and returns the identity it asserts.
// A missing token and a failed verification are both ErrUnauthenticated.
func (s *SessionAuthenticator) WhoAmI(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.log.DebugContext(ctx, "token verification failed", "err", err)
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// Register creates the account with a temporary password, then immediately
// sets the password as permanent so the user can log in without a reset
// flow. Distinguishable provider rejections map to ValidationError kinds.
func (s *SessionAuthenticator) Register(ctx context.Context, email, password, name string) (*Registration, error) {
	created, err := s.provider.CreateUser(ctx, email, password, provider.UserAttributes{
		Email:         email,
		EmailVerified: true,
		Name:          name,
	})
	if err != nil {
		return nil, s.registrationError(ctx, err)
	}

	if err := s.provider.SetPermanentPassword(ctx, created.Username, password); err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			// The account exists with only its temporary credential.
			s.log.ErrorContext(ctx, "set permanent password failed after create",
				"user_id", created.Username, "err", err)
			return nil, ErrProviderUnavailable
		}
		return nil, s.registrationError(ctx, err)
	}

	return &Registration{UserID: created.Username}, nil
}

func (s *SessionAuthenticator) registrationError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, provider.ErrUnavailable):
		s.log.ErrorContext(ctx, "identity provider unreachable during registration", "err", err)
		return ErrProviderUnavailable
	case errors.Is(err, provider.ErrUserExists):
		return &ValidationError{Kind: ValidationAlreadyExists}
	case errors.Is(err, provider.ErrPasswordPolicy):
		return &ValidationError{Kind: ValidationWeakPassword}
	case errors.Is(err, provider.ErrInvalidParameter):
		return &ValidationError{Kind: ValidationInvalidParameters}
	default:
		s.log.ErrorContext(ctx, "registration failed", "err", err)
		return &ValidationError{Kind: ValidationUnknown}
	}
}
