// Package authtest provides in-memory doubles for the network-facing pieces:
// a static token verifier and a fake provider client. Used in tests and
// development environments where the real identity provider is unavailable.
package authtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ggoodman/cognito-auth-go/auth"
	"github.com/ggoodman/cognito-auth-go/provider"
)

// StaticVerifier accepts exactly one token value and returns a fixed
// identity for it. Any other token fails verification.
type StaticVerifier struct {
	Token    string
	Identity auth.Identity
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if token == "" || token != v.Token {
		return auth.Identity{}, errors.Join(auth.ErrInvalidToken, errors.New("authtest: unknown token"))
	}
	return v.Identity, nil
}

// FakeUser is an account held by FakeProvider.
type FakeUser struct {
	Password  string
	Name      string
	Permanent bool
}

// FakeProvider is an in-memory provider.Client. The zero value is usable.
type FakeProvider struct {
	mu    sync.Mutex
	users map[string]*FakeUser

	// Unavailable makes every call fail with provider.ErrUnavailable.
	Unavailable bool

	// IssueTokens overrides the AuthResult returned by a successful
	// InitiateAuth. When nil a stub result is issued.
	IssueTokens func(username string) *provider.AuthResult

	// CreateUserErr, when set, is returned by every CreateUser call. Lets
	// tests exercise provider rejections the in-memory store cannot
	// produce (password policy, parameter validation).
	CreateUserErr error
}

var _ provider.Client = (*FakeProvider)(nil)

// AddUser seeds an account with a permanent password.
func (f *FakeProvider) AddUser(username, password, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = make(map[string]*FakeUser)
	}
	f.users[username] = &FakeUser{Password: password, Name: name, Permanent: true}
}

// User returns the stored account, if any.
func (f *FakeProvider) User(username string) (FakeUser, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return FakeUser{}, false
	}
	return *u, true
}

func (f *FakeProvider) InitiateAuth(_ context.Context, username, password string) (*provider.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, fmt.Errorf("%w: fake provider down", provider.ErrUnavailable)
	}
	u, ok := f.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrUserNotFound, username)
	}
	if u.Password != password {
		return nil, fmt.Errorf("%w: bad password", provider.ErrNotAuthorized)
	}
	if f.IssueTokens != nil {
		return f.IssueTokens(username), nil
	}
	return &provider.AuthResult{
		AccessToken: "fake-token-" + username,
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

func (f *FakeProvider) CreateUser(_ context.Context, username, temporaryPassword string, attrs provider.UserAttributes) (*provider.CreatedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, fmt.Errorf("%w: fake provider down", provider.ErrUnavailable)
	}
	if f.CreateUserErr != nil {
		return nil, f.CreateUserErr
	}
	if _, ok := f.users[username]; ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrUserExists, username)
	}
	if f.users == nil {
		f.users = make(map[string]*FakeUser)
	}
	f.users[username] = &FakeUser{Password: temporaryPassword, Name: attrs.Name}
	return &provider.CreatedUser{Username: username}, nil
}

func (f *FakeProvider) SetPermanentPassword(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return fmt.Errorf("%w: fake provider down", provider.ErrUnavailable)
	}
	u, ok := f.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", provider.ErrUserNotFound, username)
	}
	u.Password = password
	u.Permanent = true
	return nil
}
