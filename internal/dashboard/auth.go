package dashboard

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Authenticator is the auth half of the analytics API.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) error
}

// TokenStore is where the session token lives between runs.
type TokenStore interface {
	Token() string
	SetToken(tok string) error
	ClearToken() error
}

// Auth drives login, registration and logout against a token store.
type Auth struct {
	svc    Authenticator
	store  TokenStore
	logger *zap.Logger
}

// NewAuth wires an Authenticator to a TokenStore.
func NewAuth(svc Authenticator, store TokenStore, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{svc: svc, store: store, logger: logger}
}

// Login authenticates and stores the returned token.
func (a *Auth) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return &ValidationError{Message: MsgCredentialsMissing}
	}
	tok, err := a.svc.Login(ctx, username, password)
	if err != nil {
		a.logger.Warn("login failed", zap.String("username", username), zap.Error(err))
		return &TransportError{Op: "login", Err: err}
	}
	if err := a.store.SetToken(tok); err != nil {
		return err
	}
	a.logger.Debug("logged in", zap.String("username", username))
	return nil
}

// Register creates an account. confirm must match password; the check runs
// before any network call.
func (a *Auth) Register(ctx context.Context, username, password, confirm string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return &ValidationError{Message: MsgCredentialsMissing}
	}
	if password != confirm {
		return &ValidationError{Message: MsgPasswordMismatch}
	}
	if err := a.svc.Register(ctx, username, password); err != nil {
		a.logger.Warn("registration failed", zap.String("username", username), zap.Error(err))
		return &TransportError{Op: "registration", Err: err}
	}
	a.logger.Debug("registered", zap.String("username", username))
	return nil
}

// Logout clears the stored token.
func (a *Auth) Logout() error {
	return a.store.ClearToken()
}

// LoggedIn reports whether a token is stored. Whether the server still
// accepts it is the server's call.
func (a *Auth) LoggedIn() bool { return a.store.Token() != "" }
