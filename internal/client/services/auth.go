// Package services contains the application services behind the CLI:
// authentication with locally persisted tokens and the file listing,
// deletion and download operations.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/logging"
)

// ErrNotLoggedIn is returned when an operation needs a session and none
// is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// Canceller stops every in-flight upload. *upload.Registry implements it.
type Canceller interface {
	CancelAll() int
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register and Login persist the returned token pair and email.
//   - Logout cancels active uploads first, then revokes the refresh
//     token on the server and always clears the local session.
//   - Ping checks server liveness.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	CurrentEmail(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client  client.Client
	tokens  *TokenStore
	uploads Canceller
	logger  logging.Logger
}

func NewAuthService(c client.Client, tokens *TokenStore, uploads Canceller, logger logging.Logger) AuthService {
	return &authService{
		client:  c,
		tokens:  tokens,
		uploads: uploads,
		logger:  logger.With("module", "auth_service"),
	}
}

func (a *authService) Register(ctx context.Context, email, password string) (*models.User, error) {
	res, err := a.client.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.tokens.SaveSession(ctx, res.TokenPair, res.User.Email); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if err := a.tokens.SaveSession(ctx, res.TokenPair, res.User.Email); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &res.User, nil
}

// Logout never fails because of the server: a session that cannot be
// revoked remotely is still dropped locally.
func (a *authService) Logout(ctx context.Context) error {
	if a.uploads != nil {
		if n := a.uploads.CancelAll(); n > 0 {
			a.logger.Info(ctx, "cancelled active uploads", "count", n)
		}
	}

	refresh, err := a.tokens.RefreshToken(ctx)
	if err != nil {
		a.logger.Warn(ctx, "read refresh token", "error", err)
	}
	if refresh != "" {
		if err := a.client.Logout(ctx, refresh); err != nil {
			a.logger.Warn(ctx, "server logout failed", "error", err)
		}
	}

	return a.tokens.Clear(ctx)
}

func (a *authService) Me(ctx context.Context) (*models.User, error) {
	return a.client.Me(ctx)
}

// CurrentEmail returns ErrNotLoggedIn when no session is stored.
func (a *authService) CurrentEmail(ctx context.Context) (string, error) {
	access, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if access == "" {
		return "", ErrNotLoggedIn
	}
	return a.tokens.Email(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
