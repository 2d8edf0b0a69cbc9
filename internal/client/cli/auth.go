package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register prompts for an email and password and creates an account. The
// new session is stored right away.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	u, err := a.authService.Register(ctx, email, string(password))
	if err != nil {
		a.printf("Registration failed: %s\n", describe(err))
		return err
	}
	a.setEmail(u.Email)
	a.printf("Welcome, %s!\n", u.Email)
	return nil
}

// Login prompts for credentials and stores the session on success.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	u, err := a.authService.Login(ctx, email, string(password))
	if err != nil {
		a.printf("Login unsuccessful: %s\n", describe(err))
		return err
	}
	a.setEmail(u.Email)
	a.setMode(ModeOnline)
	a.printf("Logged in as %s\n", u.Email)
	return nil
}

// Logout cancels running uploads and drops the stored session.
func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.authService.Logout(ctx); err != nil {
		a.printf("Logout failed: %s\n", describe(err))
		return err
	}
	a.setEmail("")
	a.printf("Logged out\n")
	return nil
}

// WhoAmI asks the server who the stored token belongs to.
func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	u, err := a.authService.Me(ctx)
	if err != nil {
		a.printf("%s\n", describe(err))
		return err
	}
	a.printf("%s (id %s, since %s)\n", u.Email, u.ID, u.CreatedAt.Format("2006-01-02"))
	return nil
}

// describe turns client errors into short user-facing text.
func describe(err error) string {
	var httpErr *client.HTTPError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return "not authorized, please log in"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, client.ErrNotFound):
		return "not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &httpErr):
		if d, ok := httpErr.Detail(); ok {
			return d
		}
		return fmt.Sprintf("request failed with status %d", httpErr.StatusCode)
	default:
		return err.Error()
	}
}
