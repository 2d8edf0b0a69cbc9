// Package metadata stores small client-side key/value settings such as the
// current session's tokens.
package metadata

import "context"

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyEmail        = "email"
)

type Repository interface {
	// Get returns "" and no error when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
