package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/filedash/internal/client/models"
)

// Client is the API surface the CLI services use.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*models.User, error)

	ListFiles(ctx context.Context, q models.ListQuery) (*models.FileList, error)
	DeleteFile(ctx context.Context, id string) error
	DownloadURL(ctx context.Context, id string) (string, error)
	Upload(ctx context.Context, req UploadRequest, onProgress ProgressFunc) (*UploadResponse, error)
}

// TokenStore is where the client reads and persists credentials. Reads
// happen on every request so a refreshed token is picked up immediately.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SaveTokens(ctx context.Context, pair models.TokenPair) error
}

// ProgressFunc receives the bytes handed to the network so far.
type ProgressFunc func(sent, total int64)

// UploadRequest describes one file upload. Token is sent as the bearer
// credential as-is; callers fetch it right before sending.
type UploadRequest struct {
	Filename  string
	Size      int64
	Body      io.Reader
	Overwrite bool
	Token     string
}

type UploadResponse struct {
	File    models.FileMetadata `json:"file"`
	Message string              `json:"message"`
}
