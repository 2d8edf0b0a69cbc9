package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/client/repositories"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupStore(t *testing.T) *TokenStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repos, err := repositories.Open(context.Background(), "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return NewTokenStore(repos.DB)
}

// ---- fake client ----

type fakeClient struct {
	mu sync.Mutex

	CloseErr  error
	PingErr   error
	LogoutErr error

	AuthRet     *models.AuthResult
	AuthErr     error
	MeRet       *models.User
	ListRet     *models.FileList
	ListErr     error
	DeleteErr   error
	DownloadRet string
	DownloadErr error

	ListCalls     int
	LastQuery     models.ListQuery
	LastLogoutTok string
	LogoutCalls   int
	LastDeleted   string
	LastEmail     string
	LastPassword  string
}

func (f *fakeClient) Close() error { return f.CloseErr }
func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) Register(ctx context.Context, email, password string) (*models.AuthResult, error) {
	f.LastEmail, f.LastPassword = email, password
	return f.AuthRet, f.AuthErr
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	f.LastEmail, f.LastPassword = email, password
	return f.AuthRet, f.AuthErr
}

func (f *fakeClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	return nil, client.ErrUnauthorized
}

func (f *fakeClient) Logout(ctx context.Context, refreshToken string) error {
	f.LogoutCalls++
	f.LastLogoutTok = refreshToken
	return f.LogoutErr
}

func (f *fakeClient) Me(ctx context.Context) (*models.User, error) {
	if f.MeRet == nil {
		return nil, client.ErrUnauthorized
	}
	return f.MeRet, nil
}

func (f *fakeClient) ListFiles(ctx context.Context, q models.ListQuery) (*models.FileList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	f.LastQuery = q
	return f.ListRet, f.ListErr
}

func (f *fakeClient) DeleteFile(ctx context.Context, id string) error {
	f.LastDeleted = id
	return f.DeleteErr
}

func (f *fakeClient) DownloadURL(ctx context.Context, id string) (string, error) {
	return f.DownloadRet, f.DownloadErr
}

func (f *fakeClient) Upload(ctx context.Context, req client.UploadRequest, onProgress client.ProgressFunc) (*client.UploadResponse, error) {
	return nil, client.ErrUnavailable
}

var _ client.Client = (*fakeClient)(nil)
