package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/client/config"
	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/client/upload"
	"github.com/dmitrijs2005/filedash/internal/logging"
)

// ------------ helpers ------------

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

type testApp struct {
	*App
	out   *bytes.Buffer
	auth  *fakeAuth
	files *fakeFiles
}

func newTestApp(input *bufio.Reader) *testApp {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()

	auth := &fakeAuth{}
	files := &fakeFiles{}
	if input == nil {
		input = readerFromLines()
	}
	return &testApp{
		App: &App{
			config:      cfg,
			authService: auth,
			fileService: files,
			logger:      logging.NewNop(),
			reader:      input,
			out:         &out,
		},
		out:   &out,
		auth:  auth,
		files: files,
	}
}

// ------------ fake services ------------

type fakeAuth struct {
	mu sync.Mutex

	user      *models.User
	err       error
	pingErr   error
	logoutErr error

	email    string
	password string
	logouts  int
	pings    int
}

func (f *fakeAuth) Register(_ context.Context, email, password string) (*models.User, error) {
	f.email, f.password = email, password
	return f.user, f.err
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.User, error) {
	f.email, f.password = email, password
	return f.user, f.err
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAuth) Me(context.Context) (*models.User, error) { return f.user, f.err }

func (f *fakeAuth) CurrentEmail(context.Context) (string, error) { return f.email, nil }

func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeAuth) Close(context.Context) error { return nil }

type fakeFiles struct {
	list        *models.FileList
	err         error
	lastQuery   models.ListQuery
	deleted     []string
	downloaded  string
	invalidated int
}

func (f *fakeFiles) List(_ context.Context, q models.ListQuery) (*models.FileList, error) {
	f.lastQuery = q
	return f.list, f.err
}

func (f *fakeFiles) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFiles) Download(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.downloaded = id
	return "/tmp/" + id, nil
}

func (f *fakeFiles) Invalidate() { f.invalidated++ }

// ------------ fake transport ------------

type transportFunc func(ctx context.Context, req client.UploadRequest, onProgress client.ProgressFunc) (*client.UploadResponse, error)

func (f transportFunc) Upload(ctx context.Context, req client.UploadRequest, onProgress client.ProgressFunc) (*client.UploadResponse, error) {
	return f(ctx, req, onProgress)
}

type listerFunc func(ctx context.Context, q models.ListQuery) (*models.FileList, error)

func (f listerFunc) ListFiles(ctx context.Context, q models.ListQuery) (*models.FileList, error) {
	return f(ctx, q)
}

func newUploader(t transportFunc, existing ...models.FileMetadata) *upload.Uploader {
	lister := listerFunc(func(context.Context, models.ListQuery) (*models.FileList, error) {
		return &models.FileList{Files: existing, Total: len(existing)}, nil
	})
	return upload.NewUploader(upload.EngineDeps{Transport: t, Logger: logging.NewNop()},
		upload.NewResolver(lister, logging.NewNop()), upload.NewRegistry())
}
