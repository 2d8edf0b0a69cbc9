package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/client/config"
	"github.com/dmitrijs2005/filedash/internal/client/repositories"
	"github.com/dmitrijs2005/filedash/internal/client/services"
	"github.com/dmitrijs2005/filedash/internal/client/upload"
	"github.com/dmitrijs2005/filedash/internal/filex"
	"github.com/dmitrijs2005/filedash/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Uploader starts upload sessions. *upload.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, file upload.File, opts upload.Options) (*upload.Session, error)
	Active() *upload.Session
}

type App struct {
	config      *config.Config
	authService services.AuthService
	fileService services.FileService
	uploader    Uploader
	logger      logging.Logger

	reader *bufio.Reader
	out    io.Writer

	mu    sync.Mutex
	mode  Mode
	email string

	closers []func() error
}

// NewApp opens the local session database and wires the API client, the
// services and the uploader.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureDir(filepath.Dir(c.DBPath)); err != nil {
		return nil, err
	}
	repos, err := repositories.Open(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	tokens := services.NewTokenStore(repos.DB)
	api, err := client.NewHTTPClient(c.ServerURL, tokens,
		client.WithLogger(logger),
		client.WithHTTPClient(&http.Client{}),
		client.WithHealthAddr(c.HealthAddr),
	)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	registry := upload.NewRegistry()
	fs := services.NewFileService(api, c.DownloadDir, logger)
	as := services.NewAuthService(api, tokens, registry, logger)
	uploader := upload.NewUploader(upload.EngineDeps{
		Transport:   api,
		Credentials: tokens,
		Cache:       fs,
		Logger:      logger,
	}, upload.NewResolver(api, logger), registry)

	a := &App{
		config:      c,
		authService: as,
		fileService: fs,
		uploader:    uploader,
		logger:      logger.With("module", "cli"),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		closers:     []func() error{api.Close, repos.Close},
	}
	if email, err := as.CurrentEmail(ctx); err == nil {
		a.email = email
	}
	return a, nil
}

// Close cancels whatever is still uploading and releases resources.
func (a *App) Close() error {
	if s := a.uploader.Active(); s != nil {
		s.Cancel()
		<-s.Done()
	}
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setEmail(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.email = email
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.email != ""
}

// getStatus renders "(email mode)" for the prompt.
func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ""
	if a.email != "" {
		s = a.email + " "
	}
	s += string(a.mode)
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval until ctx is
// done and flips the mode accordingly.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.probe(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(pctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// requestContext bounds a non-upload request by the configured timeout.
func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
