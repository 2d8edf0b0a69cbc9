package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/filex"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/dmitrijs2005/filedash/internal/netx"
)

// DefaultListTTL bounds how stale a cached listing page may get.
const DefaultListTTL = 30 * time.Second

// FileService lists, deletes and downloads the user's files. Listings are
// cached until Invalidate or a mutating call.
type FileService interface {
	List(ctx context.Context, q models.ListQuery) (*models.FileList, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string) (string, error)
	Invalidate()
}

type fileService struct {
	client      client.Client
	cache       *listCache
	http        *http.Client
	downloadDir string
	logger      logging.Logger
}

func NewFileService(c client.Client, downloadDir string, logger logging.Logger) FileService {
	return newFileService(c, downloadDir, DefaultListTTL, logger)
}

func newFileService(c client.Client, downloadDir string, ttl time.Duration, logger logging.Logger) *fileService {
	return &fileService{
		client:      c,
		cache:       newListCache(ttl),
		http:        &http.Client{Timeout: 10 * time.Minute},
		downloadDir: downloadDir,
		logger:      logger.With("module", "file_service"),
	}
}

func (s *fileService) List(ctx context.Context, q models.ListQuery) (*models.FileList, error) {
	key := q.Key()
	if list, ok := s.cache.get(key); ok {
		return list, nil
	}

	list, err := s.client.ListFiles(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.put(key, list)
	return list, nil
}

func (s *fileService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}
	s.Invalidate()
	return nil
}

// Download saves the file into the download directory under its stored
// name, adding a " (n)" suffix instead of overwriting.
func (s *fileService) Download(ctx context.Context, id string) (string, error) {
	link, err := s.client.DownloadURL(ctx, id)
	if err != nil {
		return "", fmt.Errorf("error resolving download link: %w", err)
	}

	dir, err := filex.EnsureDir(s.downloadDir)
	if err != nil {
		return "", err
	}
	target := filex.UniquePath(filepath.Join(dir, nameFromLink(link, id)))

	n, err := netx.DownloadToFile(ctx, s.http, link, target)
	if err != nil {
		return "", fmt.Errorf("error downloading file: %w", err)
	}
	s.logger.Info(ctx, "file downloaded", "file_id", id, "path", target, "bytes", n)
	return target, nil
}

func (s *fileService) Invalidate() {
	s.cache.invalidate()
}

// nameFromLink takes the last path segment of a storage link, which is
// the original filename; fallback is used when that is not usable.
func nameFromLink(link, fallback string) string {
	u, err := url.Parse(link)
	if err != nil {
		return fallback
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return filepath.Base(name)
}
