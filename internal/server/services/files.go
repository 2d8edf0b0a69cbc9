package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/dbx"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/dmitrijs2005/filedash/internal/server/config"
	"github.com/dmitrijs2005/filedash/internal/server/models"
	"github.com/dmitrijs2005/filedash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedash/internal/server/storage"
	"github.com/dmitrijs2005/filedash/internal/server/thumbnail"
	"github.com/dmitrijs2005/filedash/internal/validation"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	thumbnailTimeout = 30 * time.Second
)

// sortKeys lists the accepted sort_by values.
var sortKeys = map[string]struct{}{
	"name": {}, "date": {}, "size": {},
	"filename": {}, "file_size": {}, "uploaded_at": {},
}

// ValidSortBy reports whether s names a sortable column.
func ValidSortBy(s string) bool {
	_, ok := sortKeys[strings.ToLower(s)]
	return ok
}

// UploadInput describes one incoming file.
type UploadInput struct {
	UserID      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Overwrite   bool
}

// FileView is a file plus its presigned thumbnail link, if any.
type FileView struct {
	*models.File
	ThumbnailURL string
}

// FileList is one page of a user's files.
type FileList struct {
	Files      []FileView
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// FileService stores uploads in object storage and their metadata in the
// database. Thumbnails for images are rendered in the background.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     storage.Storage
	logger      logging.Logger
	maxSize     int64
	urlTTL      time.Duration
	newID       func() string

	jobs sync.WaitGroup
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, cfg *config.Config, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		storage:     st,
		logger:      logger.With("module", "files"),
		maxSize:     cfg.MaxUploadSize,
		urlTTL:      cfg.SignedURLTTL,
		newID:       uuid.NewString,
	}
}

// StoragePath is the object key of a file's content.
func StoragePath(userID, fileID, filename string) string {
	return path.Join(userID, fileID, filename)
}

// Upload validates, stores and records one file. A name clash without
// Overwrite returns *ConflictError; with Overwrite the previous file is
// replaced and its objects removed once the new row is committed.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.File, error) {
	if err := validation.ValidateFile(in.Filename, in.Size); err != nil {
		return nil, err
	}
	if in.Size > s.maxSize {
		return nil, &validation.ValidationError{
			Kind:    validation.KindTooLarge,
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", s.maxSize/(1024*1024)),
		}
	}

	existing, err := s.repomanager.Files(s.db).FindByFilename(ctx, in.UserID, in.Filename)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil && !in.Overwrite {
		return nil, &ConflictError{Existing: existing}
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := s.newID()
	file := &models.File{
		ID:          id,
		UserID:      in.UserID,
		Filename:    in.Filename,
		FileSize:    in.Size,
		ContentType: contentType,
		StoragePath: StoragePath(in.UserID, id, in.Filename),
	}

	if err := s.storage.Put(ctx, file.StoragePath, in.Body, in.Size, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	created, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.File, error) {
		repo := s.repomanager.Files(tx)
		if existing != nil {
			if err := repo.Delete(ctx, in.UserID, existing.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return nil, err
			}
		}
		return repo.Create(ctx, file)
	})
	if err != nil {
		s.removeObjects(ctx, file)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, &ConflictError{Existing: existing}
		}
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	if existing != nil {
		s.removeObjects(ctx, existing)
	}

	s.logger.Info(ctx, "file uploaded", "file_id", created.ID, "user_id", created.UserID, "size", created.FileSize)

	if thumbnail.IsImage(created.ContentType, created.Filename) {
		s.scheduleThumbnail(created)
	}
	return created, nil
}

// scheduleThumbnail renders the thumbnail off the request path. Failures
// are logged and leave the file without a thumbnail.
func (s *FileService) scheduleThumbnail(f *models.File) {
	file := *f
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), thumbnailTimeout)
		defer cancel()
		if err := s.makeThumbnail(ctx, &file); err != nil {
			s.logger.Warn(ctx, "thumbnail failed", "file_id", file.ID, "error", err)
		}
	}()
}

func (s *FileService) makeThumbnail(ctx context.Context, f *models.File) error {
	rc, err := s.storage.Get(ctx, f.StoragePath)
	if err != nil {
		return err
	}
	defer rc.Close()

	png, err := thumbnail.Generate(rc)
	if err != nil {
		return err
	}

	key := path.Join(path.Dir(f.StoragePath), thumbnail.Name)
	if err := s.storage.Put(ctx, key, bytes.NewReader(png), int64(len(png)), "image/png"); err != nil {
		return err
	}
	if err := s.repomanager.Files(s.db).UpdateThumbnail(ctx, f.ID, key); err != nil {
		// The file was deleted while rendering.
		_ = s.storage.Delete(ctx, key)
		return err
	}
	return nil
}

// Wait blocks until every background thumbnail job has finished.
func (s *FileService) Wait() {
	s.jobs.Wait()
}

// NormalizeQuery fills in defaults and rejects out-of-range paging.
func NormalizeQuery(q models.FileQuery) (models.FileQuery, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 {
		return q, &InputError{Message: "page must be at least 1"}
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return q, &InputError{Message: fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize)}
	}
	if q.SortBy == "" {
		q.SortBy = "date"
	}
	if !ValidSortBy(q.SortBy) {
		return q, &InputError{Message: "sort_by must be one of name, date, size"}
	}
	switch strings.ToLower(q.SortOrder) {
	case "":
		q.SortOrder = "desc"
	case "asc", "desc":
		q.SortOrder = strings.ToLower(q.SortOrder)
	default:
		return q, &InputError{Message: "sort_order must be asc or desc"}
	}
	return q, nil
}

func (s *FileService) List(ctx context.Context, q models.FileQuery) (*FileList, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Files(s.db)
	total, err := repo.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	views := make([]FileView, 0, len(rows))
	for _, f := range rows {
		v := FileView{File: f}
		if f.HasThumbnail() {
			link, err := s.storage.PresignGet(ctx, f.ThumbnailPath, s.urlTTL)
			if err != nil {
				s.logger.Warn(ctx, "thumbnail link failed", "file_id", f.ID, "error", err)
			} else {
				v.ThumbnailURL = link
			}
		}
		views = append(views, v)
	}

	return &FileList{
		Files:      views,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
	}, nil
}

// Delete removes the metadata row, then the stored objects. Storage
// failures are logged only; the row is already gone.
func (s *FileService) Delete(ctx context.Context, userID, id string) error {
	repo := s.repomanager.Files(s.db)
	f, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.removeObjects(ctx, f)
	s.logger.Info(ctx, "file deleted", "file_id", id, "user_id", userID)
	return nil
}

// DownloadURL returns a presigned link to the file content.
func (s *FileService) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignGet(ctx, f.StoragePath, s.urlTTL)
}

func (s *FileService) removeObjects(ctx context.Context, f *models.File) {
	keys := []string{f.StoragePath, path.Join(path.Dir(f.StoragePath), thumbnail.Name)}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "object delete failed", "key", key, "error", err)
		}
	}
}
