// Package files declares the repository contract for stored file metadata.
package files

import (
	"context"

	"github.com/dmitrijs2005/filedash/internal/server/models"
)

// Repository is scoped by user: every read and delete takes the owner id,
// so one user can never see another user's rows.
type Repository interface {
	// Create inserts file. It returns common.ErrorAlreadyExists when the
	// owner already has a file with the same name, ignoring case.
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, userID, id string) (*models.File, error)
	FindByFilename(ctx context.Context, userID, filename string) (*models.File, error)
	List(ctx context.Context, q models.FileQuery) ([]*models.File, error)
	Count(ctx context.Context, q models.FileQuery) (int, error)
	// Delete returns common.ErrorNotFound when no row matched.
	Delete(ctx context.Context, userID, id string) error
	UpdateThumbnail(ctx context.Context, id, path string) error
}
