package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/dbx"
	"github.com/dmitrijs2005/filedash/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// sortColumns maps the accepted sort_by values to columns. Anything else
// sorts by upload time.
var sortColumns = map[string]string{
	"name":        "filename",
	"filename":    "filename",
	"date":        "uploaded_at",
	"uploaded_at": "uploaded_at",
	"size":        "file_size",
	"file_size":   "file_size",
}

const fileColumns = `id, user_id, filename, file_size, content_type, storage_path, thumbnail_path, uploaded_at`

// PostgresRepository implements file metadata storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (id, user_id, filename, file_size, content_type, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.UserID, file.Filename, file.FileSize, file.ContentType, file.StoragePath).
		Scan(&file.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 AND id = $2`
	return scanFile(r.db.QueryRowContext(ctx, query, userID, id))
}

func (r *PostgresRepository) FindByFilename(ctx context.Context, userID, filename string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 AND lower(filename) = lower($2)`
	return scanFile(r.db.QueryRowContext(ctx, query, userID, filename))
}

// List returns one page ordered by q.SortBy. Ties are broken by id so that
// pages do not overlap.
func (r *PostgresRepository) List(ctx context.Context, q models.FileQuery) ([]*models.File, error) {
	where, args := filter(q)
	query := fmt.Sprintf(`SELECT %s FROM files WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		fileColumns, where, sortColumn(q.SortBy), sortDirection(q.SortOrder), len(args)+1, len(args)+2)
	args = append(args, q.PageSize, q.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0, q.PageSize)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, q models.FileQuery) (int, error) {
	where, args := filter(q)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM files WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateThumbnail(ctx context.Context, id, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE files SET thumbnail_path = $1 WHERE id = $2`, path, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func filter(q models.FileQuery) (string, []any) {
	where := "user_id = $1"
	args := []any{q.UserID}
	if q.Filename != "" {
		where += " AND lower(filename) = lower($2)"
		args = append(args, q.Filename)
	}
	return where, args
}

func sortColumn(sortBy string) string {
	if c, ok := sortColumns[strings.ToLower(sortBy)]; ok {
		return c
	}
	return "uploaded_at"
}

func sortDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.UserID, &f.Filename, &f.FileSize, &f.ContentType, &f.StoragePath, &f.ThumbnailPath, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
