package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/filedash/internal/dbx"
)

// TokenStore keeps the session credentials in the local metadata table.
// It satisfies client.TokenStore and upload.CredentialSource.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (s *TokenStore) AccessToken(ctx context.Context) (string, error) {
	return s.repo(s.db).Get(ctx, metadata.KeyAccessToken)
}

func (s *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	return s.repo(s.db).Get(ctx, metadata.KeyRefreshToken)
}

// Token is the access token read fresh for each upload.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	return s.AccessToken(ctx)
}

func (s *TokenStore) Email(ctx context.Context) (string, error) {
	return s.repo(s.db).Get(ctx, metadata.KeyEmail)
}

// SaveTokens replaces both tokens atomically.
func (s *TokenStore) SaveTokens(ctx context.Context, pair models.TokenPair) error {
	return s.save(ctx, map[string]string{
		metadata.KeyAccessToken:  pair.AccessToken,
		metadata.KeyRefreshToken: pair.RefreshToken,
	})
}

// SaveSession stores tokens together with the signed-in email.
func (s *TokenStore) SaveSession(ctx context.Context, pair models.TokenPair, email string) error {
	return s.save(ctx, map[string]string{
		metadata.KeyAccessToken:  pair.AccessToken,
		metadata.KeyRefreshToken: pair.RefreshToken,
		metadata.KeyEmail:        email,
	})
}

func (s *TokenStore) save(ctx context.Context, values map[string]string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).SetMany(ctx, values)
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear forgets the session.
func (s *TokenStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, k := range []string{metadata.KeyAccessToken, metadata.KeyRefreshToken, metadata.KeyEmail} {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
