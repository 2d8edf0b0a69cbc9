package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/filedash/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigratesAndPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "filedash.db")

	repos, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repos.Metadata.Set(ctx, metadata.KeyEmail, "me@example.com"))
	require.NoError(t, repos.Close())

	repos, err = Open(ctx, path)
	require.NoError(t, err)
	defer repos.Close()

	v, err := repos.Metadata.Get(ctx, metadata.KeyEmail)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", v)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	require.Error(t, err)
}
