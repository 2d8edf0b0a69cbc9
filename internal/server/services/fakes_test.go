package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/dbx"
	"github.com/dmitrijs2005/filedash/internal/server/models"
	filesrepo "github.com/dmitrijs2005/filedash/internal/server/repositories/files"
	refreshtokensrepo "github.com/dmitrijs2005/filedash/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/filedash/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
	err   error
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("u-%d", m.seq)
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type memTokens struct {
	mu        sync.Mutex
	tokens    map[string]*models.RefreshToken
	createErr error
}

func (m *memTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (m *memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (m *memTokens) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, rt := range m.tokens {
		if rt.Expires.Before(now) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok
}

type memFiles struct {
	mu        sync.Mutex
	files     map[string]*models.File
	createErr error
	findErr   error
}

func (m *memFiles) Create(_ context.Context, f *models.File) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.files {
		if existing.UserID == f.UserID && strings.EqualFold(existing.Filename, f.Filename) {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.UploadedAt = time.Now()
	cp := *f
	m.files[f.ID] = &cp
	return f, nil
}

func (m *memFiles) GetByID(_ context.Context, userID, id string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFiles) FindByFilename(_ context.Context, userID, filename string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, f := range m.files {
		if f.UserID == userID && strings.EqualFold(f.Filename, filename) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

// matching returns the user's files sorted by name.
func (m *memFiles) matching(q models.FileQuery) []*models.File {
	var out []*models.File
	for _, f := range m.files {
		if f.UserID != q.UserID {
			continue
		}
		if q.Filename != "" && !strings.EqualFold(f.Filename, q.Filename) {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

func (m *memFiles) List(_ context.Context, q models.FileQuery) ([]*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(q)
	start := min(q.Offset(), len(all))
	end := min(start+q.PageSize, len(all))
	return all[start:end], nil
}

func (m *memFiles) Count(_ context.Context, q models.FileQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(q)), nil
}

func (m *memFiles) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return common.ErrorNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *memFiles) UpdateThumbnail(_ context.Context, id, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.ThumbnailPath = path
	return nil
}

func (m *memFiles) get(id string) *models.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil
	}
	cp := *f
	return &cp
}

type fakeRepoManager struct {
	users  *memUsers
	tokens *memTokens
	files  *memFiles
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:  &memUsers{users: map[string]*models.User{}},
		tokens: &memTokens{tokens: map[string]*models.RefreshToken{}},
		files:  &memFiles{files: map[string]*models.File{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository {
	return m.users
}

func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return m.tokens
}

func (m *fakeRepoManager) Files(dbx.DBTX) filesrepo.Repository {
	return m.files
}

type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Put(_ context.Context, key string, body io.Reader, size int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(b), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.test/" + key + "?ttl=" + ttl.String(), nil
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
