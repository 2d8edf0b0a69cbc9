package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	saved   int
}

func (m *memTokens) AccessToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, nil
}

func (m *memTokens) RefreshToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, nil
}

func (m *memTokens) SaveTokens(_ context.Context, p models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = p.AccessToken, p.RefreshToken
	m.saved++
	return nil
}

func newTestClient(t *testing.T, h http.Handler, tokens TokenStore) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL, tokens)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("not a url", nil)
	require.Error(t, err)
	_, err = NewHTTPClient("/relative", nil)
	require.Error(t, err)
}

func TestLogin_DecodesEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.c", in["email"])
		assert.Equal(t, "Secret123", in["password"])

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"access_token":  "acc",
				"refresh_token": "ref",
				"user":          map[string]any{"id": "u1", "email": "a@b.c"},
			},
		})
	}), nil)

	res, err := c.Login(context.Background(), "a@b.c", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "acc", res.AccessToken)
	assert.Equal(t, "ref", res.RefreshToken)
	assert.Equal(t, "u1", res.User.ID)
}

func TestLogin_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid credentials"})
	}), nil)

	_, err := c.Login(context.Background(), "a@b.c", "bad")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestRegister_ConflictIsHTTPError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "error": "email already registered"})
	}), nil)

	_, err := c.Register(context.Background(), "a@b.c", "Secret123")
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusConflict, he.StatusCode)
	d, ok := he.Detail()
	assert.True(t, ok)
	assert.Equal(t, "email already registered", d)
}

func TestEnvelopeFailureWithOKStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "nope"})
	}), nil)

	_, err := c.Login(context.Background(), "a@b.c", "x")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestListFiles_SendsQueryAndBearer(t *testing.T) {
	tokens := &memTokens{access: "acc1"}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "Bearer acc1", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "size", r.URL.Query().Get("sort_by"))
		writeJSON(w, http.StatusOK, models.FileList{
			Files: []models.FileMetadata{{ID: "f1", Filename: "a.txt", FileSize: 3}},
			Total: 1, Page: 2, PageSize: 20, TotalPages: 1,
		})
	}), tokens)

	list, err := c.ListFiles(context.Background(), models.ListQuery{Page: 2, SortBy: "size"})
	require.NoError(t, err)
	require.Len(t, list.Files, 1)
	assert.Equal(t, "a.txt", list.Files[0].Filename)
}

func TestAuthenticatedCall_WithoutToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	}), &memTokens{})

	_, err := c.ListFiles(context.Background(), models.ListQuery{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestExpiredToken_RefreshesOnceAndRetries(t *testing.T) {
	tokens := &memTokens{access: "old", refresh: "r1"}
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "r1", in["refresh_token"])
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]string{"access_token": "new", "refresh_token": "r2"},
			})
		case "/files/f1":
			calls++
			if r.Header.Get("Authorization") == "Bearer old" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
				return
			}
			assert.Equal(t, "Bearer new", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}
	}), tokens)

	require.NoError(t, c.DeleteFile(context.Background(), "f1"))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "new", tokens.access)
	assert.Equal(t, "r2", tokens.refresh)
	assert.Equal(t, 1, tokens.saved)
}

func TestOtherUnauthorized_NoRefresh(t *testing.T) {
	tokens := &memTokens{access: "acc", refresh: "r1"}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			t.Fatal("refresh must not be called")
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
	}), tokens)

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, tokens.saved)
}

func TestDeleteFile_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "File not found"})
	}), &memTokens{access: "a"})

	err := c.DeleteFile(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadURL_ReadsRedirectLocation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/f1/download", r.URL.Path)
		http.Redirect(w, r, "https://s3.local/bucket/u/f1/a.txt?sig=1", http.StatusTemporaryRedirect)
	}), &memTokens{access: "a"})

	u, err := c.DownloadURL(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/bucket/u/f1/a.txt?sig=1", u)
}

func TestPing_HTTPFallback(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), nil)

	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestTransportFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewHTTPClient(srv.URL, &memTokens{access: "a"})
	require.NoError(t, err)

	_, err = c.ListFiles(context.Background(), models.ListQuery{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestUpload_StreamsMultipartAndReportsProgress(t *testing.T) {
	content := strings.Repeat("x", 256*1024)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/upload", r.URL.Path)
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))

		mr, err := r.MultipartReader()
		require.NoError(t, err)

		var gotOverwrite bool
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			switch part.FormName() {
			case "overwrite":
				b, _ := io.ReadAll(part)
				gotOverwrite = string(b) == "true"
			case "file":
				assert.Equal(t, "a.txt", part.FileName())
				b, _ := io.ReadAll(part)
				assert.Equal(t, len(content), len(b))
			}
		}
		assert.True(t, gotOverwrite)

		writeJSON(w, http.StatusCreated, map[string]any{
			"file":    map[string]any{"id": "f1", "filename": "a.txt", "file_size": len(content)},
			"message": "File uploaded successfully",
		})
	}), nil)

	var last, total int64
	var calls int
	resp, err := c.Upload(context.Background(), UploadRequest{
		Filename:  "a.txt",
		Size:      int64(len(content)),
		Body:      strings.NewReader(content),
		Overwrite: true,
		Token:     "fresh",
	}, func(sent, tot int64) {
		assert.GreaterOrEqual(t, sent, last)
		last, total = sent, tot
		calls++
	})
	require.NoError(t, err)
	assert.Equal(t, "f1", resp.File.ID)
	assert.Equal(t, "File uploaded successfully", resp.Message)
	assert.Equal(t, int64(len(content)), last)
	assert.Equal(t, int64(len(content)), total)
	assert.Positive(t, calls)
}

func TestWriteMultipart_ReportsOnlyWrittenBytes(t *testing.T) {
	body := strings.Repeat("0123456789abcdef", 8192)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	var reports []int64
	onProgress := func(sent, total int64) {
		require.Equal(t, int64(len(body)), total)
		require.True(t, strings.HasSuffix(buf.String(), body[:sent]), "reported %d bytes before they were written", sent)
		reports = append(reports, sent)
	}

	req := UploadRequest{Filename: "a.txt", Size: int64(len(body)), Body: strings.NewReader(body)}
	require.NoError(t, writeMultipart(mw, req, onProgress))

	require.NotEmpty(t, reports)
	assert.Equal(t, int64(len(body)), reports[len(reports)-1])
	assert.IsIncreasing(t, reports)
}

func TestUpload_NonSuccessIsHTTPError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"detail": "too large"})
	}), nil)

	_, err := c.Upload(context.Background(), UploadRequest{Filename: "a", Size: 1, Body: strings.NewReader("a")}, nil)
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusRequestEntityTooLarge, he.StatusCode)
	d, ok := he.Detail()
	assert.True(t, ok)
	assert.Equal(t, "too large", d)
}

func TestUpload_UndecodableSuccessBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("<html>ok</html>"))
	}), nil)

	_, err := c.Upload(context.Background(), UploadRequest{Filename: "a", Size: 1, Body: strings.NewReader("a")}, nil)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestUpload_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}), nil)
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Upload(ctx, UploadRequest{Filename: "a", Size: 1, Body: strings.NewReader("a")}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPError_DetailShapes(t *testing.T) {
	tests := []struct {
		body   string
		want   string
		wantOK bool
	}{
		{`{"detail":"too large"}`, "too large", true},
		{`{"detail":{"message":"File with this name already exists","existing_file":{}}}`, "File with this name already exists", true},
		{`{"success":false,"error":"boom"}`, "boom", true},
		{`{"detail":""}`, "", false},
		{`not json`, "", false},
		{``, "", false},
	}
	for _, tt := range tests {
		e := &HTTPError{StatusCode: 400, Body: []byte(tt.body)}
		got, ok := e.Detail()
		assert.Equal(t, tt.wantOK, ok, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}

	assert.Equal(t, "http 413: Request Entity Too Large", (&HTTPError{StatusCode: 413}).Error())
}
