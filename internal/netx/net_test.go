package netx

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownload(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotMethod string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			_, _ = w.Write([]byte("hello, s3"))
		}))
		defer ts.Close()

		var buf bytes.Buffer
		n, err := Download(context.Background(), nil, ts.URL+"/obj?X-Amz-Signature=abc", &buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Fatalf("method = %q, want GET", gotMethod)
		}
		if n != 9 || buf.String() != "hello, s3" {
			t.Fatalf("got %d bytes %q", n, buf.String())
		}
	})

	t.Run("non-200 returns error with status and body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer ts.Close()

		_, err := Download(context.Background(), nil, ts.URL, &bytes.Buffer{})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		msg := err.Error()
		if !strings.Contains(msg, "403") || !strings.Contains(msg, "SignatureDoesNotMatch") {
			t.Fatalf("error %q should mention status and body", msg)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := Download(context.Background(), nil, "://bad", &bytes.Buffer{})
		if err == nil {
			t.Fatal("expected error for invalid url")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Download(ctx, nil, ts.URL, &bytes.Buffer{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestDownloadToFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer ts.Close()

	dir := t.TempDir()

	path := filepath.Join(dir, "a.txt")
	n, err := DownloadToFile(context.Background(), ts.Client(), ts.URL+"/ok", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := os.ReadFile(path)
	if n != 7 || string(got) != "payload" {
		t.Fatalf("got %d bytes %q", n, got)
	}

	if _, err := DownloadToFile(context.Background(), ts.Client(), ts.URL+"/ok", path); err == nil {
		t.Fatal("expected error when target exists")
	}

	failed := filepath.Join(dir, "b.txt")
	if _, err := DownloadToFile(context.Background(), ts.Client(), ts.URL+"/missing", failed); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := os.Stat(failed); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}
