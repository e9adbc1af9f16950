package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testFetcher() *Fetcher {
	return New(time.Second, "dohrules-test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDocumentFromURL(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("| Who runs it | Base URL |\n"))
	}))
	defer server.Close()

	text, err := testFetcher().Document(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	if text != "| Who runs it | Base URL |\n" {
		t.Errorf("unexpected document %q", text)
	}
	if gotUA != "dohrules-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestDocumentErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantErr    error
	}{
		{
			name:       "not found",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) },
			wantStatus: http.StatusNotFound,
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("  \n")) },
			wantErr: ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			text, err := testFetcher().Document(context.Background(), server.URL)
			if text != "" {
				t.Errorf("expected no content on failure, got %q", text)
			}
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("expected NetworkError, got %v", err)
			}
			if netErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, tt.wantStatus)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDocumentTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	f := New(50*time.Millisecond, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := f.Document(context.Background(), server.URL)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}

func TestDocumentFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doh.md")
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	text, err := testFetcher().Document(context.Background(), path)
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	if text != "content" {
		t.Errorf("unexpected document %q", text)
	}

	if _, err := testFetcher().Document(context.Background(), filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDocumentSizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"at limit", strings.Repeat("x", 16), false},
		{"over limit", strings.Repeat("x", 17), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := testFetcher()
			f.maxSize = 16
			text, err := f.Document(context.Background(), server.URL)
			if !tt.wantErr {
				if err != nil || text != tt.body {
					t.Fatalf("Document = %q, %v", text, err)
				}
				return
			}
			if text != "" {
				t.Errorf("expected no partial content, got %d bytes", len(text))
			}
			var netErr *NetworkError
			if !errors.As(err, &netErr) || !errors.Is(err, ErrDocumentTooLarge) {
				t.Fatalf("expected NetworkError wrapping ErrDocumentTooLarge, got %v", err)
			}
		})
	}
}
