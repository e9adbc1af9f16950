// Package fetch retrieves the source document listing DoH providers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultURL is the curl wiki page listing public DoH servers.
	DefaultURL = "https://raw.githubusercontent.com/wiki/curl/curl/DNS-over-HTTPS.md"

	defaultTimeout  = 30 * time.Second
	maxDocumentSize = 16 * 1024 * 1024
)

var (
	// ErrEmptyDocument is returned when the source answered with no content.
	ErrEmptyDocument = errors.New("empty document")
	// ErrDocumentTooLarge is returned when the source answered with more than the size limit.
	ErrDocumentTooLarge = errors.New("document too large")
)

// NetworkError reports a failed document download.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Fetcher downloads the document from a URL or reads it from a local file.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxSize   int64
	log       *slog.Logger
}

// New creates a Fetcher with the given request timeout.
func New(timeout time.Duration, userAgent string, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxSize:   maxDocumentSize,
		log:       log,
	}
}

// Document returns the full text at location. Partial content is never returned.
func (f *Fetcher) Document(ctx context.Context, location string) (string, error) {
	if !isURL(location) {
		return readFile(location)
	}

	f.log.Info("fetching source document", "url", location)
	data, err := f.download(ctx, location)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", &NetworkError{URL: location, Err: ErrEmptyDocument}
	}
	f.log.Info("fetched source document", "url", location, "bytes", len(data))
	return string(data), nil
}

func (f *Fetcher) download(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &NetworkError{URL: location, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: location, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.log.Warn("failed to close document response body", "error", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &NetworkError{URL: location, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &NetworkError{URL: location, Err: err}
	}
	if int64(len(data)) > f.maxSize {
		return nil, &NetworkError{URL: location, Err: ErrDocumentTooLarge}
	}
	return data, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is provided via config.
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("read document %s: %w", path, ErrEmptyDocument)
	}
	return string(data), nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
