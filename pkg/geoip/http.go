package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseSize    = 64 * 1024
)

// HTTPOptions configures an HTTPLocator.
type HTTPOptions struct {
	// Token is sent as a bearer token when set.
	Token string
	// URL overrides the backend's request template.
	URL     string
	Timeout time.Duration
	Log     *slog.Logger
}

// HTTPLocator queries one of the HTTP backends.
type HTTPLocator struct {
	backend Backend
	def     Definition
	url     string
	token   string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPLocator creates a locator for an HTTP backend.
func NewHTTPLocator(backend Backend, opts HTTPOptions) (*HTTPLocator, error) {
	def, ok := Catalog[backend]
	if !ok || !backend.IsHTTP() {
		return nil, fmt.Errorf("geoip provider %s is not an HTTP backend", backend)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	url := opts.URL
	if url == "" {
		url = def.URL
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &HTTPLocator{
		backend: backend,
		def:     def,
		url:     url,
		token:   strings.TrimSpace(opts.Token),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// Backend returns the backend queried by l.
func (l *HTTPLocator) Backend() Backend {
	return l.backend
}

// Country implements Locator.
func (l *HTTPLocator) Country(ctx context.Context, ip netip.Addr) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.ReplaceAll(l.url, "{ip}", ip.String()), nil)
	if err != nil {
		return "", &LookupError{Backend: l.backend, IP: ip, Err: err}
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", &LookupError{Backend: l.backend, IP: ip, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			l.log.Warn("failed to close geoip response body", "error", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &LookupError{Backend: l.backend, IP: ip, StatusCode: resp.StatusCode}
	}

	var p payload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&p); err != nil {
		return "", &LookupError{Backend: l.backend, IP: ip, Err: fmt.Errorf("decode response: %w", err)}
	}
	code, ok := l.def.extract(p)
	if !ok {
		return "", ErrNoCountry
	}
	return strings.ToUpper(code), nil
}
