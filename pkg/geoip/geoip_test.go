package geoip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input   string
		want    Backend
		wantErr bool
	}{
		{"ip-api", IPAPI, false},
		{"IPAPI", IPAPICo, false},
		{" ipinfo ", IPInfo, false},
		{"maxmind", MaxMind, false},
		{"geoip-unknown", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestHTTPLocatorResponseShapes(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		body    string
		want    string
		wantErr error
	}{
		{"ip-api success", IPAPI, `{"status":"success","countryCode":"CN"}`, "CN", nil},
		{"ip-api fail", IPAPI, `{"status":"fail","message":"reserved range"}`, "", ErrNoCountry},
		{"ipapi", IPAPICo, `{"ip":"8.8.8.8","country_code":"US"}`, "US", nil},
		{"ipapi missing", IPAPICo, `{"error":true}`, "", ErrNoCountry},
		{"ipinfo", IPInfo, `{"ip":"1.1.1.1","country":"au"}`, "AU", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			l, err := NewHTTPLocator(tt.backend, HTTPOptions{URL: server.URL + "/{ip}"})
			if err != nil {
				t.Fatalf("NewHTTPLocator: %v", err)
			}
			got, err := l.Country(context.Background(), netip.MustParseAddr("192.0.2.1"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Country error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Country = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPLocatorRequest(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"country":"DE"}`))
	}))
	defer server.Close()

	l, err := NewHTTPLocator(IPInfo, HTTPOptions{URL: server.URL + "/{ip}/json", Token: "secret"})
	if err != nil {
		t.Fatalf("NewHTTPLocator: %v", err)
	}
	if l.Backend() != IPInfo {
		t.Errorf("Backend() = %s, want %s", l.Backend(), IPInfo)
	}
	if _, err := l.Country(context.Background(), netip.MustParseAddr("2001:db8::1")); err != nil {
		t.Fatalf("Country: %v", err)
	}
	if gotPath != "/2001:db8::1/json" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestHTTPLocatorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad-json/192.0.2.1" {
			_, _ = w.Write([]byte("<html>"))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ip := netip.MustParseAddr("192.0.2.1")

	l, _ := NewHTTPLocator(IPAPI, HTTPOptions{URL: server.URL + "/{ip}"})
	_, err := l.Country(context.Background(), ip)
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected LookupError, got %v", err)
	}
	if lookupErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", lookupErr.StatusCode)
	}

	l, _ = NewHTTPLocator(IPAPI, HTTPOptions{URL: server.URL + "/bad-json/{ip}"})
	if _, err := l.Country(context.Background(), ip); !errors.As(err, &lookupErr) {
		t.Fatalf("expected LookupError for invalid JSON, got %v", err)
	}
}

func TestNewHTTPLocatorRejectsMaxMind(t *testing.T) {
	if _, err := NewHTTPLocator(MaxMind, HTTPOptions{}); err == nil {
		t.Error("expected error for non-HTTP backend")
	}
}

func TestOpenMaxMindMissingFile(t *testing.T) {
	if _, err := OpenMaxMind(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Error("expected error for missing database")
	}
}
