package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// GeoIPStub is an ip-api.com compatible HTTP server answering from a fixed
// IP to country table.
type GeoIPStub struct {
	URL      string
	requests atomic.Int64
	failures atomic.Int64
}

// StartGeoIPStub serves GET /json/{ip}. IPs missing from countries answer
// {"status":"fail"}. The first failFirst requests answer 503.
func StartGeoIPStub(t *testing.T, countries map[string]string, failFirst int) *GeoIPStub {
	t.Helper()

	stub := &GeoIPStub{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := stub.requests.Add(1)
		if int(n) <= failFirst {
			stub.failures.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ip := strings.TrimPrefix(r.URL.Path, "/json/")
		body := map[string]string{"status": "fail"}
		if code, ok := countries[ip]; ok {
			body = map[string]string{"status": "success", "countryCode": code}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	stub.URL = srv.URL + "/json/{ip}"
	return stub
}

// Requests returns the number of requests served, including failures.
func (s *GeoIPStub) Requests() int {
	return int(s.requests.Load())
}

// Failures returns the number of requests answered with an error status.
func (s *GeoIPStub) Failures() int {
	return int(s.failures.Load())
}
