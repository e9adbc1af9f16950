// Package geoip maps IP addresses to ISO country codes using either a public
// HTTP GeoIP API or a local MaxMind database.
package geoip

import (
	"fmt"
	"strings"
)

// Backend identifies a GeoIP data source.
type Backend int

const (
	// IPAPI is ip-api.com.
	IPAPI Backend = iota
	// IPAPICo is ipapi.co.
	IPAPICo
	// IPInfo is ipinfo.io.
	IPInfo
	// MaxMind is a local GeoLite2/GeoIP2 Country database.
	MaxMind
)

// Definition describes a backend.
type Definition struct {
	Name string
	// URL is the request template; {ip} is replaced by the queried address.
	URL string
	// RateLimit is the nominal number of requests per minute allowed by the API.
	RateLimit int
	extract   func(payload) (string, bool)
}

// payload is the union of every supported JSON response shape.
type payload struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	CountryISO  string `json:"country_code"`
	Country     string `json:"country"`
}

// Catalog lists the built-in backends.
var Catalog = map[Backend]Definition{
	IPAPI: {
		Name:      "ip-api",
		URL:       "http://ip-api.com/json/{ip}?fields=status,countryCode",
		RateLimit: 45,
		extract: func(p payload) (string, bool) {
			if p.Status != "success" {
				return "", false
			}
			return p.CountryCode, p.CountryCode != ""
		},
	},
	IPAPICo: {
		Name:      "ipapi",
		URL:       "https://ipapi.co/{ip}/json/",
		RateLimit: 30,
		extract: func(p payload) (string, bool) {
			return p.CountryISO, p.CountryISO != ""
		},
	},
	IPInfo: {
		Name:      "ipinfo",
		URL:       "https://ipinfo.io/{ip}/json",
		RateLimit: 50,
		extract: func(p payload) (string, bool) {
			return p.Country, p.Country != ""
		},
	},
	MaxMind: {
		Name: "maxmind",
	},
}

// String returns the configuration name of b.
func (b Backend) String() string {
	if def, ok := Catalog[b]; ok {
		return def.Name
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// IsHTTP reports whether b is queried over HTTP.
func (b Backend) IsHTTP() bool {
	return Catalog[b].extract != nil
}

// ParseBackend maps a configuration name to a Backend.
func ParseBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for b, def := range Catalog {
		if def.Name == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown geoip provider: %s (must be one of: ip-api, ipapi, ipinfo, maxmind)", name)
}
