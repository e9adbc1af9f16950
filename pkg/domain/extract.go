// Package domain extracts rule domains from DoH URLs and groups them by provider.
package domain

import (
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// Extract returns the normalised host of rawURL. The second return value is
// false when rawURL has no usable host.
func Extract(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host, err := Normalize(parsed.Hostname())
	if err != nil {
		return "", false
	}
	return host, true
}

// Normalize lowercases host, strips a trailing dot and converts IDNs to ASCII.
// IP literals are returned in canonical form.
func Normalize(host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return "", errEmptyHost
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", err
		}
		host = ascii
	}
	host = strings.ToLower(host)
	if _, ok := dns.IsDomainName(host); !ok {
		return "", errInvalidHost
	}
	return host, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
