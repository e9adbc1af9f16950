// Package geosite encodes domain lists in the v2ray/Mihomo geosite.dat
// binary format.
//
// A file is a GeoSiteList message holding one GeoSite entry:
//
//	GeoSiteList { repeated GeoSite entry = 1; }
//	GeoSite     { string country_code = 1; repeated Domain domain = 2; }
//	Domain      { Type type = 1; string value = 2; }
package geosite

import (
	"sort"
	"strings"
)

// Type is the matching mode of a domain rule.
type Type int

// Type values follow routercommon.Domain.Type.
const (
	// Keyword matches when the value is a substring of the domain.
	Keyword Type = 0
	// Regexp matches the domain against a regular expression.
	Regexp Type = 1
	// Plain matches the domain and all of its subdomains.
	Plain Type = 2
	// Full matches the domain exactly.
	Full Type = 3
)

const (
	prefixFull    = "full:"
	prefixRegexp  = "regexp:"
	prefixKeyword = "keyword:"
)

func (t Type) String() string {
	switch t {
	case Keyword:
		return "keyword"
	case Regexp:
		return "regexp"
	case Plain:
		return "plain"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Domain is a single typed rule.
type Domain struct {
	Type  Type
	Value string
}

// Entry is a tagged domain list.
type Entry struct {
	Tag     string
	Domains []Domain
}

// ParseDomain splits a prefixed rule such as "full:example.com" into its type
// and value. Unprefixed rules are Plain.
func ParseDomain(rule string) (Type, string) {
	switch {
	case strings.HasPrefix(rule, prefixFull):
		return Full, strings.TrimPrefix(rule, prefixFull)
	case strings.HasPrefix(rule, prefixRegexp):
		return Regexp, strings.TrimPrefix(rule, prefixRegexp)
	case strings.HasPrefix(rule, prefixKeyword):
		return Keyword, strings.TrimPrefix(rule, prefixKeyword)
	default:
		return Plain, rule
	}
}

// FormatDomain is the inverse of ParseDomain.
func FormatDomain(d Domain) string {
	switch d.Type {
	case Full:
		return prefixFull + d.Value
	case Regexp:
		return prefixRegexp + d.Value
	case Keyword:
		return prefixKeyword + d.Value
	default:
		return d.Value
	}
}

// sortedUnique returns the distinct non-empty rules in lexical order.
func sortedUnique(rules []string) []string {
	seen := make(map[string]struct{}, len(rules))
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
