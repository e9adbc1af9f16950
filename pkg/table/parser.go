// Package table extracts DoH providers and endpoint URLs from the curl wiki
// markdown table.
package table

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"dohrules/pkg/provider"
)

// HeaderMarker identifies the header row of the provider table.
const HeaderMarker = "| Who runs it | Base URL |"

const (
	providerColumn = 1
	urlColumn      = 2
	minColumns     = 4
	maxDividerLen  = 5
)

var (
	urlPattern  = regexp.MustCompile(`https://[^\s<>|)]+`)
	linkPattern = regexp.MustCompile(`\[([^\]]+)\]`)

	dohPatterns = []string{"/dns-query", "/dns", "/doh", "/query", "dns.", "doh."}
)

// Stats summarises a parse run.
type Stats struct {
	Rows        int
	Dividers    int
	Malformed   int
	DroppedURLs int
}

type scanState struct {
	inTable bool
	current string
}

// Parse returns the provider to URL mapping found in text.
func Parse(text string) *provider.Map {
	m, _ := ParseWithStats(text)
	return m
}

// ParseWithStats is Parse that also reports row statistics.
func ParseWithStats(text string) (*provider.Map, Stats) {
	out := provider.New()
	stats := Stats{}
	state := scanState{}

	for _, line := range strings.Split(text, "\n") {
		state = step(state, strings.TrimSuffix(line, "\r"), out, &stats)
	}
	return out, stats
}

func step(state scanState, line string, out *provider.Map, stats *Stats) scanState {
	if strings.Contains(line, HeaderMarker) {
		return scanState{inTable: true, current: state.current}
	}
	if !state.inTable {
		return state
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(line, "#") {
		return scanState{inTable: false, current: state.current}
	}
	if strings.Contains(line, "|---") {
		return state
	}
	if !strings.HasPrefix(trimmed, "|") {
		return state
	}

	cells := splitRow(line)
	if len(cells) < minColumns {
		stats.Malformed++
		return state
	}
	stats.Rows++

	if name, ok := providerName(cells[providerColumn]); ok {
		state.current = name
	} else if isDivider(cells[providerColumn]) {
		stats.Dividers++
	}

	urls, dropped := extractURLs(cells[urlColumn])
	stats.DroppedURLs += dropped
	if state.current != "" && len(urls) > 0 {
		out.Add(state.current, urls...)
	}
	return state
}

func splitRow(line string) []string {
	cells := strings.Split(line, "|")
	for i, cell := range cells {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}

func isDivider(cell string) bool {
	cell = strings.TrimSpace(cell)
	return strings.HasPrefix(cell, "**") && utf8.RuneCountInString(cell) <= maxDividerLen
}

// providerName returns the provider named by cell. Dividers and empty cells
// name no provider.
func providerName(cell string) (string, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || isDivider(cell) {
		return "", false
	}
	if match := linkPattern.FindStringSubmatch(cell); match != nil {
		if name := strings.TrimSpace(match[1]); name != "" {
			return name, true
		}
	}
	return cell, true
}

func extractURLs(cell string) ([]string, int) {
	var urls []string
	dropped := 0
	for _, candidate := range urlPattern.FindAllString(cell, -1) {
		candidate = strings.TrimRight(candidate, ")")
		if !IsDoHURL(candidate) {
			dropped++
			continue
		}
		urls = append(urls, candidate)
	}
	return urls, dropped
}

// IsDoHURL reports whether url looks like a DoH endpoint.
func IsDoHURL(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range dohPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
