package geosite

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	listSuffix = "DOMAIN-SUFFIX,"
	listFull   = "DOMAIN,"
)

// ReadList reads a Clash/Mihomo rule list and returns prefixed rules:
// DOMAIN-SUFFIX lines become Plain rules, DOMAIN lines become full: rules.
// Comments, blank lines and other rule types are ignored.
func ReadList(r io.Reader) ([]string, error) {
	var rules []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, listSuffix):
			if d := strings.TrimSpace(strings.TrimPrefix(line, listSuffix)); d != "" {
				rules = append(rules, d)
			}
		case strings.HasPrefix(line, listFull):
			if d := strings.TrimSpace(strings.TrimPrefix(line, listFull)); d != "" {
				rules = append(rules, prefixFull+d)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	return sortedUnique(rules), nil
}
