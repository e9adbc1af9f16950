package rules

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"dohrules/pkg/classify"
	"dohrules/pkg/domain"
)

const (
	rulePrefix     = "DOMAIN-SUFFIX,"
	logRule        = 70
	outOfRegionURL = 2
	unknownReason  = "unknown"
)

// RenderList renders g as DOMAIN-SUFFIX lines grouped under provider comments.
func RenderList(g *domain.Group, title, generated string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# DoH Servers Ruleset - %s\n", title)
	buf.WriteString("# Auto-generated from curl/curl wiki\n")
	fmt.Fprintf(&buf, "# Generated at: %s\n", generated)
	fmt.Fprintf(&buf, "# Total rules: %d\n\n", g.Len())

	for _, name := range g.SortedProviders() {
		fmt.Fprintf(&buf, "# %s\n", name)
		for _, d := range g.SortedDomains(name) {
			buf.WriteString(rulePrefix)
			buf.WriteString(d)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// RenderInfo renders a short human-readable summary of a geosite category.
func RenderInfo(tag string, domains []string, generated string) []byte {
	sorted := make([]string, len(domains))
	copy(sorted, domains)
	sort.Strings(sorted)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Geosite: %s\n", tag)
	fmt.Fprintf(&buf, "# Generated at: %s\n", generated)
	fmt.Fprintf(&buf, "# Total domains: %d\n", len(sorted))
	buf.WriteString("# Format: Protocol Buffers binary (.dat)\n\n")

	fmt.Fprintf(&buf, "Domains (first %d):\n", previewSize)
	for i, d := range sorted {
		if i == previewSize {
			break
		}
		fmt.Fprintf(&buf, "  %s\n", d)
	}
	if len(sorted) > previewSize {
		fmt.Fprintf(&buf, "  ... and %d more domains\n", len(sorted)-previewSize)
	}
	return buf.Bytes()
}

// RenderClassificationLog lists each provider with its verdict reason and
// URLs. The out-of-region section shows the first 20 providers with at
// most two URLs each.
func RenderClassificationLog(res classify.Result, generated string) []byte {
	in := res.InRegion.Sorted()
	out := res.OutOfRegion.Sorted()
	rule := strings.Repeat("-", logRule)

	var buf bytes.Buffer
	buf.WriteString("DoH provider classification log\n")
	buf.WriteString(strings.Repeat("=", logRule) + "\n")
	fmt.Fprintf(&buf, "Generated at: %s\n", generated)
	buf.WriteString("Method: GeoIP\n\n")

	fmt.Fprintf(&buf, "In-region DoH providers (%d)\n%s\n\n", in.Len(), rule)
	for _, name := range in.Names() {
		writeProvider(&buf, name, in.URLs(name), len(in.URLs(name)), res.Reasons)
	}

	fmt.Fprintf(&buf, "\nOut-of-region DoH providers (%d)\n%s\n\n", out.Len(), rule)
	for i, name := range out.Names() {
		if i == previewSize {
			break
		}
		urls := out.URLs(name)
		total := len(urls)
		if total > outOfRegionURL {
			urls = urls[:outOfRegionURL]
		}
		writeProvider(&buf, name, urls, total, res.Reasons)
	}
	if out.Len() > previewSize {
		fmt.Fprintf(&buf, "... and %d more out-of-region providers\n", out.Len()-previewSize)
	}
	return buf.Bytes()
}

func writeProvider(buf *bytes.Buffer, name string, urls []string, total int, reasons map[string]string) {
	reason, ok := reasons[name]
	if !ok {
		reason = unknownReason
	}
	fmt.Fprintf(buf, "[%s]\n", name)
	fmt.Fprintf(buf, "Reason: %s\n", reason)
	fmt.Fprintf(buf, "URL count: %d\n", total)
	buf.WriteString("URLs:\n")
	for _, u := range urls {
		fmt.Fprintf(buf, "  - %s\n", u)
	}
	buf.WriteByte('\n')
}
