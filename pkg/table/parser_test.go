package table

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSingleProvider(t *testing.T) {
	input := strings.Join([]string{
		"| Who runs it | Base URL | Working | Comment |",
		"|---|---|---|---|",
		"| [ACME](https://acme.example) | https://dns.acme.example/dns-query | Yes | |",
	}, "\n")

	m := Parse(input)
	if got, want := m.Names(), []string{"ACME"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if got, want := m.URLs("ACME"), []string{"https://dns.acme.example/dns-query"}; !reflect.DeepEqual(got, want) {
		t.Errorf("URLs(ACME) = %v, want %v", got, want)
	}
}

func TestParseContinuationRowsAndDividers(t *testing.T) {
	input := strings.Join([]string{
		"# DNS-over-HTTPS",
		"",
		"Some intro text with https://dns.outside.example/dns-query",
		"",
		"| Who runs it | Base URL | Working* | Comment** |",
		"|---|---|---|---|",
		"| **A** | | | |",
		"| [Alpha DNS](https://alpha.example) | https://doh.alpha.example/dns-query | | |",
		"| | https://doh2.alpha.example/dns-query<br>https://alpha.example/about | | |",
		"| **B** | https://dns.b-divider.example/dns-query | | |",
		"| Beta Resolver | https://beta.example/resolve | | no DoH path |",
		"| | (https://dns.beta.example/query) | | |",
		"| broken row |",
		"",
		"| Gamma | https://dns.gamma.example/dns-query | | |",
	}, "\n")

	m, stats := ParseWithStats(input)

	want := map[string][]string{
		"Alpha DNS": {
			"https://doh.alpha.example/dns-query",
			"https://doh2.alpha.example/dns-query",
			"https://dns.b-divider.example/dns-query",
		},
		"Beta Resolver": {"https://dns.beta.example/query"},
	}
	if got, wantNames := m.Names(), []string{"Alpha DNS", "Beta Resolver"}; !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("Names() = %v, want %v", got, wantNames)
	}
	for name, urls := range want {
		if got := m.URLs(name); !reflect.DeepEqual(got, urls) {
			t.Errorf("URLs(%q) = %v, want %v", name, got, urls)
		}
	}
	if m.Has("Gamma") {
		t.Error("rows after the table ended must be ignored")
	}
	if stats.Dividers != 2 {
		t.Errorf("Dividers = %d, want 2", stats.Dividers)
	}
	if stats.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", stats.Malformed)
	}
	if stats.DroppedURLs != 2 {
		t.Errorf("DroppedURLs = %d, want 2", stats.DroppedURLs)
	}
}

func TestParseProviderWithoutURLsIsAbsent(t *testing.T) {
	input := strings.Join([]string{
		"| Who runs it | Base URL | Working | Comment |",
		"|---|---|---|---|",
		"| Nothing Here | https://nothing.example/ | | |",
		"| Next | https://doh.next.example/ | | |",
	}, "\n")

	m := Parse(input)
	if m.Has("Nothing Here") {
		t.Error("providers without valid URLs must be absent")
	}
	if !m.Has("Next") {
		t.Error("expected Next to be parsed")
	}
}

func TestParseHeadingEndsTable(t *testing.T) {
	input := strings.Join([]string{
		"| Who runs it | Base URL | Working | Comment |",
		"|---|---|---|---|",
		"| One | https://dns.one.example/dns-query | | |",
		"## Next section",
		"| Two | https://dns.two.example/dns-query | | |",
		"| Who runs it | Base URL | Working | Comment |",
		"| | https://dns.three.example/dns-query | | |",
	}, "\n")

	m := Parse(input)
	if got, want := m.Names(), []string{"One"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	// A second table continues with the last named provider.
	if got := len(m.URLs("One")); got != 2 {
		t.Errorf("expected 2 URLs for One, got %d", got)
	}
}

func TestParseNamesAreNonEmptyAndNotDividers(t *testing.T) {
	input := strings.Join([]string{
		"| Who runs it | Base URL | Working | Comment |",
		"|---|---|---|---|",
		"| **C** | https://dns.c.example/dns-query | | |",
		"| **Cloud** | https://dns.cloud.example/dns-query | | |",
		"|  | https://dns.cloud2.example/dns-query | | |",
	}, "\n")

	m := Parse(input)
	for _, name := range m.Names() {
		if name == "" {
			t.Error("provider names must not be empty")
		}
		if isDivider(name) {
			t.Errorf("divider %q was used as a provider name", name)
		}
	}
	if got := len(m.URLs("**Cloud**")); got != 2 {
		t.Errorf("expected long bold cell to name a provider with 2 URLs, got %d", got)
	}
}

func TestIsDoHURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://dns.google/dns-query", true},
		{"https://example.com/DoH", true},
		{"https://example.com/query", true},
		{"https://resolver.example/resolve", false},
		{"https://example.com/", false},
	}
	for _, tt := range tests {
		if got := IsDoHURL(tt.url); got != tt.want {
			t.Errorf("IsDoHURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestParseSurvivesVeryLongLines(t *testing.T) {
	image := "![img](data:image/png;base64," + strings.Repeat("A", 2*1024*1024) + ")"
	input := strings.Join([]string{
		image,
		"",
		"| Who runs it | Base URL | Working | Comment |",
		"|---|---|---|---|",
		"| [ACME](https://acme.example) | https://dns.acme.example/dns-query | Yes | |",
	}, "\n")

	m := Parse(input)
	if got, want := m.URLs("ACME"), []string{"https://dns.acme.example/dns-query"}; !reflect.DeepEqual(got, want) {
		t.Errorf("URLs(ACME) = %v, want %v", got, want)
	}
}

func TestParseCRLFDocument(t *testing.T) {
	input := "| Who runs it | Base URL | Working | Comment |\r\n" +
		"|---|---|---|---|\r\n" +
		"| ACME | https://dns.acme.example/dns-query | Yes | |\r\n"

	if got, want := Parse(input).Names(), []string{"ACME"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
