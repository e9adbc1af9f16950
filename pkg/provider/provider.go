// Package provider holds the ordered provider to URL mapping shared by the
// parser, the classifier and the rule writers.
package provider

import "sort"

// Map is an insertion-ordered mapping of provider name to DoH URLs.
// Providers without URLs are never stored.
type Map struct {
	names []string
	urls  map[string][]string
}

// New creates an empty Map.
func New() *Map {
	return &Map{urls: make(map[string][]string)}
}

// Add appends urls to the provider's list, registering the provider on first use.
func (m *Map) Add(name string, urls ...string) {
	if name == "" || len(urls) == 0 {
		return
	}
	if _, ok := m.urls[name]; !ok {
		m.names = append(m.names, name)
	}
	m.urls[name] = append(m.urls[name], urls...)
}

// Names returns provider names in insertion order.
func (m *Map) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// URLs returns the URLs recorded for name.
func (m *Map) URLs(name string) []string {
	if m == nil {
		return nil
	}
	return m.urls[name]
}

// Has reports whether name is present.
func (m *Map) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.urls[name]
	return ok
}

// Len returns the number of providers.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// URLCount returns the total number of URLs across all providers.
func (m *Map) URLCount() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, urls := range m.urls {
		total += len(urls)
	}
	return total
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := New()
	for _, name := range m.Names() {
		out.Add(name, m.urls[name]...)
	}
	return out
}

// Sorted returns a copy of m with providers ordered by name.
func (m *Map) Sorted() *Map {
	names := m.Names()
	sort.Strings(names)
	out := New()
	for _, name := range names {
		out.Add(name, m.urls[name]...)
	}
	return out
}
