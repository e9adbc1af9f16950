package domain

import (
	"sort"

	"dohrules/pkg/provider"
)

// Group holds the deduplicated domains of one partition.
type Group struct {
	// Providers maps a provider to the domains it kept, in URL order.
	Providers map[string][]string
	// All is the set of every domain in the group.
	All map[string]struct{}

	order []string
}

func newGroup() *Group {
	return &Group{
		Providers: make(map[string][]string),
		All:       make(map[string]struct{}),
	}
}

// GroupByProvider extracts the domain of every URL in m. A domain is kept
// only by the first provider, in m's order, that references it.
func GroupByProvider(m *provider.Map) *Group {
	return groupInto(m, make(map[string]struct{}))
}

// GroupPartitions groups both partitions with one shared seen set. The
// in-region partition is grouped first, so a domain claimed there never
// appears in the out-of-region group.
func GroupPartitions(inRegion, outOfRegion *provider.Map) (*Group, *Group) {
	seen := make(map[string]struct{})
	in := groupInto(inRegion.Sorted(), seen)
	out := groupInto(outOfRegion.Sorted(), seen)
	return in, out
}

func groupInto(m *provider.Map, seen map[string]struct{}) *Group {
	g := newGroup()
	for _, name := range m.Names() {
		for _, rawURL := range m.URLs(name) {
			host, ok := Extract(rawURL)
			if !ok {
				continue
			}
			if _, dup := seen[host]; dup {
				continue
			}
			seen[host] = struct{}{}
			g.All[host] = struct{}{}
			if _, known := g.Providers[name]; !known {
				g.order = append(g.order, name)
			}
			g.Providers[name] = append(g.Providers[name], host)
		}
	}
	return g
}

// Len returns the number of distinct domains in the group.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.All)
}

// SortedProviders returns the providers that kept at least one domain, sorted by name.
func (g *Group) SortedProviders() []string {
	if g == nil {
		return nil
	}
	names := make([]string, len(g.order))
	copy(names, g.order)
	sort.Strings(names)
	return names
}

// SortedDomains returns the domains kept by name, sorted.
func (g *Group) SortedDomains(name string) []string {
	domains := make([]string, len(g.Providers[name]))
	copy(domains, g.Providers[name])
	sort.Strings(domains)
	return domains
}

// Domains returns every domain in the group, sorted.
func (g *Group) Domains() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.All))
	for d := range g.All {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
