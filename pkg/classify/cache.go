package classify

// countryCache remembers the country of every domain looked up during a run.
// A cached empty country records a failed lookup. It is not safe for
// concurrent use.
type countryCache struct {
	entries map[string]string
}

func newCountryCache() *countryCache {
	return &countryCache{entries: make(map[string]string)}
}

func (c *countryCache) Get(domain string) (country string, found bool) {
	country, found = c.entries[domain]
	return country, found
}

func (c *countryCache) Set(domain, country string) {
	c.entries[domain] = country
}

func (c *countryCache) Len() int {
	return len(c.entries)
}
