// Package classify decides, per DoH provider, whether its endpoints are
// operated inside a home region.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"dohrules/pkg/domain"
	"dohrules/pkg/geoip"
	"dohrules/pkg/metrics"
	"dohrules/pkg/provider"
)

// ReasonLookupFailed is the reason recorded when no URL of a provider
// produced a country.
const ReasonLookupFailed = "lookup failed"

const (
	partitionIn  = "in_region"
	partitionOut = "out_of_region"
)

// Resolver maps a host to one of its addresses.
type Resolver interface {
	Resolve(ctx context.Context, host string) (netip.Addr, error)
}

// Options configures a Classifier.
type Options struct {
	Enabled            bool
	Regions            []string
	Threshold          float64
	MaxURLsPerProvider int
	Retry              int
	RequestDelay       time.Duration
	RetryDelay         time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Enabled:            true,
		Regions:            []string{"CN"},
		Threshold:          0.5,
		MaxURLsPerProvider: 3,
		Retry:              5,
		RequestDelay:       1500 * time.Millisecond,
		RetryDelay:         time.Second,
	}
}

// Result is the outcome of a classification run. Every input provider is in
// exactly one of InRegion and OutOfRegion.
type Result struct {
	InRegion    *provider.Map
	OutOfRegion *provider.Map
	Reasons     map[string]string
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithSleep replaces time.Sleep for pacing and retry pauses.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Classifier) {
		c.sleep = sleep
	}
}

// WithMetrics records lookup and verdict counters in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) {
		c.metrics = m
	}
}

// Classifier classifies providers by the GeoIP country of their endpoints.
// It owns a per-instance country cache; create one Classifier per run.
type Classifier struct {
	opts     Options
	regions  map[string]struct{}
	resolver Resolver
	locator  geoip.Locator
	cache    *countryCache
	metrics  *metrics.Metrics
	sleep    func(time.Duration)
	log      *slog.Logger
}

// New creates a Classifier.
func New(opts Options, resolver Resolver, locator geoip.Locator, log *slog.Logger, options ...Option) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	if opts.Retry < 1 {
		opts.Retry = 1
	}
	regions := make(map[string]struct{}, len(opts.Regions))
	for _, r := range opts.Regions {
		regions[strings.ToUpper(strings.TrimSpace(r))] = struct{}{}
	}
	c := &Classifier{
		opts:     opts,
		regions:  regions,
		resolver: resolver,
		locator:  locator,
		cache:    newCountryCache(),
		sleep:    time.Sleep,
		log:      log,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Classify partitions the providers in m.
func (c *Classifier) Classify(ctx context.Context, m *provider.Map) Result {
	if !c.opts.Enabled {
		c.log.Warn("geoip lookups disabled, classifying every provider as out of region")
		return Result{
			InRegion:    provider.New(),
			OutOfRegion: m,
			Reasons:     map[string]string{},
		}
	}

	res := Result{
		InRegion:    provider.New(),
		OutOfRegion: provider.New(),
		Reasons:     make(map[string]string, m.Len()),
	}

	names := m.Names()
	c.log.Info("classifying providers", "providers", len(names), "regions", c.opts.Regions, "threshold", c.opts.Threshold)
	for i, name := range names {
		urls := m.URLs(name)
		inRegion, reason := c.classifyProvider(ctx, urls)
		res.Reasons[name] = reason
		if inRegion {
			res.InRegion.Add(name, urls...)
			c.metrics.Verdict(partitionIn)
		} else {
			res.OutOfRegion.Add(name, urls...)
			c.metrics.Verdict(partitionOut)
		}
		c.log.Info("classified provider",
			"index", i+1,
			"total", len(names),
			"provider", name,
			"in_region", inRegion,
			"reason", reason,
		)

		if i < len(names)-1 && c.opts.RequestDelay > 0 {
			c.sleep(c.opts.RequestDelay)
		}
	}

	c.log.Info("classification finished",
		"in_region", res.InRegion.Len(),
		"out_of_region", res.OutOfRegion.Len(),
		"cached_domains", c.cache.Len(),
	)
	return res
}

func (c *Classifier) classifyProvider(ctx context.Context, urls []string) (bool, string) {
	if c.opts.MaxURLsPerProvider > 0 && len(urls) > c.opts.MaxURLsPerProvider {
		urls = urls[:c.opts.MaxURLsPerProvider]
	}

	checked, inRegion, withoutCountry := 0, 0, 0
	var details []string
	for _, rawURL := range urls {
		host, ok := domain.Extract(rawURL)
		if !ok {
			continue
		}
		country, ok := c.country(ctx, host)
		if !ok {
			withoutCountry++
			continue
		}
		checked++
		if _, hit := c.regions[country]; hit {
			inRegion++
			details = append(details, host+"→"+country)
		}
	}

	if checked == 0 {
		return false, ReasonLookupFailed
	}

	ratio := float64(inRegion) / float64(checked)
	var reason string
	if ratio >= c.opts.Threshold {
		reason = fmt.Sprintf("GeoIP: %d/%d in region (%s)", inRegion, checked, strings.Join(details, ", "))
	} else {
		reason = fmt.Sprintf("GeoIP: %d/%d in region (ratio %.0f%% < %.0f%%)", inRegion, checked, ratio*100, c.opts.Threshold*100)
	}
	if withoutCountry > 0 {
		reason += fmt.Sprintf("; %d without country", withoutCountry)
	}
	return ratio >= c.opts.Threshold, reason
}

// country returns the cached or freshly looked up country of host.
func (c *Classifier) country(ctx context.Context, host string) (string, bool) {
	if country, found := c.cache.Get(host); found {
		c.metrics.CacheHit(true)
		return country, country != ""
	}
	c.metrics.CacheHit(false)

	ip, err := c.resolver.Resolve(ctx, host)
	if err != nil {
		c.log.Warn("dns resolution failed", "domain", host, "error", err)
		c.metrics.DNSFailure()
		c.cache.Set(host, "")
		return "", false
	}

	country := c.lookup(ctx, ip)
	c.cache.Set(host, country)
	return country, country != ""
}

// lookup queries the locator, retrying transport failures.
func (c *Classifier) lookup(ctx context.Context, ip netip.Addr) string {
	for attempt := 1; attempt <= c.opts.Retry; attempt++ {
		country, err := c.locator.Country(ctx, ip)
		if err == nil {
			c.metrics.GeoIPRequest("ok")
			return strings.ToUpper(country)
		}
		if errors.Is(err, geoip.ErrNoCountry) {
			c.metrics.GeoIPRequest("no_country")
			c.log.Debug("geoip response carried no country", "ip", ip)
			return ""
		}
		c.metrics.GeoIPRequest("error")
		if attempt == c.opts.Retry {
			c.log.Warn("geoip lookup failed", "ip", ip, "attempts", attempt, "error", err)
			return ""
		}
		c.log.Debug("geoip lookup failed, retrying", "ip", ip, "attempt", attempt, "error", err)
		c.sleep(c.opts.RetryDelay)
	}
	return ""
}
