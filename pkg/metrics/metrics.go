// Package metrics collects per-run counters and exports them in the
// Prometheus text format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one run. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups   *prometheus.CounterVec
	GeoIPRequests  *prometheus.CounterVec
	DNSFailures    prometheus.Counter
	Verdicts       *prometheus.CounterVec
	Providers      prometheus.Gauge
	DomainsWritten *prometheus.GaugeVec
	PhaseDuration  *prometheus.GaugeVec
	LastRunSuccess prometheus.Gauge
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dohrules_geoip_cache_lookups_total",
				Help: "Country cache lookups, labeled by result (hit or miss).",
			},
			[]string{"result"},
		),
		GeoIPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dohrules_geoip_requests_total",
				Help: "GeoIP backend requests, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		DNSFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dohrules_dns_failures_total",
				Help: "Hosts that could not be resolved.",
			},
		),
		Verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dohrules_verdicts_total",
				Help: "Provider classifications, labeled by partition.",
			},
			[]string{"partition"},
		),
		Providers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dohrules_providers",
				Help: "Providers parsed from the source document.",
			},
		),
		DomainsWritten: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dohrules_domains",
				Help: "Domains written per partition.",
			},
			[]string{"partition"},
		),
		PhaseDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dohrules_phase_duration_seconds",
				Help: "Duration of each pipeline phase in seconds.",
			},
			[]string{"phase"},
		),
		LastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dohrules_last_run_success",
				Help: "1 if the last run completed without errors.",
			},
		),
	}
	m.registry.MustRegister(
		m.CacheLookups,
		m.GeoIPRequests,
		m.DNSFailures,
		m.Verdicts,
		m.Providers,
		m.DomainsWritten,
		m.PhaseDuration,
		m.LastRunSuccess,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CacheHit records a country cache hit or miss.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// GeoIPRequest records one backend request outcome ("ok", "no_country" or "error").
func (m *Metrics) GeoIPRequest(outcome string) {
	if m == nil {
		return
	}
	m.GeoIPRequests.WithLabelValues(outcome).Inc()
}

// DNSFailure records a resolution failure.
func (m *Metrics) DNSFailure() {
	if m == nil {
		return
	}
	m.DNSFailures.Inc()
}

// Verdict records a provider classification.
func (m *Metrics) Verdict(partition string) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(partition).Inc()
}

// SetProviders records the number of parsed providers.
func (m *Metrics) SetProviders(n int) {
	if m == nil {
		return
	}
	m.Providers.Set(float64(n))
}

// SetDomains records the number of domains written for a partition.
func (m *Metrics) SetDomains(partition string, n int) {
	if m == nil {
		return
	}
	m.DomainsWritten.WithLabelValues(partition).Set(float64(n))
}

// ObservePhase records how long a pipeline phase took.
func (m *Metrics) ObservePhase(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Set(seconds)
}

// SetSuccess records the run result.
func (m *Metrics) SetSuccess(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.LastRunSuccess.Set(1)
		return
	}
	m.LastRunSuccess.Set(0)
}

// WriteTextfile writes all metrics to path, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
