package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dohrules/pkg/classify"
	"dohrules/pkg/config"
	"dohrules/pkg/fetch"
	"dohrules/pkg/geoip"
	"dohrules/pkg/metrics"
	"dohrules/pkg/resolve"
	"dohrules/pkg/rules"
	"dohrules/pkg/version"
)

// FromConfig builds a Pipeline with every stage configured from cfg. The
// returned closer releases the GeoIP backend.
func FromConfig(cfg *config.Config, log *slog.Logger) (*Pipeline, io.Closer, error) {
	if cfg == nil {
		return nil, nil, errors.New("nil config")
	}
	if log == nil {
		log = slog.Default()
	}

	locator, closer, err := newLocator(cfg.GeoIP, log)
	if err != nil {
		return nil, nil, err
	}

	m := metrics.New()
	resolver := resolve.New(cfg.Resolver.Servers, cfg.Resolver.Timeout, log)
	classifier := classify.New(classifyOptions(cfg.GeoIP), resolver, locator, log, classify.WithMetrics(m))
	fetcher := fetch.New(cfg.Source.Timeout, userAgent(cfg.Source.UserAgent), log)
	writer := rules.New(cfg.Output.Dir, log)

	return New(cfg.Source.URL, fetcher, classifier, writer, m, cfg.Metrics.Textfile, log), closer, nil
}

func classifyOptions(g config.GeoIPConfig) classify.Options {
	return classify.Options{
		Enabled:            g.Enabled,
		Regions:            g.Regions,
		Threshold:          g.Threshold,
		MaxURLsPerProvider: g.MaxURLsPerProvider,
		Retry:              g.RetryCount,
		RequestDelay:       g.RequestDelay,
		RetryDelay:         g.RetryDelay,
	}
}

func newLocator(g config.GeoIPConfig, log *slog.Logger) (geoip.Locator, io.Closer, error) {
	if !g.Enabled {
		return nil, nopCloser{}, nil
	}
	if g.Provider == geoip.MaxMind {
		db, err := geoip.OpenMaxMind(g.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open geoip database: %w", err)
		}
		log.Info("using maxmind geoip database", "path", g.Database)
		return db, db, nil
	}

	locator, err := geoip.NewHTTPLocator(g.Provider, geoip.HTTPOptions{
		Token:   g.Token,
		URL:     g.URL,
		Timeout: g.Timeout,
		Log:     log,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("using http geoip provider", "provider", g.Provider.String(), "token", g.Token != "")
	return locator, nopCloser{}, nil
}

func userAgent(configured string) string {
	if configured == "" {
		configured = "dohrules"
	}
	return configured + "/" + version.DohrulesVersion
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
