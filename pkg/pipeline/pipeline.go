// Package pipeline runs a complete generation: fetch the provider table,
// parse it, classify every provider and write the rule files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dohrules/pkg/classify"
	"dohrules/pkg/domain"
	"dohrules/pkg/metrics"
	"dohrules/pkg/provider"
	"dohrules/pkg/rules"
	"dohrules/pkg/table"
)

var (
	// ErrNoDocument is returned when the source document could not be obtained.
	ErrNoDocument = errors.New("no source document")
	// ErrNoProviders is returned when the document contains no usable provider rows.
	ErrNoProviders = errors.New("no providers parsed")
)

const (
	phaseFetch    = "fetch"
	phaseParse    = "parse"
	phaseClassify = "classify"
	phaseWrite    = "write"

	partitionIn  = "in_region"
	partitionOut = "out_of_region"
)

// Fetcher returns the text of the source document.
type Fetcher interface {
	Document(ctx context.Context, location string) (string, error)
}

// Classifier partitions providers.
type Classifier interface {
	Classify(ctx context.Context, m *provider.Map) classify.Result
}

// Writer renders the rule files.
type Writer interface {
	Write(res classify.Result, in, out *domain.Group) (rules.Summary, error)
}

// Report summarises a run.
type Report struct {
	Providers   int
	URLs        int
	InRegion    int
	OutOfRegion int
	Output      rules.Summary
}

// Pipeline wires the stages of one run together.
type Pipeline struct {
	source      string
	fetcher     Fetcher
	classifier  Classifier
	writer      Writer
	metrics     *metrics.Metrics
	metricsFile string
	log         *slog.Logger
}

// New creates a Pipeline reading from source. m may be nil.
func New(source string, fetcher Fetcher, classifier Classifier, writer Writer, m *metrics.Metrics, metricsFile string, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		source:      source,
		fetcher:     fetcher,
		classifier:  classifier,
		writer:      writer,
		metrics:     m,
		metricsFile: metricsFile,
		log:         log,
	}
}

// Run executes one generation. Cancellation of ctx is honoured between
// phases. Only a missing document or an empty table abort the run; write
// failures are returned after every file has been attempted.
func (p *Pipeline) Run(ctx context.Context) (report Report, err error) {
	defer func() {
		p.metrics.SetSuccess(err == nil)
		if werr := p.metrics.WriteTextfile(p.metricsFile); werr != nil {
			p.log.Warn("failed to write metrics", "path", p.metricsFile, "error", werr)
		}
	}()

	started := time.Now()
	text, err := p.fetcher.Document(ctx, p.source)
	p.observe(phaseFetch, started)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrNoDocument, err)
	}

	started = time.Now()
	providers, stats := table.ParseWithStats(text)
	p.observe(phaseParse, started)
	report.Providers = providers.Len()
	report.URLs = providers.URLCount()
	p.metrics.SetProviders(report.Providers)
	p.log.Info("parsed provider table",
		"providers", report.Providers,
		"urls", report.URLs,
		"rows", stats.Rows,
		"dividers", stats.Dividers,
		"malformed", stats.Malformed,
	)
	if providers.Len() == 0 {
		return report, ErrNoProviders
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	started = time.Now()
	res := p.classifier.Classify(ctx, providers)
	p.observe(phaseClassify, started)
	report.InRegion = res.InRegion.Len()
	report.OutOfRegion = res.OutOfRegion.Len()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	started = time.Now()
	in, out := domain.GroupPartitions(res.InRegion, res.OutOfRegion)
	p.metrics.SetDomains(partitionIn, in.Len())
	p.metrics.SetDomains(partitionOut, out.Len())
	report.Output, err = p.writer.Write(res, in, out)
	p.observe(phaseWrite, started)
	if err != nil {
		return report, fmt.Errorf("write rules: %w", err)
	}

	p.log.Info("generation complete",
		"providers", report.Providers,
		"in_region", report.InRegion,
		"out_of_region", report.OutOfRegion,
		"in_region_domains", report.Output.InRegionDomains,
		"out_of_region_domains", report.Output.OutOfRegionDomains,
	)
	return report, nil
}

func (p *Pipeline) observe(phase string, started time.Time) {
	elapsed := time.Since(started)
	p.metrics.ObservePhase(phase, elapsed.Seconds())
	p.log.Debug("phase finished", "phase", phase, "duration", elapsed)
}
