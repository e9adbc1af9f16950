// Package rules writes the generated rule files for both partitions.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dohrules/pkg/classify"
	"dohrules/pkg/domain"
)

// Output file names inside the output directory.
const (
	ForeignYAML       = "doh_foreign.yaml"
	ChinaYAML         = "doh_china.yaml"
	ForeignList       = "doh_foreign.list"
	ChinaList         = "doh_china.list"
	ClassificationLog = "classification_log.txt"
	ForeignDat        = "doh_foreign.dat"
	ChinaDat          = "doh_china.dat"
	ForeignInfo       = "doh_foreign_info.txt"
	ChinaInfo         = "doh_china_info.txt"
)

// Geosite category tags.
const (
	ForeignTag = "doh-foreign"
	ChinaTag   = "doh-china"
)

const (
	timeLayout  = "2006-01-02 15:04:05"
	previewSize = 20
	dirMode     = 0o755
	fileMode    = 0o644
)

// WriteError reports a failure writing one output file.
type WriteError struct {
	File string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.File, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Summary lists what a Write call produced.
type Summary struct {
	InRegionDomains    int
	OutOfRegionDomains int
	Files              []string
}

// Writer renders rule files into a directory.
type Writer struct {
	dir string
	now func() time.Time
	log *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock replaces the time source used for generation timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// New creates a Writer for dir.
func New(dir string, log *slog.Logger, opts ...Option) *Writer {
	if log == nil {
		log = slog.Default()
	}
	w := &Writer{dir: dir, now: time.Now, log: log}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders every output file. Each file is attempted even if an
// earlier one failed; all failures are joined into the returned error.
// Files of an empty partition are skipped.
func (w *Writer) Write(res classify.Result, in, out *domain.Group) (Summary, error) {
	summary := Summary{InRegionDomains: in.Len(), OutOfRegionDomains: out.Len()}
	if err := os.MkdirAll(w.dir, dirMode); err != nil {
		return summary, &WriteError{File: w.dir, Err: err}
	}

	generated := w.now().Format(timeLayout)
	partitions := []struct {
		group *domain.Group
		title string
		tag   string
		yaml  string
		list  string
		dat   string
		info  string
	}{
		{out, "Foreign DoH (proxy)", ForeignTag, ForeignYAML, ForeignList, ForeignDat, ForeignInfo},
		{in, "China DoH (direct)", ChinaTag, ChinaYAML, ChinaList, ChinaDat, ChinaInfo},
	}

	var errs []error
	write := func(name string, data []byte, err error) {
		if err == nil {
			err = os.WriteFile(filepath.Join(w.dir, name), data, fileMode)
		}
		if err != nil {
			w.log.Error("failed to write output file", "file", name, "error", err)
			errs = append(errs, &WriteError{File: name, Err: err})
			return
		}
		w.log.Debug("wrote output file", "file", name, "bytes", len(data))
		summary.Files = append(summary.Files, name)
	}

	for _, p := range partitions {
		if p.group.Len() == 0 {
			w.log.Warn("skipping empty partition", "tag", p.tag)
			continue
		}
		data, err := RenderYAML(p.group, p.title, generated)
		write(p.yaml, data, err)
		write(p.list, RenderList(p.group, p.title, generated), nil)
		write(p.dat, EncodeGroup(p.tag, p.group), nil)
		write(p.info, RenderInfo(p.tag, p.group.Domains(), generated), nil)
	}
	write(ClassificationLog, RenderClassificationLog(res, generated), nil)

	w.log.Info("rule files generated",
		"dir", w.dir,
		"in_region_domains", summary.InRegionDomains,
		"out_of_region_domains", summary.OutOfRegionDomains,
		"files", len(summary.Files))
	return summary, errors.Join(errs...)
}
