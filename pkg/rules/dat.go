package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dohrules/pkg/domain"
	"dohrules/pkg/geosite"
)

// EncodeGroup encodes every domain of g as Plain rules under tag.
func EncodeGroup(tag string, g *domain.Group) []byte {
	return geosite.Encode(tag, g.Domains())
}

// Convert rebuilds the .dat and info files from the .list files already
// present in the writer's directory. A missing list file is skipped.
func (w *Writer) Convert() (Summary, error) {
	var summary Summary
	generated := w.now().Format(timeLayout)
	sources := []struct {
		list, dat, info, tag string
		count                *int
	}{
		{ForeignList, ForeignDat, ForeignInfo, ForeignTag, &summary.OutOfRegionDomains},
		{ChinaList, ChinaDat, ChinaInfo, ChinaTag, &summary.InRegionDomains},
	}

	var errs []error
	for _, src := range sources {
		rules, err := w.readListFile(filepath.Join(w.dir, src.list))
		if errors.Is(err, os.ErrNotExist) {
			w.log.Warn("list file not found, skipping", "file", src.list)
			continue
		}
		if err != nil {
			errs = append(errs, &WriteError{File: src.dat, Err: err})
			continue
		}
		if len(rules) == 0 {
			w.log.Warn("list file has no rules, skipping", "file", src.list)
			continue
		}
		*src.count = len(rules)

		outputs := []struct {
			name string
			data []byte
		}{
			{src.dat, geosite.Encode(src.tag, rules)},
			{src.info, RenderInfo(src.tag, rules, generated)},
		}
		for _, o := range outputs {
			if err := os.WriteFile(filepath.Join(w.dir, o.name), o.data, fileMode); err != nil {
				errs = append(errs, &WriteError{File: o.name, Err: err})
				continue
			}
			summary.Files = append(summary.Files, o.name)
		}
		w.log.Info("converted list to geosite", "list", src.list, "dat", src.dat, "tag", src.tag, "rules", len(rules))
	}
	return summary, errors.Join(errs...)
}

func (w *Writer) readListFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- path is inside the configured output directory.
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.log.Warn("failed to close list file", "file", path, "error", err)
		}
	}()

	rules, err := geosite.ReadList(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rules, nil
}
