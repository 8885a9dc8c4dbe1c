package idbkit

import (
	"github.com/idbkit/idbkit/internal/xfile"
)

// DiffReport wraps internal/xfile's page-level comparison result.
type DiffReport = xfile.DiffReport

// Diff compares two tablespace files page by page, reporting identical
// pages, modified pages (with byte-range detail under WithByteRanges),
// and pages present in only one file.
func Diff(pathA, pathB string, opts ...Option) (DiffReport, error) {
	c := newConfig(opts)
	cfg := xfile.DiffConfig{PageSizeOverride: c.pageSizeOverride}
	if c.hasSinglePage {
		cfg.SinglePage = *c.singlePage
		cfg.HasSinglePageFilter = true
	}
	report, err := xfile.Diff(pathA, pathB, cfg)
	if err != nil || c.byteRanges {
		return report, err
	}
	for i := range report.Modified {
		report.Modified[i].Ranges = nil
	}
	return report, nil
}
