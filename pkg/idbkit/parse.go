package idbkit

import (
	"github.com/idbkit/idbkit/internal/format"
)

// PageHeaderSummary is one page's FIL-header-level summary, the unit
// parse() reports on.
type PageHeaderSummary struct {
	PageNumber uint64
	PageType   string
	SpaceID    uint32
	LSN        uint64
}

// ParseReport is the result of parse(): a per-page header summary plus a
// type-frequency table.
type ParseReport struct {
	File          string
	PageSize      uint32
	PageCount     uint64
	Pages         []PageHeaderSummary
	TypeFrequency map[string]int
}

// Parse reads every page's FIL header (or just the one named by
// WithSinglePage) and reports its type, space id, and LSN, plus a
// type-frequency table across the whole file.
func Parse(path string, opts ...Option) (ParseReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return ParseReport{}, err
	}
	defer h.Close()

	report := ParseReport{File: path, PageSize: h.PageSize, PageCount: h.PageCount, TypeFrequency: map[string]int{}}

	visit := func(n uint64, data []byte) error {
		fil, err := format.ParseFilHeader(data)
		if err != nil {
			return nil // a page whose header does not parse is left out of the report, not fatal
		}
		report.Pages = append(report.Pages, PageHeaderSummary{
			PageNumber: n,
			PageType:   fil.PageType.Name(),
			SpaceID:    fil.SpaceID,
			LSN:        fil.LSN,
		})
		report.TypeFrequency[fil.PageType.Name()]++
		return nil
	}

	if c.hasSinglePage {
		data, err := h.ReadPage(*c.singlePage)
		if err != nil {
			return ParseReport{}, err
		}
		_ = visit(*c.singlePage, data)
		return report, nil
	}

	if err := h.ForEachPage(visit); err != nil {
		return ParseReport{}, err
	}
	return report, nil
}
