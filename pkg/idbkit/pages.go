package idbkit

import (
	"github.com/idbkit/idbkit/internal/format"
)

// PageDetail is one page's decoded structure, the unit pages() reports on.
// Only IndexHeader is populated for INDEX/RTree/SDI pages; other page
// types report just their FIL header.
type PageDetail struct {
	PageNumber  uint64
	PageType    string
	SpaceID     uint32
	Empty       bool
	IndexHeader *format.PageHeader `json:",omitempty"`
}

// PagesReport is the result of pages().
type PagesReport struct {
	File  string
	Pages []PageDetail
}

// Pages decodes every page's structure (or just the one named by
// WithSinglePage), optionally filtered by WithFilterType, with empty pages
// included only under WithShowEmpty. WithListMode renders the same data
// without the IndexHeader field, for callers that just want the type/space
// roll call.
func Pages(path string, opts ...Option) (PagesReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return PagesReport{}, err
	}
	defer h.Close()

	report := PagesReport{File: path}

	visit := func(n uint64, data []byte) error {
		empty := isAllZero(data)
		if empty && !c.showEmpty {
			return nil
		}
		detail := PageDetail{PageNumber: n, Empty: empty}
		if !empty {
			fil, err := format.ParseFilHeader(data)
			if err != nil {
				return nil
			}
			detail.PageType = fil.PageType.Name()
			detail.SpaceID = fil.SpaceID
			if c.filterType != "" && detail.PageType != c.filterType {
				return nil
			}
			if !c.listMode && fil.PageType.IsIndex() {
				if idx, err := format.ParsePageHeader(data); err == nil {
					detail.IndexHeader = &idx
				}
			}
		} else if c.filterType != "" {
			return nil
		}
		report.Pages = append(report.Pages, detail)
		return nil
	}

	if c.hasSinglePage {
		data, err := h.ReadPage(*c.singlePage)
		if err != nil {
			return PagesReport{}, err
		}
		_ = visit(*c.singlePage, data)
		return report, nil
	}
	if err := h.ForEachPage(visit); err != nil {
		return PagesReport{}, err
	}
	return report, nil
}

func isAllZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
