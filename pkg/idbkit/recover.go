package idbkit

import (
	"github.com/idbkit/idbkit/internal/dictionary"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/ops"
	"github.com/idbkit/idbkit/internal/tablespace"
	"github.com/idbkit/idbkit/internal/writer"
	"github.com/idbkit/idbkit/record"
)

// PageClass and RecoverPageDetail re-export internal/ops'
// classification types.
type (
	PageClass         = ops.PageClass
	RecoverPageDetail = ops.PageDetail
)

// PageClass* re-export internal/ops' classification values so
// callers of this package never need to import internal/ops themselves.
const (
	PageClassIntact     = ops.PageClassIntact
	PageClassCorrupt    = ops.PageClassCorrupt
	PageClassUnreadable = ops.PageClassUnreadable
	PageClassEmpty      = ops.PageClassEmpty
)

// RecoveredRecord is one record salvaged from an intact (or, with
// WithForce, corrupt) page and decoded against the resolved schema; records
// are only extracted when a schema resolves.
type RecoveredRecord = ops.RecoveredRecord

// RecoverReport is the full result of recover(): every page's
// classification, plus any records extracted from pages worth salvaging,
// and (with WithRebuildOutputPath) the path a rebuilt file was written to.
type RecoverReport struct {
	Classification ops.RecoverReport
	Records        []RecoveredRecord
	RebuiltTo      string
}

// Recover classifies every page of path (empty / unreadable / corrupt /
// intact), then — for intact pages, or corrupt pages too when WithForce
// is set — walks the record chain and decodes it against the file's own
// SDI schema when one resolves. With WithRebuildOutputPath set, it
// additionally writes a defragmented copy that excludes unreadable pages
// to that path.
func Recover(path string, opts ...Option) (RecoverReport, error) {
	c := newConfig(opts)

	h, err := openTablespace(path, config{pageSizeOverride: c.pageSizeOverride, keyringPath: c.keyringPath})
	if err != nil {
		return RecoverReport{}, err
	}
	raw, err := h.ReadAllPages()
	pageSize, vendorDesc := h.PageSize, h.Vendor
	if err != nil {
		h.Close()
		return RecoverReport{}, err
	}

	classification := ops.Classify(raw, pageSize, vendorDesc)

	cols, _ := resolveRecordColumns(h)
	h.Close()

	var records []RecoveredRecord
	if cols != nil {
		for _, pd := range classification.Pages {
			if pd.PageType != format.PageTypeIndex {
				continue
			}
			if pd.Class == PageClassUnreadable || pd.Class == PageClassEmpty {
				continue
			}
			if pd.Class == PageClassCorrupt && !c.force {
				continue
			}
			page := raw[pd.PageNumber*uint64(pageSize) : (pd.PageNumber+1)*uint64(pageSize)]
			recs, rerr := ops.ExtractRecoverableRecords(page, pd.PageNumber, cols)
			if rerr != nil {
				continue
			}
			records = append(records, recs...)
		}
	}

	report := RecoverReport{Classification: classification, Records: records}

	if c.rebuildOutputPath != "" {
		classes := make(map[uint64]PageClass, len(classification.Pages))
		for _, pd := range classification.Pages {
			classes[pd.PageNumber] = pd.Class
		}
		rebuilt := ops.Rebuild(raw, pageSize, vendorDesc, classes, ops.DefragConfig{Algorithm: c.algorithm})
		fw := &writer.FileWriter{Path: c.rebuildOutputPath}
		if err := fw.WriteFile(rebuilt.Pages); err != nil {
			return report, err
		}
		report.RebuiltTo = c.rebuildOutputPath
	}

	return report, nil
}

// resolveRecordColumns looks for a "Table" SDI record and builds a physical
// record.Column list from it. A nil, nil return means no schema resolved;
// Recover then extracts no records (page classification still runs).
func resolveRecordColumns(h *tablespace.Handle) ([]record.Column, error) {
	pages, err := dictionary.FindSDIPages(h)
	if err != nil || len(pages) == 0 {
		return nil, nil
	}
	recs, err := dictionary.ExtractAll(h, pages)
	if err != nil {
		return nil, nil
	}
	for _, rec := range recs {
		if dictionary.TypeName(rec.Type) != "Table" {
			continue
		}
		cols, err := dictionary.BuildRecordColumns(rec.Data)
		if err != nil {
			continue
		}
		return cols, nil
	}
	return nil, nil
}
