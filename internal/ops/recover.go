package ops

import (
	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/record"
	"github.com/idbkit/idbkit/internal/vendor"
)

// PageClass is the recovery classification for a single page.
type PageClass int

const (
	// PageClassIntact means the page's FIL header parses, its checksum
	// validates, and (for INDEX pages) its record chain walks cleanly.
	PageClassIntact PageClass = iota
	// PageClassCorrupt means the FIL header parses but the checksum fails,
	// or an INDEX page's record chain breaks partway through — some data is
	// likely still salvageable.
	PageClassCorrupt
	// PageClassUnreadable means the FIL header itself doesn't parse (the
	// page is almost certainly unrelated garbage or catastrophically
	// damaged).
	PageClassUnreadable
	// PageClassEmpty means the page is all zero bytes, the ordinary state
	// of a never-allocated page.
	PageClassEmpty
)

// String renders a PageClass the way reports name it.
func (c PageClass) String() string {
	switch c {
	case PageClassIntact:
		return "intact"
	case PageClassCorrupt:
		return "corrupt"
	case PageClassUnreadable:
		return "unreadable"
	case PageClassEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// PageDetail is one page's classification result.
type PageDetail struct {
	PageNumber      uint64
	Class           PageClass
	PageType        format.PageType
	RecoverableRecs int // INDEX pages only: count of records WalkRecordChain reached
}

// RecoverReport is the full classification pass over a tablespace.
type RecoverReport struct {
	Algorithm checksum.Algorithm
	Pages     []PageDetail
	Counts    map[PageClass]int
}

// Classify walks every page in raw and assigns it a PageClass.
// Classification never mutates raw and never requires decryption — like
// Repair, it works over stored bytes, since a checksum computed over
// plaintext would never match a page that is in fact encrypted on disk.
func Classify(raw []byte, pageSize uint32, desc vendor.Descriptor) RecoverReport {
	total := pageCount(raw, pageSize)
	var algo checksum.Algorithm
	if total > 0 {
		algo = detectAlgorithm(pageAt(raw, pageSize, 0), pageSize, desc)
	}

	report := RecoverReport{Algorithm: algo, Counts: map[PageClass]int{}}
	for n := 0; n < total; n++ {
		page := pageAt(raw, pageSize, n)
		detail := PageDetail{PageNumber: uint64(n)}

		if isAllZero(page) {
			detail.Class = PageClassEmpty
			report.Pages = append(report.Pages, detail)
			report.Counts[PageClassEmpty]++
			continue
		}

		fil, err := format.ParseFilHeader(page)
		if err != nil {
			detail.Class = PageClassUnreadable
			report.Pages = append(report.Pages, detail)
			report.Counts[PageClassUnreadable]++
			continue
		}
		detail.PageType = fil.PageType

		res := checksum.Validate(page, pageSize, algo, desc.ChecksumCandidates)
		if !res.Valid {
			detail.Class = PageClassCorrupt
			report.Pages = append(report.Pages, detail)
			report.Counts[PageClassCorrupt]++
			continue
		}

		if fil.PageType.IsIndex() {
			refs, werr := format.WalkRecordChain(page)
			detail.RecoverableRecs = len(refs)
			if werr != nil {
				detail.Class = PageClassCorrupt
				report.Pages = append(report.Pages, detail)
				report.Counts[PageClassCorrupt]++
				continue
			}
		}

		detail.Class = PageClassIntact
		report.Pages = append(report.Pages, detail)
		report.Counts[PageClassIntact]++
	}
	return report
}

// RecoveredRecord is one record salvaged from a (possibly Corrupt) INDEX
// page, decoded against a caller-supplied schema.
type RecoveredRecord struct {
	PageNumber uint64
	Origin     int
	Values     []record.Value
	Err        error // set when decoding this one record failed; Values is nil
}

// ExtractRecoverableRecords decodes every record WalkRecordChain can
// still reach on the given page against cols. It's the caller's job
// to know the page belongs to the table cols describes — Classify only
// reports counts, this does the actual salvage decode. A per-record error
// (e.g. a truncated variable-length field) doesn't abort the page: it's
// recorded on that RecoveredRecord and the walk continues, since the point
// of recovery is to save what can be saved.
func ExtractRecoverableRecords(pageData []byte, pageNumber uint64, cols []record.Column) ([]RecoveredRecord, error) {
	refs, err := format.WalkRecordChain(pageData)
	if err != nil && len(refs) == 0 {
		return nil, err
	}
	out := make([]RecoveredRecord, 0, len(refs))
	for _, ref := range refs {
		vh, verr := record.ParseVarHeader(pageData, ref.Origin, cols)
		if verr != nil {
			out = append(out, RecoveredRecord{PageNumber: pageNumber, Origin: ref.Origin, Err: verr})
			continue
		}
		values, derr := record.DecodeRecord(pageData, ref.Origin, cols, vh)
		out = append(out, RecoveredRecord{PageNumber: pageNumber, Origin: ref.Origin, Values: values, Err: derr})
	}
	return out, nil
}
