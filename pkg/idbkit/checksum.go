package idbkit

import (
	"github.com/idbkit/idbkit/internal/checksum"
)

// PageChecksumDetail is one page's validation outcome.
type PageChecksumDetail struct {
	PageNumber  uint64
	Valid       bool
	Empty       bool
	Algorithm   string
	Stored      uint32
	Computed    uint32
	LSNMismatch bool
}

// ChecksumReport is the result of checksum(): aggregate counts plus
// per-page detail (WithVerbose controls whether valid pages are included
// in Details, not whether they're counted).
type ChecksumReport struct {
	File        string
	Valid       int
	Invalid     int
	Empty       int
	LSNMismatch int
	Details     []PageChecksumDetail
}

// Checksum validates every page's stored checksum against the candidate
// set its detected vendor supports.
func Checksum(path string, opts ...Option) (ChecksumReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return ChecksumReport{}, err
	}
	defer h.Close()

	report := ChecksumReport{File: path}

	visit := func(n uint64, data []byte) error {
		res := checksum.Validate(data, h.PageSize, checksum.AlgorithmAuto, h.Vendor.ChecksumCandidates)
		switch {
		case res.Empty:
			report.Empty++
		case res.Valid:
			report.Valid++
		default:
			report.Invalid++
		}
		if res.LSNMismatch {
			report.LSNMismatch++
		}
		if c.verbose || !res.Valid {
			report.Details = append(report.Details, PageChecksumDetail{
				PageNumber:  n,
				Valid:       res.Valid,
				Empty:       res.Empty,
				Algorithm:   res.Algorithm.String(),
				Stored:      res.Stored,
				Computed:    res.Computed,
				LSNMismatch: res.LSNMismatch,
			})
		}
		return nil
	}

	if c.hasSinglePage {
		data, err := h.ReadPage(*c.singlePage)
		if err != nil {
			return ChecksumReport{}, err
		}
		_ = visit(*c.singlePage, data)
		return report, nil
	}
	if err := h.ForEachPage(visit); err != nil {
		return ChecksumReport{}, err
	}
	return report, nil
}
