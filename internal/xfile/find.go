package xfile

import (
	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
)

// FindConfig narrows a find() search.
type FindConfig struct {
	// ChecksumAlgorithm, when non-AlgorithmAuto, additionally requires the
	// matching page's stored checksum to validate under this algorithm.
	ChecksumAlgorithm checksum.Algorithm
	// HasChecksumFilter gates whether ChecksumAlgorithm is applied at all;
	// AlgorithmAuto is itself a legitimate filter value ("must validate
	// under some algorithm"), so a bool flag is needed to distinguish "no
	// filter" from "filter on auto-detect."
	HasChecksumFilter bool
	// SpaceID, when HasSpaceIDFilter, requires the file's page 0 space ID
	// to match.
	SpaceID         uint32
	HasSpaceIDFilter bool
	// FirstMatchOnly stops the walk after the first match anywhere in the
	// tree.
	FirstMatchOnly bool
	// MaxDepth bounds directory recursion; 0 means unlimited.
	MaxDepth int
}

// FindMatch is one tablespace file that has the target page number and
// passes all configured filters.
type FindMatch struct {
	Path       string
	PageNumber uint64
	SpaceID    uint32
	PageSize   uint32
}

// Find walks root looking for any tablespace file with a targetPageNumber
// page meeting cfg's filters. A file too small to contain targetPageNumber
// is silently skipped, as is one that fails to open at all — find reports
// matches, not errors.
func Find(root string, targetPageNumber uint64, cfg FindConfig) ([]FindMatch, error) {
	var matches []FindMatch
	err := walkCandidates(root, cfg.MaxDepth, func(path string) {
		if cfg.FirstMatchOnly && len(matches) > 0 {
			return
		}
		h, pages, oerr := openHandle(path, 0)
		if oerr != nil {
			return
		}
		defer h.Close()

		total := uint64(len(pages)) / uint64(h.PageSize)
		if targetPageNumber >= total {
			return
		}
		if cfg.HasSpaceIDFilter && h.SpaceID != cfg.SpaceID {
			return
		}

		off := targetPageNumber * uint64(h.PageSize)
		page := pages[off : off+uint64(h.PageSize)]

		if cfg.HasChecksumFilter {
			res := checksum.Validate(page, h.PageSize, cfg.ChecksumAlgorithm, h.Vendor.ChecksumCandidates)
			if !res.Valid {
				return
			}
		}

		fil, ferr := format.ParseFilHeader(page)
		if ferr != nil {
			return
		}
		if uint64(fil.PageNumber) != targetPageNumber {
			return
		}

		matches = append(matches, FindMatch{
			Path:       path,
			PageNumber: targetPageNumber,
			SpaceID:    h.SpaceID,
			PageSize:   h.PageSize,
		})
	})
	return matches, err
}
