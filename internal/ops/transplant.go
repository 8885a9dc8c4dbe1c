package ops

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/vendor"
)

// TransplantConfig controls a page-transplant pass (copying pages
// from a donor tablespace into a target, e.g. recovering a single damaged
// page from an older backup of the same table).
type TransplantConfig struct {
	// Pages restricts the transplant to these page numbers; empty means
	// every page the donor and target both have.
	Pages []uint64
	// Force applies a donor page even when its own checksum is invalid or
	// it is page 0 (normally skipped since page 0 carries the FSP header
	// describing the whole space, not a row-store page, and swapping it in
	// from a donor is rarely what's wanted).
	Force bool
}

// PageTransplantResult reports what happened to one candidate page.
type PageTransplantResult struct {
	PageNumber uint64
	Applied    bool
	Reason     string // set when Applied is false
}

// TransplantReport is the full result of a transplant pass.
type TransplantReport struct {
	Results []PageTransplantResult
	Target  []byte
}

// Transplant copies pages from donor into target at matching offsets,
// returning a new target buffer (target itself is never mutated) plus a
// report of which pages were applied and why any were skipped. Both buffers
// are split at the one pageSize given (pkg/idbkit.Transplant rejects files
// whose page sizes differ), and the space ID must match between donor and
// target — a file-level mismatch Force cannot override, since the page
// identity would otherwise be meaningless once copied.
func Transplant(target, donor []byte, pageSize uint32, desc vendor.Descriptor, cfg TransplantConfig) (TransplantReport, error) {
	targetCount := pageCount(target, pageSize)
	donorCount := pageCount(donor, pageSize)
	if targetCount == 0 || donorCount == 0 {
		return TransplantReport{}, fmt.Errorf("transplant: empty file")
	}

	tFil, err := format.ParseFilHeader(pageAt(target, pageSize, 0))
	if err != nil {
		return TransplantReport{}, fmt.Errorf("transplant: target page 0: %w", err)
	}
	dFil, err := format.ParseFilHeader(pageAt(donor, pageSize, 0))
	if err != nil {
		return TransplantReport{}, fmt.Errorf("transplant: donor page 0: %w", err)
	}
	if tFil.SpaceID != dFil.SpaceID {
		return TransplantReport{}, fmt.Errorf("transplant: space id mismatch (target %d, donor %d)", tFil.SpaceID, dFil.SpaceID)
	}

	algo := detectAlgorithm(pageAt(target, pageSize, 0), pageSize, desc)

	out := make([]byte, len(target))
	copy(out, target)

	var candidates []uint64
	if len(cfg.Pages) > 0 {
		candidates = cfg.Pages
	} else {
		max := targetCount
		if donorCount < max {
			max = donorCount
		}
		candidates = make([]uint64, max)
		for i := range candidates {
			candidates[i] = uint64(i)
		}
	}

	var report TransplantReport
	for _, n := range candidates {
		res := PageTransplantResult{PageNumber: n}
		if int(n) >= targetCount || int(n) >= donorCount {
			res.Reason = "out of range"
			report.Results = append(report.Results, res)
			continue
		}
		if n == 0 && !cfg.Force {
			res.Reason = "refusing to overwrite FSP header page without Force"
			report.Results = append(report.Results, res)
			continue
		}
		donorPage := pageAt(donor, pageSize, int(n))
		if !cfg.Force {
			if check := checksum.Validate(donorPage, pageSize, algo, desc.ChecksumCandidates); !check.Valid {
				res.Reason = "donor page checksum invalid"
				report.Results = append(report.Results, res)
				continue
			}
		}
		dest := pageAt(out, pageSize, int(n))
		copy(dest, donorPage)
		checksum.Recompute(dest, pageSize, algo)
		res.Applied = true
		report.Results = append(report.Results, res)
	}
	report.Target = out
	return report, nil
}
