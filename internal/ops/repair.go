package ops

import (
	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/vendor"
)

// RepairConfig controls which pages Repair touches and how.
type RepairConfig struct {
	// Algorithm selects the checksum scheme. AlgorithmAuto (the zero value)
	// inspects page 0 once and applies the detected algorithm to every page.
	Algorithm checksum.Algorithm
	// DryRun computes but does not write corrected checksums.
	DryRun bool
	// SinglePage restricts repair to one page number; nil means every page.
	SinglePage *uint64
}

// PageRepair is one page's before/after checksum, reported whether or not
// DryRun suppressed the actual write.
type PageRepair struct {
	PageNumber  uint64
	Algorithm   checksum.Algorithm
	OldChecksum uint32
	NewChecksum uint32
}

// RepairReport is the full result of a repair pass.
type RepairReport struct {
	Algorithm checksum.Algorithm
	DryRun    bool
	Repairs   []PageRepair
}

// detectAlgorithm inspects page 0's own stored checksum against desc's
// candidate set and returns whichever validated; if none did (page 0 is
// itself corrupt), it falls back to CRC32C, the modern default, so callers
// still get a deterministic algorithm to repair everything else under.
func detectAlgorithm(page0 []byte, pageSize uint32, desc vendor.Descriptor) checksum.Algorithm {
	res := checksum.Validate(page0, pageSize, checksum.AlgorithmAuto, desc.ChecksumCandidates)
	if res.Valid && !res.Empty {
		return res.Algorithm
	}
	return checksum.AlgorithmCRC32C
}

// Repair scans raw — the tablespace's undecrypted on-disk bytes; checksums
// are stamped over stored bytes, not plaintext, so repair never needs a
// decryption context — for pages whose stored checksum or trailer LSN
// disagrees with what's computed, recomputes them, and returns a corrected
// copy alongside a report of what changed. raw itself is never mutated.
// The result is byte-for-byte identical to raw except for the
// repaired pages' checksum slots (and, for the CRC-32C and legacy
// algorithms, their trailer).
func Repair(raw []byte, pageSize uint32, desc vendor.Descriptor, cfg RepairConfig) (RepairReport, []byte) {
	algo := cfg.Algorithm
	if algo == checksum.AlgorithmAuto {
		probeLen := int(pageSize)
		if probeLen > len(raw) {
			probeLen = len(raw)
		}
		algo = detectAlgorithm(raw[:probeLen], pageSize, desc)
	}

	out := make([]byte, len(raw))
	copy(out, raw)

	total := pageCount(out, pageSize)
	report := RepairReport{Algorithm: algo, DryRun: cfg.DryRun}

	var targets []int
	if cfg.SinglePage != nil {
		targets = []int{int(*cfg.SinglePage)}
	} else {
		targets = make([]int, total)
		for i := range targets {
			targets[i] = i
		}
	}

	for _, n := range targets {
		if n < 0 || n >= total {
			continue
		}
		page := pageAt(out, pageSize, n)
		if isAllZero(page) {
			continue
		}
		res := checksum.Validate(page, pageSize, algo, nil)
		if res.Valid && !res.LSNMismatch {
			continue
		}
		old := res.Stored
		newSum := res.Computed
		if !cfg.DryRun {
			newSum = checksum.Recompute(page, pageSize, algo)
		}
		report.Repairs = append(report.Repairs, PageRepair{
			PageNumber:  uint64(n),
			Algorithm:   algo,
			OldChecksum: old,
			NewChecksum: newSum,
		})
	}
	return report, out
}
