// Package checksum validates and recomputes InnoDB page checksums under the
// three algorithms the on-disk format has used across vendors and versions.
package checksum

import (
	"hash/crc32"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/format"
)

// Algorithm identifies which checksum scheme a page was stamped with.
type Algorithm int

const (
	// AlgorithmAuto requests auto-detection from page 0.
	AlgorithmAuto Algorithm = iota
	// AlgorithmCRC32C is two CRC-32C (Castagnoli) sums, over the header and
	// body regions respectively, XOR-combined.
	AlgorithmCRC32C
	// AlgorithmLegacy is the original engine's folding hash, computed the
	// same way over the same two regions and XOR-combined.
	AlgorithmLegacy
	// AlgorithmFullCRC32 is a single CRC-32 (ISO polynomial) over the whole
	// page except its own trailing 4 bytes, used by one fork's page format.
	AlgorithmFullCRC32
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmCRC32C:
		return "crc32c"
	case AlgorithmLegacy:
		return "legacy"
	case AlgorithmFullCRC32:
		return "full_crc32"
	default:
		return "auto"
	}
}

// ParseAlgorithm maps a configuration string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, bool) {
	switch s {
	case "", "auto":
		return AlgorithmAuto, true
	case "crc32c":
		return AlgorithmCRC32C, true
	case "legacy":
		return AlgorithmLegacy, true
	case "full_crc32":
		return AlgorithmFullCRC32, true
	default:
		return AlgorithmAuto, false
	}
}

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// crc32c computes CRC-32C (Castagnoli) over data. Go's hash/crc32 exposes
// the Castagnoli polynomial directly and is hardware-accelerated on amd64
// and arm64 via crc32.Update's SSE4.2/ARM64 CRC fast paths, so there is no
// need for a separate third-party implementation.
func crc32c(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// CRC32C exposes the plain CRC-32C checksum for callers outside the page
// codec, such as redo log block trailers, which checksum a flat byte range
// rather than a split header/body page.
func CRC32C(data []byte) uint32 {
	return crc32c(data)
}

// legacyFold is InnoDB's original (pre-5.7) checksum: a folding hash that
// reads 4-byte big-endian words and accumulates them as fold = fold*7 + word,
// folding any trailing bytes in one at a time the same way.
// It predates CRC-32C support in common CPUs and remains only for backward
// compatibility with files written by very old servers.
func legacyFold(data []byte) uint32 {
	var fold uint32 = 0
	for i := 0; i+4 <= len(data); i += 4 {
		word := uint32(data[i])<<24 | uint32(data[i+1])<<16 | uint32(data[i+2])<<8 | uint32(data[i+3])
		fold = fold*7 + word
	}
	// Remaining partial word, if body length isn't a multiple of 4.
	rem := len(data) - (len(data) % 4)
	for i := rem; i < len(data); i++ {
		fold = fold*7 + uint32(data[i])
	}
	return fold
}

// Result is the outcome of validating a single page's checksum.
type Result struct {
	Valid     bool
	Empty     bool // all-zero page; checksum logic bypassed
	Algorithm Algorithm
	Stored    uint32
	Computed  uint32
	// LSNMismatch is set when the trailer's low-32 LSN bits disagree with
	// the header's LSN, independent of whether the checksum itself is
	// valid — the trailer sequence check.
	LSNMismatch bool
}

// IsEmptyPage reports whether data consists entirely of zero bytes.
func IsEmptyPage(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// headerRegion and bodyRegion split a page into the two spans the
// split-checksum algorithms hash independently.
func headerRegion(data []byte) []byte { return data[4:format.SizeFILHeader] }
func bodyRegion(pageSize uint32, data []byte) []byte {
	return data[format.SizeFILHeader : int(pageSize)-format.SizeFILTrailer]
}

func computeSplit(algo Algorithm, pageSize uint32, data []byte) uint32 {
	h, b := headerRegion(data), bodyRegion(pageSize, data)
	if algo == AlgorithmLegacy {
		return legacyFold(h) ^ legacyFold(b)
	}
	return crc32c(h) ^ crc32c(b)
}

func computeFullCRC32(pageSize uint32, data []byte) uint32 {
	return crc32.Checksum(data[:int(pageSize)-4], ieeeTable)
}

// trailerLSNMismatch checks the independent trailer-sequence invariant.
func trailerLSNMismatch(pageSize uint32, data []byte) bool {
	trailerOff := int(pageSize) - format.SizeFILTrailer
	lsnLow32 := buf.U32BE(data[format.FilPageLSN+4:]) // low 32 bits of the 8-byte LSN field
	trailerLow32 := buf.U32BE(data[trailerOff+4:])
	return lsnLow32 != trailerLow32
}

// Validate checks data's stored checksum under algo. If algo is
// AlgorithmAuto, each candidate algorithm in candidates is tried in order
// and the first that validates is reported; if none validate, the result
// reflects the last candidate tried, so callers still get a computed value
// to compare against.
func Validate(data []byte, pageSize uint32, algo Algorithm, candidates []Algorithm) Result {
	if IsEmptyPage(data) {
		return Result{Valid: true, Empty: true}
	}
	mismatch := trailerLSNMismatch(pageSize, data)

	// The fork's full-page CRC lives in the page's last 4 bytes; the split
	// algorithms store theirs in the FIL header's checksum slot.
	storedFor := func(a Algorithm) uint32 {
		if a == AlgorithmFullCRC32 {
			return buf.U32BE(data[int(pageSize)-4:])
		}
		return buf.U32BE(data[format.FilPageSpaceOrChksum:])
	}

	try := candidates
	if algo != AlgorithmAuto {
		try = []Algorithm{algo}
	}
	if len(try) == 0 {
		try = []Algorithm{AlgorithmCRC32C, AlgorithmLegacy, AlgorithmFullCRC32}
	}

	var lastComputed, lastStored uint32
	var lastAlgo Algorithm
	for _, a := range try {
		var computed uint32
		if a == AlgorithmFullCRC32 {
			computed = computeFullCRC32(pageSize, data)
		} else {
			computed = computeSplit(a, pageSize, data)
		}
		stored := storedFor(a)
		lastComputed, lastStored, lastAlgo = computed, stored, a
		if computed == stored {
			// Full-CRC-32 pages have no old-style trailer: their last 4
			// bytes hold the checksum itself, so the trailer sequence
			// check does not apply.
			return Result{Valid: true, Algorithm: a, Stored: stored, Computed: computed, LSNMismatch: mismatch && a != AlgorithmFullCRC32}
		}
	}
	return Result{Valid: false, Algorithm: lastAlgo, Stored: lastStored, Computed: lastComputed, LSNMismatch: mismatch && lastAlgo != AlgorithmFullCRC32}
}

// Recompute writes a fresh checksum (and, for non-fork algorithms, the
// trailer's old-style checksum) into data under algo. data is mutated in
// place; pageSize must equal len(data).
func Recompute(data []byte, pageSize uint32, algo Algorithm) uint32 {
	if algo == AlgorithmFullCRC32 {
		computed := computeFullCRC32(pageSize, data)
		buf.PutU32BE(data[int(pageSize)-4:], computed)
		return computed
	}
	computed := computeSplit(algo, pageSize, data)
	buf.PutU32BE(data[format.FilPageSpaceOrChksum:], computed)
	trailerOff := int(pageSize) - format.SizeFILTrailer
	buf.PutU32BE(data[trailerOff:], computed)
	lsnLow32 := buf.U32BE(data[format.FilPageLSN+4:])
	buf.PutU32BE(data[trailerOff+4:], lsnLow32)
	return computed
}
