// Package testpage builds synthetic page buffers for tests across the
// tablespace, checksum, verify, and health packages, so each of those
// packages' tests don't hand-roll the same byte layout.
package testpage

import (
	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
)

// FilHeaderFields are the subset of FIL header fields tests usually care
// about; zero-valued fields take sane defaults.
type FilHeaderFields struct {
	PageNumber uint32
	PrevPage   uint32
	NextPage   uint32
	LSN        uint64
	PageType   format.PageType
	SpaceID    uint32
}

// NewPage allocates a pageSize buffer and stamps a FIL header (and, for page
// 0, an FSP header) with the given fields, leaving the checksum slot at zero.
func NewPage(pageSize uint32, f FilHeaderFields) []byte {
	data := make([]byte, pageSize)
	if f.PrevPage == 0 {
		f.PrevPage = format.FilNull
	}
	if f.NextPage == 0 {
		f.NextPage = format.FilNull
	}
	format.PutFilHeader(data, format.FilHeader{
		PageNumber: f.PageNumber,
		PrevPage:   f.PrevPage,
		NextPage:   f.NextPage,
		LSN:        f.LSN,
		PageType:   f.PageType,
		SpaceID:    f.SpaceID,
	})
	trailerOff := int(pageSize) - format.SizeFILTrailer
	buf.PutU32BE(data[trailerOff+4:], uint32(f.LSN))
	if f.PageNumber == 0 {
		fsp := data[format.FilPageData:]
		buf.PutU32BE(fsp[format.FspSpaceID:], f.SpaceID)
		buf.PutU32BE(fsp[format.FspSpaceFlags:], pageSizeFlags(pageSize))
	}
	return data
}

// pageSizeFlags encodes pageSize into the FSP space-flags ssize field so
// ParseFspHeader(...).PageSize() round-trips.
func pageSizeFlags(pageSize uint32) uint32 {
	if pageSize == format.SizePageDefault {
		return 0
	}
	ssize := uint32(0)
	for sz := uint32(512); sz < pageSize; sz <<= 1 {
		ssize++
	}
	return ssize << format.FspFlagsPosPageSSize
}

// WithChecksum recomputes and stamps the page's checksum under algo.
func WithChecksum(data []byte, pageSize uint32, algo checksum.Algorithm) []byte {
	checksum.Recompute(data, pageSize, algo)
	return data
}

// IndexPageFields stamps a B+Tree index header (offset 38, 36 bytes) on top
// of an existing page buffer built with NewPage.
type IndexPageFields struct {
	Level   uint16
	IndexID uint64
	NRecs   uint16
	HeapTop uint16
	Garbage uint16
	NHeap   uint16 // include PageNHeapCompactFlag explicitly if desired
}

// PutIndexHeader stamps the page header fields used by health/verify tests.
func PutIndexHeader(data []byte, f IndexPageFields) {
	d := data[format.FilPageData:]
	buf.PutU16BE(d[format.PageHeapTop:], f.HeapTop)
	buf.PutU16BE(d[format.PageNHeap:], f.NHeap)
	buf.PutU16BE(d[format.PageGarbage:], f.Garbage)
	buf.PutU16BE(d[format.PageNRecs:], f.NRecs)
	buf.PutU16BE(d[format.PageLevel:], f.Level)
	buf.PutU64BE(d[format.PageIndexID:], f.IndexID)
}
