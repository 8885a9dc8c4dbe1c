package format

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/buf"
)

// FilHeader is the 38-byte prefix present on every InnoDB page.
//
// Layout (big-endian):
//
//	Offset  Size  Field
//	0x00    4     Checksum (or space id in pre-4.1 files)
//	0x04    4     Page number within the tablespace
//	0x08    4     Previous page, FilNull if none
//	0x0C    4     Next page, FilNull if none
//	0x10    8     LSN of newest modification to this page
//	0x18    2     Page type
//	0x1A    8     Flush LSN (page 0 of the system space) / saved original
//	              type for encrypted pages
//	0x22    4     Space id
type FilHeader struct {
	Checksum    uint32
	PageNumber  uint32
	PrevPage    uint32
	NextPage    uint32
	LSN         uint64
	PageType    PageType
	FlushLSN    uint64
	SpaceID     uint32
}

// ParseFilHeader decodes a FIL header from the start of a page buffer.
func ParseFilHeader(data []byte) (FilHeader, error) {
	if len(data) < SizeFILHeader {
		return FilHeader{}, fmt.Errorf("fil header: %w", ErrTruncated)
	}
	return FilHeader{
		Checksum:   buf.U32BE(data[FilPageSpaceOrChksum:]),
		PageNumber: buf.U32BE(data[FilPageOffset:]),
		PrevPage:   buf.U32BE(data[FilPagePrev:]),
		NextPage:   buf.U32BE(data[FilPageNext:]),
		LSN:        buf.U64BE(data[FilPageLSN:]),
		PageType:   PageTypeFromU16(buf.U16BE(data[FilPageType:])),
		FlushLSN:   buf.U64BE(data[FilPageFileFlushLSN:]),
		SpaceID:    buf.U32BE(data[FilPageSpaceID:]),
	}, nil
}

// HasPrev reports whether PrevPage points at a real page.
func (h FilHeader) HasPrev() bool { return h.PrevPage != FilNull }

// HasNext reports whether NextPage points at a real page.
func (h FilHeader) HasNext() bool { return h.NextPage != FilNull }

// PutFilHeader writes h into the start of data, overwriting any existing
// header bytes. Used by write operations (checksum repair, defragment) that
// construct pages in memory before emitting a new file.
func PutFilHeader(data []byte, h FilHeader) {
	buf.PutU32BE(data[FilPageSpaceOrChksum:], h.Checksum)
	buf.PutU32BE(data[FilPageOffset:], h.PageNumber)
	buf.PutU32BE(data[FilPagePrev:], h.PrevPage)
	buf.PutU32BE(data[FilPageNext:], h.NextPage)
	buf.PutU64BE(data[FilPageLSN:], h.LSN)
	buf.PutU16BE(data[FilPageType:], uint16(h.PageType))
	buf.PutU64BE(data[FilPageFileFlushLSN:], h.FlushLSN)
	buf.PutU32BE(data[FilPageSpaceID:], h.SpaceID)
}

// FilTrailer is the 8-byte suffix present on every InnoDB page.
type FilTrailer struct {
	Checksum  uint32 // old-style checksum, meaningful only for non-fork algorithms
	LSNLow32  uint32 // low 32 bits of the header LSN
}

// ParseFilTrailer decodes a FIL trailer from an 8-byte slice (the last 8
// bytes of a page).
func ParseFilTrailer(data []byte) (FilTrailer, error) {
	if len(data) < SizeFILTrailer {
		return FilTrailer{}, fmt.Errorf("fil trailer: %w", ErrTruncated)
	}
	return FilTrailer{
		Checksum: buf.U32BE(data[0:]),
		LSNLow32: buf.U32BE(data[4:]),
	}, nil
}

// PutFilTrailer writes t into an 8-byte slice.
func PutFilTrailer(data []byte, t FilTrailer) {
	buf.PutU32BE(data[0:], t.Checksum)
	buf.PutU32BE(data[4:], t.LSNLow32)
}

// FspHeader is the space-wide header living on page 0, immediately after the
// FIL header.
type FspHeader struct {
	SpaceID    uint32
	Size       uint32 // tablespace size, in pages
	FreeLimit  uint32 // first page not yet initialized
	Flags      uint32 // page size / compression / encryption bits
	FragNUsed  uint32
}

// ParseFspHeader decodes the FSP header from a full page buffer (page must be
// page 0 of its tablespace).
func ParseFspHeader(pageData []byte) (FspHeader, error) {
	if len(pageData) < FilPageData+FSPHeaderSize {
		return FspHeader{}, fmt.Errorf("fsp header: %w", ErrTruncated)
	}
	d := pageData[FilPageData:]
	return FspHeader{
		SpaceID:   buf.U32BE(d[FspSpaceID:]),
		Size:      buf.U32BE(d[FspSize:]),
		FreeLimit: buf.U32BE(d[FspFreeLimit:]),
		Flags:     buf.U32BE(d[FspSpaceFlags:]),
		FragNUsed: buf.U32BE(d[FspFragNUsed:]),
	}, nil
}

// PageSize decodes the page size encoded in the space flags. A zero ssize
// field means "default", i.e. 16K; otherwise page_size = 1 << (ssize + 9),
// giving 1K..64K for ssize 1..7 (in practice only 4K/8K/16K/32K/64K occur).
func (h FspHeader) PageSize() uint32 {
	ssize := (h.Flags & FspFlagsMaskPageSSize) >> FspFlagsPosPageSSize
	if ssize == 0 {
		return SizePageDefault
	}
	return 1 << (ssize + 9)
}

// CompressionAlgorithm identifies the page-body compression in effect, if
// any, as encoded in the space flags.
type CompressionAlgorithm int

const (
	CompressionNone CompressionAlgorithm = 0
	CompressionZlib CompressionAlgorithm = 1
	CompressionLZ4  CompressionAlgorithm = 2
)

// Compression decodes the compression selector from the space flags.
func (h FspHeader) Compression() CompressionAlgorithm {
	sel := (h.Flags & FspFlagsMaskCompression) >> FspFlagsPosCompression
	return CompressionAlgorithm(sel)
}

// Encrypted reports whether the encryption bit is set in the space flags.
func (h FspHeader) Encrypted() bool {
	return h.Flags&FspFlagsMaskEncryption != 0
}
