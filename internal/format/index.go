package format

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/buf"
)

// PageHeader is the 36-byte B+Tree node header immediately following the FIL
// header on an INDEX (or RTree/SDI) page.
type PageHeader struct {
	NDirSlots  uint16
	HeapTop    uint16
	NHeap      uint16 // low 15 bits: heap record count; bit 15: compact-format flag
	Free       uint16
	Garbage    uint16
	LastInsert uint16
	Direction  uint16
	NDirection uint16
	NRecs      uint16
	MaxTrxID   uint64
	Level      uint16
	IndexID    uint64
}

// ParsePageHeader decodes the 36-byte index header at FilPageData.
func ParsePageHeader(pageData []byte) (PageHeader, error) {
	if len(pageData) < FilPageData+SizePageHeader {
		return PageHeader{}, fmt.Errorf("index header: %w", ErrTruncated)
	}
	d := pageData[FilPageData:]
	return PageHeader{
		NDirSlots:  buf.U16BE(d[PageNDirSlots:]),
		HeapTop:    buf.U16BE(d[PageHeapTop:]),
		NHeap:      buf.U16BE(d[PageNHeap:]),
		Free:       buf.U16BE(d[PageFree:]),
		Garbage:    buf.U16BE(d[PageGarbage:]),
		LastInsert: buf.U16BE(d[PageLastInsert:]),
		Direction:  buf.U16BE(d[PageDirection:]),
		NDirection: buf.U16BE(d[PageNDirection:]),
		NRecs:      buf.U16BE(d[PageNRecs:]),
		MaxTrxID:   buf.U64BE(d[PageMaxTrxID:]),
		Level:      buf.U16BE(d[PageLevel:]),
		IndexID:    buf.U64BE(d[PageIndexID:]),
	}, nil
}

// HeapRecordCount returns the number of heap records, masking off the
// compact-format flag in bit 15.
func (h PageHeader) HeapRecordCount() uint16 { return h.NHeap & PageNHeapMask }

// IsCompact reports whether the page uses the compact (vs. redundant) row
// format, signalled by bit 15 of NHeap.
func (h PageHeader) IsCompact() bool { return h.NHeap&PageNHeapCompactFlag != 0 }

// IsLeaf reports whether this is a leaf page of the B+Tree (level 0).
func (h PageHeader) IsLeaf() bool { return h.Level == 0 }

// FsegHeader is a 10-byte file-segment-inode pointer. Two of these follow the
// page header: the leaf-page segment, then the non-leaf (internal) segment.
type FsegHeader struct {
	SpaceID     uint32
	PageNumber  uint32
	Offset      uint16
}

// ParseFsegHeader decodes a 10-byte FSEG header.
func ParseFsegHeader(data []byte) (FsegHeader, error) {
	if len(data) < SizeFsegHeader {
		return FsegHeader{}, fmt.Errorf("fseg header: %w", ErrTruncated)
	}
	return FsegHeader{
		SpaceID:    buf.U32BE(data[0:]),
		PageNumber: buf.U32BE(data[4:]),
		Offset:     buf.U16BE(data[8:]),
	}, nil
}

// LeafSegment and TopSegment return the two FSEG headers following the page
// header on an index page.
func LeafSegment(pageData []byte) (FsegHeader, error) {
	return ParseFsegHeader(pageData[PageBTreeSegLeaf:])
}

func TopSegment(pageData []byte) (FsegHeader, error) {
	return ParseFsegHeader(pageData[PageBTreeSegTop:])
}

// RecordExtraHeader is the 5-byte compact-record extra header immediately
// preceding a record's origin.
//
// Layout, counting back from origin (origin-1 is the last byte):
//
//	origin-5  upper nibble: info bits (delete-mark, min-rec); lower nibble: owned count
//	origin-4  bits: heap number (13) | record status (3), packed into 2 bytes
//	origin-3
//	origin-2  signed 16-bit relative offset to the next record's origin
//	origin-1
type RecordExtraHeader struct {
	Deleted     bool
	MinRec      bool
	OwnedCount  uint8
	HeapNumber  uint16
	Status      uint8 // RecStatusOrdinary / NodePtr / Infimum / Supremum
	NextOffset  int16 // relative to this record's origin
}

// ParseRecordExtraHeader decodes the 5-byte extra header ending at origin
// (exclusive), i.e. bytes [origin-5, origin).
func ParseRecordExtraHeader(pageData []byte, origin int) (RecordExtraHeader, error) {
	if origin < RecNExtraBytes || origin > len(pageData) {
		return RecordExtraHeader{}, fmt.Errorf("record extra header: %w", ErrBoundsCheck)
	}
	b := pageData[origin-RecNExtraBytes : origin]
	infoOwned := b[0]
	heapStatus := buf.U16BE(b[1:3])
	next := buf.I16BE(b[3:5])
	return RecordExtraHeader{
		Deleted:    infoOwned&RecInfoDeletedFlag != 0,
		MinRec:     infoOwned&RecInfoMinRecFlag != 0,
		OwnedCount: infoOwned & 0x0F,
		HeapNumber: heapStatus >> 3,
		Status:     uint8(heapStatus & RecNewStatusMask),
		NextOffset: next,
	}, nil
}

// RecordRef identifies a single record's position within a page and its
// decoded extra header.
type RecordRef struct {
	Origin int
	Extra  RecordExtraHeader
}

// WalkRecordChain follows the intra-page singly-linked record chain starting
// at the infimum pseudo-record, returning every ordinary user record in
// chain order. It stops at the supremum record, a zero next-offset, a
// position that leaves the page, or after RecordChainSafetyLimit hops,
// whichever comes first — the limit exists purely to bound iteration on
// crafted or corrupt pages.
func WalkRecordChain(pageData []byte) ([]RecordRef, error) {
	var out []RecordRef
	origin := PageNewInfimum
	for i := 0; i < RecordChainSafetyLimit; i++ {
		extra, err := ParseRecordExtraHeader(pageData, origin)
		if err != nil {
			return out, err
		}
		if extra.NextOffset == 0 {
			break
		}
		next := origin + int(extra.NextOffset)
		if next <= 0 || next > len(pageData) {
			return out, fmt.Errorf("record chain: next offset %d out of bounds", next)
		}
		nextExtra, err := ParseRecordExtraHeader(pageData, next)
		if err != nil {
			return out, err
		}
		if nextExtra.Status == RecStatusSupremum {
			break
		}
		out = append(out, RecordRef{Origin: next, Extra: nextExtra})
		origin = next
	}
	return out, nil
}
