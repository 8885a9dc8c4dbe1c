// Package undo decodes rollback-segment and undo-log structures found on
// .ibu files and on INSERT/UPDATE undo pages embedded in a data file.
package undo

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/format"
)

// Offsets relative to format.FilPageData for the undo page header.
const (
	pageTypeOff = 0
	pageStartOff = 2
	pageFreeOff  = 4
	pageHdrSize  = 18
)

// Offsets relative to (FilPageData + pageHdrSize) for the segment header.
const (
	segStateOff   = 0
	segLastLogOff = 2
	segHdrSize    = 30
)

// Offsets relative to a log header's own offset within the page.
const (
	logTrxIDOff     = 0
	logTrxNoOff     = 8
	logDelMarksOff  = 16
	logStartOff     = 18
	logXIDExistsOff = 20
	logDictTransOff = 21
	logTableIDOff   = 22
	logNextLogOff   = 30
	logPrevLogOff   = 32
	logHeaderSize   = 34
)

// PageType is the kind of operation an undo page's records describe.
type PageType uint16

const (
	PageTypeInsert  PageType = 1
	PageTypeUpdate  PageType = 2
)

func (t PageType) Name() string {
	switch t {
	case PageTypeInsert:
		return "INSERT"
	case PageTypeUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// SegmentState is the lifecycle state of a rollback segment.
type SegmentState uint16

const (
	StateActive   SegmentState = 1
	StateCached   SegmentState = 2
	StateToFree   SegmentState = 3
	StateToPurge  SegmentState = 4
	StatePrepared SegmentState = 5
)

func (s SegmentState) Name() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateCached:
		return "CACHED"
	case StateToFree:
		return "TO_FREE"
	case StateToPurge:
		return "TO_PURGE"
	case StatePrepared:
		return "PREPARED"
	default:
		return "UNKNOWN"
	}
}

// PageHeader is the 18-byte undo page header at format.FilPageData.
type PageHeader struct {
	Type  PageType
	Start uint16 // offset of the first undo log record on this page
	Free  uint16 // offset of the first free byte on this page
}

// ParsePageHeader decodes the undo page header from a full page buffer.
func ParsePageHeader(pageData []byte) (PageHeader, error) {
	base := format.FilPageData
	if len(pageData) < base+pageHdrSize {
		return PageHeader{}, fmt.Errorf("undo: page header truncated: %w", format.ErrTruncated)
	}
	d := pageData[base:]
	return PageHeader{
		Type:  PageType(buf.U16BE(d[pageTypeOff:])),
		Start: buf.U16BE(d[pageStartOff:]),
		Free:  buf.U16BE(d[pageFreeOff:]),
	}, nil
}

// SegmentHeader is the 30-byte rollback-segment header, present only on the
// first page of a segment, immediately following the undo page header.
type SegmentHeader struct {
	State   SegmentState
	LastLog uint16 // offset of the most recent undo log header
}

// ParseSegmentHeader decodes the segment header from a full page buffer.
func ParseSegmentHeader(pageData []byte) (SegmentHeader, error) {
	base := format.FilPageData + pageHdrSize
	if len(pageData) < base+segHdrSize {
		return SegmentHeader{}, fmt.Errorf("undo: segment header truncated: %w", format.ErrTruncated)
	}
	d := pageData[base:]
	return SegmentHeader{
		State:   SegmentState(buf.U16BE(d[segStateOff:])),
		LastLog: buf.U16BE(d[segLastLogOff:]),
	}, nil
}

// LogHeader describes a single undo log within a segment, located at an
// in-page offset obtained from SegmentHeader.LastLog or PageHeader.Start.
type LogHeader struct {
	TrxID     uint64
	TrxNo     uint64
	DelMarks  bool
	LogStart  uint16
	XIDExists bool
	DictTrans bool
	TableID   uint64
	NextLog   uint16
	PrevLog   uint16
}

// ParseLogHeader decodes a log header at logOffset within pageData.
func ParseLogHeader(pageData []byte, logOffset int) (LogHeader, error) {
	if logOffset < 0 || len(pageData) < logOffset+logHeaderSize {
		return LogHeader{}, fmt.Errorf("undo: log header truncated: %w", format.ErrTruncated)
	}
	d := pageData[logOffset:]
	return LogHeader{
		TrxID:     buf.U64BE(d[logTrxIDOff:]),
		TrxNo:     buf.U64BE(d[logTrxNoOff:]),
		DelMarks:  buf.U16BE(d[logDelMarksOff:]) != 0,
		LogStart:  buf.U16BE(d[logStartOff:]),
		XIDExists: d[logXIDExistsOff] != 0,
		DictTrans: d[logDictTransOff] != 0,
		TableID:   buf.U64BE(d[logTableIDOff:]),
		NextLog:   buf.U16BE(d[logNextLogOff:]),
		PrevLog:   buf.U16BE(d[logPrevLogOff:]),
	}, nil
}

// RsegArrayHeader is page 0 of an .ibu file: a slot count followed by N
// 4-byte rollback-segment page numbers.
type RsegArrayHeader struct {
	Size uint32
}

// ParseRsegArrayHeader decodes the slot count at format.FilPageData.
func ParseRsegArrayHeader(pageData []byte) (RsegArrayHeader, error) {
	base := format.FilPageData
	if len(pageData) < base+4 {
		return RsegArrayHeader{}, fmt.Errorf("undo: rseg array header truncated: %w", format.ErrTruncated)
	}
	return RsegArrayHeader{Size: buf.U32BE(pageData[base:])}, nil
}

// ReadSlots reads up to maxSlots 4-byte rollback-segment page numbers
// following the array header, skipping zero and FilNull sentinel entries.
func ReadSlots(pageData []byte, maxSlots int) []uint32 {
	base := format.FilPageData + 4
	var slots []uint32
	for i := 0; i < maxSlots; i++ {
		off := base + i*4
		if off+4 > len(pageData) {
			break
		}
		pageNo := buf.U32BE(pageData[off:])
		if pageNo != 0 && pageNo != format.FilNull {
			slots = append(slots, pageNo)
		}
	}
	return slots
}
