// Package lob decodes the two large-object page layouts InnoDB has used:
// the old-style external BLOB chain (page types BLOB/ZBLOB/ZBLOB2) and the
// newer LOB-first page header.
package lob

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/tablespace"
)

const (
	blobPartLenOff   = 0
	blobNextPageOff  = 4
	blobHeaderSize   = 8
)

const (
	lobFirstVersionOff = 0
	lobFirstFlagsOff   = 1
	lobFirstDataLenOff = 2
	lobFirstTrxIDOff   = 6
	lobFirstHeaderSize = 12
)

// BlobPageHeader is the old-style external BLOB page header.
type BlobPageHeader struct {
	PartLen    uint32 // data bytes stored on this page
	NextPageNo uint32 // FilNull when this is the last page
}

// ParseBlobPageHeader decodes the 8-byte old-style BLOB header.
func ParseBlobPageHeader(pageData []byte) (BlobPageHeader, error) {
	base := format.FilPageData
	if len(pageData) < base+blobHeaderSize {
		return BlobPageHeader{}, fmt.Errorf("lob: blob header truncated: %w", format.ErrTruncated)
	}
	d := pageData[base:]
	return BlobPageHeader{
		PartLen:    buf.U32BE(d[blobPartLenOff:]),
		NextPageNo: buf.U32BE(d[blobNextPageOff:]),
	}, nil
}

// HasNext reports whether the chain continues past this page.
func (h BlobPageHeader) HasNext() bool {
	return h.NextPageNo != format.FilNull && h.NextPageNo != 0
}

// FirstPageHeader is the new-style (MySQL 8.0+) LOB first-page header.
type FirstPageHeader struct {
	Version uint8
	Flags   uint8
	DataLen uint32 // total uncompressed LOB length
	TrxID   uint64 // 6-byte field, zero-extended
}

// ParseFirstPageHeader decodes the 12-byte LOB-first header.
func ParseFirstPageHeader(pageData []byte) (FirstPageHeader, error) {
	base := format.FilPageData
	if len(pageData) < base+lobFirstHeaderSize {
		return FirstPageHeader{}, fmt.Errorf("lob: first-page header truncated: %w", format.ErrTruncated)
	}
	d := pageData[base:]
	var trxBuf [8]byte
	copy(trxBuf[2:8], d[lobFirstTrxIDOff:lobFirstTrxIDOff+6])
	return FirstPageHeader{
		Version: d[lobFirstVersionOff],
		Flags:   d[lobFirstFlagsOff],
		DataLen: buf.U32BE(d[lobFirstDataLenOff:]),
		TrxID:   buf.U64BE(trxBuf[:]),
	}, nil
}

// ChainEntry is one hop of a walked BLOB chain.
type ChainEntry struct {
	PageNumber uint64
	PartLen    uint32
}

// WalkBlobChain follows an old-style BLOB page chain starting at startPage,
// reading pages through h. It stops at the FilNull sentinel, at a page whose
// header doesn't parse, or after maxPages hops — the same bounded-iteration
// philosophy as format.WalkRecordChain, guarding against a page pointing
// back into the chain it's already part of.
func WalkBlobChain(h *tablespace.Handle, startPage uint64, maxPages int) ([]ChainEntry, error) {
	var chain []ChainEntry
	visited := make(map[uint64]bool)
	current := startPage
	for i := 0; i < maxPages; i++ {
		if current == uint64(format.FilNull) || current == 0 {
			break
		}
		if visited[current] {
			break
		}
		visited[current] = true

		page, err := h.ReadPage(current)
		if err != nil {
			return chain, err
		}
		hdr, err := ParseBlobPageHeader(page)
		if err != nil {
			break
		}
		chain = append(chain, ChainEntry{PageNumber: current, PartLen: hdr.PartLen})
		if !hdr.HasNext() {
			break
		}
		current = uint64(hdr.NextPageNo)
	}
	return chain, nil
}
