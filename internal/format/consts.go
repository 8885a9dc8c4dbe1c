// Package format houses low-level decoders for the on-disk structures of an
// InnoDB tablespace: the FIL header/trailer framing every page, the FSP
// header on page 0, B+Tree index page headers, and the compact record
// extra-header. The goal is to keep parsing focused, allocation-free where
// possible, and independent of the public API so higher-level packages can
// orchestrate the data in a more ergonomic form.
package format

// FIL header/trailer layout. Every page, regardless of type, begins with
// SizeFILHeader bytes of this framing and ends with SizeFILTrailer bytes.
const (
	FilPageSpaceOrChksum = 0  // 4 bytes: stored checksum (or space id, pre-4.1 files)
	FilPageOffset        = 4  // 4 bytes: page number within the tablespace
	FilPagePrev          = 8  // 4 bytes: previous page in a doubly-linked list, FilNull if none
	FilPageNext          = 12 // 4 bytes: next page in a doubly-linked list, FilNull if none
	FilPageLSN           = 16 // 8 bytes: LSN of the newest modification to this page
	FilPageType          = 24 // 2 bytes: page type code, see pagetype.go
	FilPageFileFlushLSN  = 26 // 8 bytes: flush LSN (page 0 of system space) or saved original type (encrypted pages)
	FilPageSpaceID       = 34 // 4 bytes: space id this page belongs to
	FilPageData          = 38 // start of page-type-specific body

	SizeFILHeader  = 38
	SizeFILTrailer = 8

	// FilNull is the sentinel value for an absent prev/next page pointer.
	FilNull = 0xFFFFFFFF
)

// FSP header layout, relative to FilPageData on page 0 of a tablespace.
const (
	FspSpaceID    = 0  // 4 bytes
	FspNotUsed    = 4  // 4 bytes, historical
	FspSize       = 8  // 4 bytes: tablespace size in pages
	FspFreeLimit  = 12 // 4 bytes: first page not yet initialized
	FspSpaceFlags = 16 // 4 bytes: page size / compression / encryption bits
	FspFragNUsed  = 20 // 4 bytes: pages used in the FSP_FREE_FRAG extent

	FSPHeaderSize = 112

	// Space flag bit-packing (bits counted from 0, LSB first).
	FspFlagsPosPageSSize  = 6
	FspFlagsMaskPageSSize = 0xF << FspFlagsPosPageSSize
	FspFlagsPosZipSSize   = 1
	FspFlagsMaskZipSSize  = 0xF << FspFlagsPosZipSSize
	FspFlagsPosCompression = 11
	FspFlagsMaskCompression = 0x3 << FspFlagsPosCompression
	FspFlagsPosEncryption  = 13
	FspFlagsMaskEncryption = 1 << FspFlagsPosEncryption

	// SizeExtentDescriptor is the size in bytes of one XDES entry following
	// the FSP header; used to locate the SDI root pointer on page 0.
	SizeExtentDescriptor = 40

	SizePageDefault = 16384
)

// Index (B+Tree node) page header, at offset FilPageData (38).
const (
	PageNDirSlots  = 0  // 2 bytes: number of directory slots
	PageHeapTop    = 2  // 2 bytes: pointer to first free byte above records
	PageNHeap      = 4  // 2 bytes: bit 15 = compact-format flag, low 15 bits = heap record count
	PageFree       = 6  // 2 bytes: first garbage (deleted) record, or 0
	PageGarbage    = 8  // 2 bytes: bytes in the garbage (deleted record) list
	PageLastInsert = 10 // 2 bytes: offset of the last inserted record
	PageDirection  = 12 // 2 bytes: insertion direction
	PageNDirection = 14 // 2 bytes: run length in the current insertion direction
	PageNRecs      = 16 // 2 bytes: number of user records
	PageMaxTrxID   = 18 // 8 bytes: max transaction id touching this page (secondary indexes only)
	PageLevel      = 26 // 2 bytes: B+Tree level, 0 = leaf
	PageIndexID    = 28 // 8 bytes: index id this page belongs to

	SizePageHeader = 36

	// Two 10-byte FSEG (file segment) header pointers follow the page
	// header: the leaf-page segment, then the non-leaf (internal) segment.
	PageBTreeSegLeaf    = FilPageData + SizePageHeader
	PageBTreeSegTop     = PageBTreeSegLeaf + SizeFsegHeader
	SizeFsegHeader      = 10

	// PageDataOffset is where the infimum record's 5-byte extra header
	// begins on a freshly created compact page: FIL header (38) + page
	// header (36) + two FSEG pointers (20) = 94.
	PageDataOffset = FilPageData + SizePageHeader + 2*SizeFsegHeader

	// Infimum/supremum record origins on a compact page. The extra header
	// of each is 5 bytes, so infimum's origin sits at PageDataOffset+5;
	// supremum follows the 8-byte "infimum\0" data and its own 5-byte
	// extra header.
	PageNewInfimum  = PageDataOffset + 5               // 99
	PageNewSupremum = PageNewInfimum + 8 + RecNExtraBytes // 112

	// PageNHeapCompactFlag is bit 15 of the PageNHeap slot.
	PageNHeapCompactFlag = 0x8000
	PageNHeapMask        = 0x7FFF

	// Direction codes for PageDirection.
	PageLeft        = 1
	PageRight       = 2
	PageSameRec     = 3
	PageSamePage    = 4
	PageNoDirection = 5
)

// Compact record extra header, 5 bytes immediately preceding a record's
// origin. The constants below are bit masks, shifts and status codes for
// fields of that header; each comment names the byte it applies to.
const (
	RecNewStatusMask  = 0x07 // low 3 bits of byte at origin-3
	RecNewInfoBitsShift = 4  // upper nibble of byte at origin-5 holds info bits
	RecInfoDeletedFlag  = 0x20
	RecInfoMinRecFlag   = 0x10
	RecNewTempFlag      = 0x1

	RecNExtraBytes = 5 // size of the extra header itself

	RecStatusOrdinary  = 0
	RecStatusNodePtr   = 1
	RecStatusInfimum   = 2
	RecStatusSupremum  = 3

	// RecordChainSafetyLimit bounds the number of hops the chain walker
	// will follow, guarding against crafted cyclic next-pointers.
	RecordChainSafetyLimit = 1 << 16
)

// Dictionary (SDI) record header, see package dictionary.
const (
	SdiTypeTable      = 1
	SdiTypeTablespace = 2
)
