package format

// PageType identifies the kind of content stored on a page. InnoDB tags every
// page with a 16-bit code at FilPageType; unrecognized codes are preserved as
// Unknown rather than rejected, since forks and future server versions add
// new types the core has never seen.
type PageType uint16

const (
	PageTypeAllocated        PageType = 0
	PageTypeUndoLog          PageType = 2
	PageTypeInode            PageType = 3
	PageTypeIbufFreeList     PageType = 4
	PageTypeIbufBitmap       PageType = 5
	PageTypeSys              PageType = 6
	PageTypeTrxSys           PageType = 7
	PageTypeFspHdr           PageType = 8
	PageTypeXdes             PageType = 9
	PageTypeBlob             PageType = 10
	PageTypeZblob            PageType = 11
	PageTypeZblob2           PageType = 12
	PageTypeUnknown          PageType = 13
	PageTypeCompressed       PageType = 14
	PageTypeEncrypted        PageType = 15
	PageTypeCompressedAndEncrypted PageType = 16
	PageTypeEncryptedRTree   PageType = 17
	PageTypeSDI              PageType = 17853
	PageTypeRTree            PageType = 17854
	PageTypeIndex            PageType = 17855
)

var pageTypeNames = map[PageType]string{
	PageTypeAllocated:              "ALLOCATED",
	PageTypeUndoLog:                "UNDO_LOG",
	PageTypeInode:                  "INODE",
	PageTypeIbufFreeList:           "IBUF_FREE_LIST",
	PageTypeIbufBitmap:             "IBUF_BITMAP",
	PageTypeSys:                    "SYS",
	PageTypeTrxSys:                 "TRX_SYS",
	PageTypeFspHdr:                 "FSP_HDR",
	PageTypeXdes:                   "XDES",
	PageTypeBlob:                   "BLOB",
	PageTypeZblob:                  "ZBLOB",
	PageTypeZblob2:                 "ZBLOB2",
	PageTypeUnknown:                "UNKNOWN",
	PageTypeCompressed:             "COMPRESSED",
	PageTypeEncrypted:              "ENCRYPTED",
	PageTypeCompressedAndEncrypted: "COMPRESSED_AND_ENCRYPTED",
	PageTypeEncryptedRTree:         "ENCRYPTED_RTREE",
	PageTypeSDI:                    "SDI",
	PageTypeRTree:                  "RTREE",
	PageTypeIndex:                  "INDEX",
}

// Name returns the canonical name for t, or "UNKNOWN" for codes the
// registry has no entry for.
func (t PageType) Name() string {
	if n, ok := pageTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// PageTypeFromU16 converts a raw 16-bit page type code into a PageType. The
// conversion never fails: unrecognized codes round-trip through Name as
// "UNKNOWN" but retain their numeric value for reporting.
func PageTypeFromU16(v uint16) PageType { return PageType(v) }

// IsIndex reports whether t is a B+Tree node (including the spatial-index
// and SDI variants, both of which share the INDEX page header layout).
func (t PageType) IsIndex() bool {
	return t == PageTypeIndex || t == PageTypeRTree || t == PageTypeSDI
}

// IsEncrypted reports whether pages of this type require decryption before
// their body can be interpreted.
func (t PageType) IsEncrypted() bool {
	switch t {
	case PageTypeEncrypted, PageTypeCompressedAndEncrypted, PageTypeEncryptedRTree:
		return true
	default:
		return false
	}
}
