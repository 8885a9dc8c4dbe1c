// Package dictionary reconstructs table schema from the Serialized
// Dictionary Information MySQL 8.0+ embeds in every tablespace, and falls
// back to inferring bare index structure from page headers when no SDI is
// present.
package dictionary

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/compress"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/tablespace"
)

// SDI record field offsets relative to a record's origin, in the compact
// clustered index layout MySQL uses for the hidden SDI index:
//
//	type (4 BE) + id (8 BE)                    -- 12-byte key
//	trx_id (6 BE) + roll_ptr (7 BE)             -- 13-byte system columns
//	uncompressed_len (4 BE) + compressed_len (4 BE) + zlib payload
const (
	sdiTypeOff        = 0
	sdiIDOff          = 4
	sdiTrxIDOff       = 12
	sdiRollPtrOff     = 18
	sdiUncompLenOff   = 25
	sdiCompLenOff     = 29
	sdiDataOff        = 33
	sdiVersionExpected = 1
	xdesEntrySize      = 40
)

// Record is one decoded SDI entry: a table or tablespace definition, still
// as the raw JSON MySQL serialized it.
type Record struct {
	Type            uint32 // 1 = table, 2 = tablespace
	ID              uint64
	UncompressedLen uint32
	CompressedLen   uint32
	Data            string // decompressed JSON
}

// TypeName names an SDI record's Type field.
func TypeName(sdiType uint32) string {
	switch sdiType {
	case 1:
		return "Table"
	case 2:
		return "Tablespace"
	default:
		return "Unknown"
	}
}

// IsSDIPage reports whether a page's FIL header marks it as SDI storage.
func IsSDIPage(pageData []byte) bool {
	hdr, err := format.ParseFilHeader(pageData)
	if err != nil {
		return false
	}
	return hdr.PageType == format.PageTypeSDI
}

// ExtractFromPage decodes every SDI record on a single SDI leaf page.
// Returns nil (not an error) if the page isn't an SDI page, isn't a leaf, or
// holds no records.
func ExtractFromPage(pageData []byte) ([]Record, error) {
	hdr, err := format.ParseFilHeader(pageData)
	if err != nil || hdr.PageType != format.PageTypeSDI {
		return nil, nil
	}
	idxHdr, err := format.ParsePageHeader(pageData)
	if err != nil || !idxHdr.IsLeaf() {
		return nil, nil
	}
	if idxHdr.HeapRecordCount() == 0 {
		return nil, nil
	}

	refs, err := format.WalkRecordChain(pageData)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, ref := range refs {
		if ref.Extra.Status != format.RecStatusOrdinary {
			continue
		}
		rec, ok := parseSDIRecord(pageData, ref.Origin)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func parseSDIRecord(pageData []byte, origin int) (Record, bool) {
	if origin+sdiDataOff > len(pageData) {
		return Record{}, false
	}
	d := pageData[origin:]
	sdiType := buf.U32BE(d[sdiTypeOff:])
	id := buf.U64BE(d[sdiIDOff:])
	uncompressedLen := buf.U32BE(d[sdiUncompLenOff:])
	compressedLen := buf.U32BE(d[sdiCompLenOff:])
	if compressedLen == 0 {
		return Record{}, false
	}

	dataStart := origin + sdiDataOff
	dataEnd := dataStart + int(compressedLen)
	var compressed []byte
	if dataEnd > len(pageData) {
		// SDI spanning multiple pages (SDI_BLOB) isn't followed here; take
		// what this page holds.
		compressed = pageData[dataStart:]
	} else {
		compressed = pageData[dataStart:dataEnd]
	}

	json, err := compress.DecompressZlibStream(compressed, int(uncompressedLen))
	if err != nil {
		json = nil
	}

	return Record{
		Type:            sdiType,
		ID:              id,
		UncompressedLen: uncompressedLen,
		CompressedLen:   compressedLen,
		Data:            string(json),
	}, true
}

// pagesPerExtent returns InnoDB's extent size in pages: 1MB extents for page
// sizes up to 16K, 64 pages for larger page sizes.
func pagesPerExtent(pageSize uint32) uint32 {
	if pageSize <= 16384 {
		return 1048576 / pageSize
	}
	return 64
}

func xdesArrSize(pageSize uint32) uint32 {
	return pageSize / pagesPerExtent(pageSize)
}

// sdiHeaderOffset locates the SDI root-page marker on page 0, which sits
// immediately after the FIL header, FSP header, and XDES extent array.
func sdiHeaderOffset(pageSize uint32) int {
	xdesArrOffset := format.FilPageData + format.FSPHeaderSize
	return xdesArrOffset + int(xdesArrSize(pageSize))*xdesEntrySize
}

// ReadRootPage reads the SDI root page number recorded on page 0, returning
// ok=false if no SDI version marker is present or the root page number is
// out of range.
func ReadRootPage(page0 []byte, pageSize uint32, pageCount uint64) (rootPage uint64, ok bool) {
	offset := sdiHeaderOffset(pageSize)
	if len(page0) < offset+8 {
		return 0, false
	}
	version := buf.U32BE(page0[offset:])
	if version != sdiVersionExpected {
		return 0, false
	}
	root := uint64(buf.U32BE(page0[offset+4:]))
	if root == 0 || root >= pageCount {
		return 0, false
	}
	return root, true
}

// FindSDIPages locates every SDI page in a tablespace. It first tries the
// fast path of reading the root page number from page 0 and walking the
// prev/next leaf chain; if that fails it falls back to scanning every page.
func FindSDIPages(h *tablespace.Handle) ([]uint64, error) {
	page0, err := h.ReadPage(0)
	if err != nil {
		return nil, err
	}
	if root, ok := ReadRootPage(page0, h.PageSize, h.PageCount); ok {
		rootData, err := h.ReadPage(root)
		if err != nil {
			return nil, err
		}
		if IsSDIPage(rootData) {
			pages := []uint64{root}
			if err := collectLinkedSDIPages(h, rootData, &pages); err != nil {
				return nil, err
			}
			return sortedUnique(pages), nil
		}
	}

	var pages []uint64
	for n := uint64(0); n < h.PageCount; n++ {
		data, err := h.ReadPage(n)
		if err != nil {
			return nil, err
		}
		if IsSDIPage(data) {
			pages = append(pages, n)
		}
	}
	return pages, nil
}

func collectLinkedSDIPages(h *tablespace.Handle, startPage []byte, pages *[]uint64) error {
	hdr, err := format.ParseFilHeader(startPage)
	if err != nil {
		return nil
	}

	seen := make(map[uint64]bool)
	for _, p := range *pages {
		seen[p] = true
	}

	next := hdr.NextPage
	for next != format.FilNull && next != 0 {
		nextPage := uint64(next)
		if seen[nextPage] {
			break
		}
		data, err := h.ReadPage(nextPage)
		if err != nil {
			return err
		}
		if !IsSDIPage(data) {
			break
		}
		*pages = append(*pages, nextPage)
		seen[nextPage] = true
		nextHdr, err := format.ParseFilHeader(data)
		if err != nil {
			break
		}
		next = nextHdr.NextPage
	}

	prev := hdr.PrevPage
	for prev != format.FilNull && prev != 0 {
		prevPage := uint64(prev)
		if seen[prevPage] {
			break
		}
		data, err := h.ReadPage(prevPage)
		if err != nil {
			return err
		}
		if !IsSDIPage(data) {
			break
		}
		*pages = append(*pages, prevPage)
		seen[prevPage] = true
		prevHdr, err := format.ParseFilHeader(data)
		if err != nil {
			break
		}
		prev = prevHdr.PrevPage
	}
	return nil
}

func sortedUnique(pages []uint64) []uint64 {
	seen := make(map[uint64]bool, len(pages))
	out := make([]uint64, 0, len(pages))
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ExtractAll reads every record from a set of SDI pages in page order.
func ExtractAll(h *tablespace.Handle, pageNumbers []uint64) ([]Record, error) {
	var all []Record
	for _, n := range pageNumbers {
		data, err := h.ReadPage(n)
		if err != nil {
			return nil, fmt.Errorf("dictionary: read SDI page %d: %w", n, err)
		}
		recs, err := ExtractFromPage(data)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}
