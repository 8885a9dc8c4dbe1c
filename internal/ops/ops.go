// Package ops implements the write and recovery operations: checksum
// repair, defragmentation, page transplant, rebuild, and recovery
// classification. Every operation here builds its result in
// memory — callers decide when (and whether) to commit bytes to disk via
// internal/writer. The operations whose results replace an existing file
// are checksum repair (the source file) and page transplant (the target
// file), and both go through writer.FileWriter's atomic
// temp-file-plus-rename path.
package ops

import "github.com/idbkit/idbkit/internal/format"

// isAllZero reports whether data consists entirely of zero bytes, the
// "valid-empty" rule shared by checksum, recover, and defrag.
func isAllZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// pageAt slices the nth pageSize-byte page out of a flat multi-page buffer.
func pageAt(allPages []byte, pageSize uint32, n int) []byte {
	ps := int(pageSize)
	return allPages[n*ps : (n+1)*ps]
}

// pageCount returns how many whole pages fit in allPages.
func pageCount(allPages []byte, pageSize uint32) int {
	return len(allPages) / int(pageSize)
}

// groupKey identifies a (index_id, level) bucket that defragment and
// rebuild both renumber pages within.
type groupKey struct {
	IndexID uint64
	Level   uint16
}

// classifyGroup returns the group key for an INDEX page, or ok=false for
// any other page type (FSP header, undo, LOB, etc. all fall outside the
// index-group renumbering and instead keep their relative order). "INDEX"
// here is format.PageType.IsIndex, so RTree and SDI pages are grouped too.
func classifyGroup(pageData []byte) (groupKey, bool) {
	fil, err := format.ParseFilHeader(pageData)
	if err != nil || !fil.PageType.IsIndex() {
		return groupKey{}, false
	}
	idx, err := format.ParsePageHeader(pageData)
	if err != nil {
		return groupKey{}, false
	}
	return groupKey{IndexID: idx.IndexID, Level: idx.Level}, true
}
