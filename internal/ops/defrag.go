package ops

import (
	"sort"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/vendor"
)

// DefragConfig controls a defragment or rebuild pass.
type DefragConfig struct {
	// Algorithm is the checksum scheme recomputed for every page that comes
	// out renumbered or re-chained. AlgorithmAuto detects it off page 0,
	// same as Repair.
	Algorithm checksum.Algorithm
	// keep, when non-nil, decides whether a page survives into the output at
	// all. Rebuild sets this to exclude pages classified Unreadable; plain
	// Defrag leaves it nil and keeps everything that isn't all-zero.
	keep func(pageData []byte) bool
}

// DroppedPage records why a page from the input never made it to the
// output — the source file is never mutated, so this is purely reporting.
type DroppedPage struct {
	PageNumber uint64
	Reason     string
}

// DefragResult is the product of Defrag/Rebuild: the renumbered page buffer
// plus a report of what moved and what was dropped.
type DefragResult struct {
	Pages   []byte
	Written int
	Dropped []DroppedPage
}

// Defrag renumbers raw's pages: page 0 (the FSP header) always
// leads; remaining INDEX/RTree/SDI pages are grouped by (index_id, level)
// and sorted by original page number within each group, forming a fresh
// sentinel-bounded prev/next chain per group; every other page type follows
// in its original relative order with its prev/next left untouched, since
// only index chains carry a continuity contract worth repairing. All-zero
// pages are dropped. The grouping and sort are pure functions of page
// content, so running Defrag twice over its own output is a no-op.
func Defrag(raw []byte, pageSize uint32, desc vendor.Descriptor, cfg DefragConfig) DefragResult {
	if cfg.Algorithm == checksum.AlgorithmAuto && pageCount(raw, pageSize) > 0 {
		cfg.Algorithm = detectAlgorithm(pageAt(raw, pageSize, 0), pageSize, desc)
	}
	return defragCore(raw, pageSize, cfg)
}

// Rebuild is Defrag with an additional keep predicate that excludes pages a
// prior Classify pass marked Unreadable — the recovery-oriented variant of
// the same regrouping core.
func Rebuild(raw []byte, pageSize uint32, desc vendor.Descriptor, classes map[uint64]PageClass, cfg DefragConfig) DefragResult {
	if cfg.Algorithm == checksum.AlgorithmAuto && pageCount(raw, pageSize) > 0 {
		cfg.Algorithm = detectAlgorithm(pageAt(raw, pageSize, 0), pageSize, desc)
	}
	cfg.keep = func(pageData []byte) bool {
		fil, err := format.ParseFilHeader(pageData)
		if err != nil {
			return false
		}
		return classes[uint64(fil.PageNumber)] != PageClassUnreadable
	}
	return defragCore(raw, pageSize, cfg)
}

// defragCore holds the shared regrouping logic used by both Defrag and
// Rebuild; Rebuild supplies cfg.keep to additionally drop unreadable pages.
func defragCore(raw []byte, pageSize uint32, cfg DefragConfig) DefragResult {
	total := pageCount(raw, pageSize)
	algo := cfg.Algorithm

	type indexed struct {
		orig int
		data []byte
	}

	groups := map[groupKey][]indexed{}
	var groupOrder []groupKey
	var others []indexed
	var dropped []DroppedPage

	for n := 0; n < total; n++ {
		page := pageAt(raw, pageSize, n)
		if n == 0 {
			continue // page 0 is handled separately, always first
		}
		if isAllZero(page) {
			dropped = append(dropped, DroppedPage{PageNumber: uint64(n), Reason: "empty"})
			continue
		}
		if cfg.keep != nil && !cfg.keep(page) {
			dropped = append(dropped, DroppedPage{PageNumber: uint64(n), Reason: "unreadable"})
			continue
		}
		if key, ok := classifyGroup(page); ok {
			if _, seen := groups[key]; !seen {
				groupOrder = append(groupOrder, key)
			}
			groups[key] = append(groups[key], indexed{orig: n, data: page})
			continue
		}
		others = append(others, indexed{orig: n, data: page})
	}

	sort.Slice(groupOrder, func(i, j int) bool {
		a, b := groupOrder[i], groupOrder[j]
		if a.IndexID != b.IndexID {
			return a.IndexID < b.IndexID
		}
		return a.Level < b.Level
	})
	for _, key := range groupOrder {
		g := groups[key]
		sort.Slice(g, func(i, j int) bool { return g[i].orig < g[j].orig })
		groups[key] = g
	}

	out := make([]byte, 0, len(raw))
	emit := func(page []byte) { out = append(out, page...) }

	if total > 0 {
		p0 := pageAt(raw, pageSize, 0)
		copy0 := make([]byte, pageSize)
		copy(copy0, p0)
		emit(copy0)
	}

	written := 1
	for _, key := range groupOrder {
		g := groups[key]
		for i, item := range g {
			page := make([]byte, pageSize)
			copy(page, item.data)
			fil, err := format.ParseFilHeader(page)
			if err == nil {
				fil.PageNumber = uint32(written)
				if i == 0 {
					fil.PrevPage = format.FilNull
				} else {
					fil.PrevPage = uint32(written - 1)
				}
				if i == len(g)-1 {
					fil.NextPage = format.FilNull
				} else {
					fil.NextPage = uint32(written + 1)
				}
				format.PutFilHeader(page, fil)
			}
			if algo != checksum.AlgorithmAuto {
				checksum.Recompute(page, pageSize, algo)
			}
			emit(page)
			written++
		}
	}
	for _, item := range others {
		page := make([]byte, pageSize)
		copy(page, item.data)
		fil, err := format.ParseFilHeader(page)
		if err == nil {
			fil.PageNumber = uint32(written)
			format.PutFilHeader(page, fil)
		}
		if algo != checksum.AlgorithmAuto {
			checksum.Recompute(page, pageSize, algo)
		}
		emit(page)
		written++
	}

	return DefragResult{Pages: out, Written: written, Dropped: dropped}
}
