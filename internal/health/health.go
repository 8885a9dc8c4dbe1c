// Package health computes B+Tree index health metrics for InnoDB
// tablespaces: per-page fill factor and garbage ratio, per-index
// fragmentation and tree depth, and a tablespace-wide summary, all derived
// from a single pass over INDEX page headers.
package health

import (
	"math"
	"sort"

	"github.com/idbkit/idbkit/internal/format"
)

// PageSnapshot is the subset of an INDEX page's header fields needed to
// compute health metrics, captured during a tablespace scan.
type PageSnapshot struct {
	PageNumber uint64
	IndexID    uint64
	Level      uint16
	HeapTop    uint16
	Garbage    uint16
	NRecs      uint16
	Prev       uint32
	Next       uint32
}

// ExtractSnapshot builds a PageSnapshot from a raw page buffer, or reports
// ok=false if the page is not an INDEX page or is too short to parse.
func ExtractSnapshot(pageData []byte, pageNumber uint64) (PageSnapshot, bool) {
	fil, err := format.ParseFilHeader(pageData)
	if err != nil || fil.PageType != format.PageTypeIndex {
		return PageSnapshot{}, false
	}
	idx, err := format.ParsePageHeader(pageData)
	if err != nil {
		return PageSnapshot{}, false
	}
	return PageSnapshot{
		PageNumber: pageNumber,
		IndexID:    idx.IndexID,
		Level:      idx.Level,
		HeapTop:    idx.HeapTop,
		Garbage:    idx.Garbage,
		NRecs:      idx.NRecs,
		Prev:       fil.PrevPage,
		Next:       fil.NextPage,
	}, true
}

// IndexHealth aggregates health metrics for a single index across all of
// its pages.
type IndexHealth struct {
	IndexID          uint64
	IndexName        string // resolved from SDI by the caller; empty if unknown
	TreeDepth        uint16 // number of levels including the leaf, so a leaf-only index reports 1
	TotalPages       uint64
	LeafPages        uint64
	NonLeafPages     uint64
	TotalRecords     uint64
	AvgFillFactor    float64
	MinFillFactor    float64
	MaxFillFactor    float64
	AvgGarbageRatio  float64
	TotalGarbageBytes uint64
	Fragmentation    float64
	EmptyLeafPages   uint64
}

// TablespaceHealth is the tablespace-wide summary across all indexes.
type TablespaceHealth struct {
	TotalPages      uint64
	IndexPages      uint64
	NonIndexPages   uint64
	EmptyPages      uint64
	PageSize        uint32
	AvgFillFactor   float64
	AvgGarbageRatio float64
	AvgFragmentation float64
	IndexCount      uint64
}

// Report is the complete health analysis for one tablespace file.
type Report struct {
	File    string
	Summary TablespaceHealth
	Indexes []IndexHealth
}

// usableDataArea is the number of bytes available to records on a page,
// excluding the pseudo-record-bearing header and the FIL trailer.
func usableDataArea(pageSize uint32) float64 {
	return float64(pageSize) - float64(format.PageDataOffset) - float64(format.SizeFILTrailer)
}

// ComputeFillFactor returns the fraction (0..1) of a page's usable data
// area occupied by live records, derived from the heap top and garbage
// byte count in its INDEX header.
func ComputeFillFactor(heapTop, garbage uint16, pageSize uint32) float64 {
	usable := usableDataArea(pageSize)
	if usable <= 0 {
		return 0
	}
	used := float64(heapTop) - float64(format.PageDataOffset) - float64(garbage)
	return clamp01(used / usable)
}

// ComputeGarbageRatio returns the fraction (0..1) of a page's usable data
// area occupied by deleted/garbage records.
func ComputeGarbageRatio(garbage uint16, pageSize uint32) float64 {
	usable := usableDataArea(pageSize)
	if usable <= 0 {
		return 0
	}
	return clamp01(float64(garbage) / usable)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ComputeFragmentation measures how far a set of leaf page numbers departs
// from sequential order: the fraction of adjacent page-number pairs that
// are not consecutive. Sorts leafPageNumbers in place. Returns 0 for 0 or 1
// pages, since there is nothing to measure.
func ComputeFragmentation(leafPageNumbers []uint64) float64 {
	if len(leafPageNumbers) <= 1 {
		return 0
	}
	sort.Slice(leafPageNumbers, func(i, j int) bool { return leafPageNumbers[i] < leafPageNumbers[j] })
	transitions := len(leafPageNumbers) - 1
	nonSequential := 0
	for i := 0; i < transitions; i++ {
		if leafPageNumbers[i+1] != leafPageNumbers[i]+1 {
			nonSequential++
		}
	}
	return float64(nonSequential) / float64(transitions)
}

// Analyze groups snapshots by index ID, computes per-index metrics, and
// assembles a tablespace-wide summary. totalPages and emptyPages should
// cover the whole tablespace, not just INDEX pages.
func Analyze(snapshots []PageSnapshot, pageSize uint32, totalPages, emptyPages uint64, file string) Report {
	groups := make(map[uint64][]PageSnapshot)
	var ids []uint64
	for _, snap := range snapshots {
		if _, ok := groups[snap.IndexID]; !ok {
			ids = append(ids, snap.IndexID)
		}
		groups[snap.IndexID] = append(groups[snap.IndexID], snap)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var indexPageCount uint64
	for _, pages := range groups {
		indexPageCount += uint64(len(pages))
	}
	nonIndexPages := saturatingSub(totalPages, indexPageCount+emptyPages)

	indexes := make([]IndexHealth, 0, len(ids))
	var allFill, allGarbage []float64

	for _, indexID := range ids {
		pages := groups[indexID]
		var treeDepth uint16
		var leafPages, nonLeafPages, totalRecords, totalGarbageBytes, emptyLeafPages uint64
		fillFactors := make([]float64, 0, len(pages))
		garbageRatios := make([]float64, 0, len(pages))
		var leafPageNumbers []uint64

		for _, snap := range pages {
			ff := ComputeFillFactor(snap.HeapTop, snap.Garbage, pageSize)
			gr := ComputeGarbageRatio(snap.Garbage, pageSize)
			fillFactors = append(fillFactors, ff)
			garbageRatios = append(garbageRatios, gr)
			allFill = append(allFill, ff)
			allGarbage = append(allGarbage, gr)

			if snap.Level > treeDepth {
				treeDepth = snap.Level
			}
			if snap.Level == 0 {
				leafPages++
				leafPageNumbers = append(leafPageNumbers, snap.PageNumber)
				if snap.NRecs == 0 {
					emptyLeafPages++
				}
			} else {
				nonLeafPages++
			}
			totalRecords += uint64(snap.NRecs)
			totalGarbageBytes += uint64(snap.Garbage)
		}

		avgFill := mean(fillFactors)
		minFill, maxFill := minMax(fillFactors)
		avgGarbage := mean(garbageRatios)
		fragmentation := ComputeFragmentation(leafPageNumbers)

		indexes = append(indexes, IndexHealth{
			IndexID:           indexID,
			TreeDepth:         treeDepth + 1,
			TotalPages:        uint64(len(pages)),
			LeafPages:         leafPages,
			NonLeafPages:      nonLeafPages,
			TotalRecords:      totalRecords,
			AvgFillFactor:     round2(avgFill),
			MinFillFactor:     round2(minFill),
			MaxFillFactor:     round2(maxFill),
			AvgGarbageRatio:   round2(avgGarbage),
			TotalGarbageBytes: totalGarbageBytes,
			Fragmentation:     round2(fragmentation),
			EmptyLeafPages:    emptyLeafPages,
		})
	}

	avgFillAll := 0.0
	if len(allFill) > 0 {
		avgFillAll = round2(mean(allFill))
	}
	avgGarbageAll := 0.0
	if len(allGarbage) > 0 {
		avgGarbageAll = round2(mean(allGarbage))
	}
	avgFragAll := 0.0
	if len(indexes) > 0 {
		var sum float64
		for _, ih := range indexes {
			sum += ih.Fragmentation
		}
		avgFragAll = round2(sum / float64(len(indexes)))
	}

	return Report{
		File: file,
		Summary: TablespaceHealth{
			TotalPages:       totalPages,
			IndexPages:       indexPageCount,
			NonIndexPages:    nonIndexPages,
			EmptyPages:       emptyPages,
			PageSize:         pageSize,
			AvgFillFactor:    avgFillAll,
			AvgGarbageRatio:  avgGarbageAll,
			AvgFragmentation: avgFragAll,
			IndexCount:       uint64(len(indexes)),
		},
		Indexes: indexes,
	}
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func minMax(vs []float64) (min, max float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(min, 1) {
		min = 0
	}
	if math.IsInf(max, -1) {
		max = 0
	}
	return min, max
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
