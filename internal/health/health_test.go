package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/testpage"
)

const pageSize = uint32(16384)

func usable() float64 {
	return float64(pageSize) - float64(format.PageDataOffset) - float64(format.SizeFILTrailer)
}

func TestComputeFillFactorFullPage(t *testing.T) {
	heapTop := uint16(pageSize) - uint16(format.SizeFILTrailer)
	ff := ComputeFillFactor(heapTop, 0, pageSize)
	assert.InDelta(t, 1.0, ff, 0.001)
}

func TestComputeFillFactorEmptyPage(t *testing.T) {
	ff := ComputeFillFactor(uint16(format.PageDataOffset), 0, pageSize)
	assert.InDelta(t, 0.0, ff, 0.001)
}

func TestComputeFillFactorHalfPage(t *testing.T) {
	heapTop := uint16(format.PageDataOffset) + uint16(usable()/2)
	ff := ComputeFillFactor(heapTop, 0, pageSize)
	assert.InDelta(t, 0.5, ff, 0.01)
}

func TestComputeFillFactorWithGarbage(t *testing.T) {
	u := usable()
	heapTop := uint16(format.PageDataOffset) + uint16(u*0.75)
	garbage := uint16(u * 0.25)
	ff := ComputeFillFactor(heapTop, garbage, pageSize)
	assert.InDelta(t, 0.5, ff, 0.01)
}

func TestComputeGarbageRatio(t *testing.T) {
	u := usable()
	garbage := uint16(u * 0.25)
	gr := ComputeGarbageRatio(garbage, pageSize)
	assert.InDelta(t, 0.25, gr, 0.01)
}

func TestComputeFragmentationSequential(t *testing.T) {
	pages := []uint64{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.0, ComputeFragmentation(pages), 0.001)
}

func TestComputeFragmentationScattered(t *testing.T) {
	pages := []uint64{1, 10, 20, 30, 40}
	assert.InDelta(t, 1.0, ComputeFragmentation(pages), 0.001)
}

func TestComputeFragmentationSinglePage(t *testing.T) {
	assert.Equal(t, 0.0, ComputeFragmentation([]uint64{7}))
	assert.Equal(t, 0.0, ComputeFragmentation(nil))
}

func TestExtractSnapshot(t *testing.T) {
	page := testpage.NewPage(pageSize, testpage.FilHeaderFields{
		PageNumber: 5, PrevPage: 4, NextPage: 6, PageType: format.PageTypeIndex,
	})
	testpage.PutIndexHeader(page, testpage.IndexPageFields{
		Level: 0, IndexID: 77, NRecs: 3, HeapTop: 200, Garbage: 10,
	})

	snap, ok := ExtractSnapshot(page, 5)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), snap.PageNumber)
	assert.Equal(t, uint64(77), snap.IndexID)
	assert.Equal(t, uint16(0), snap.Level)
	assert.Equal(t, uint16(3), snap.NRecs)
	assert.Equal(t, uint32(4), snap.Prev)
	assert.Equal(t, uint32(6), snap.Next)
}

func TestExtractSnapshotNotIndexPage(t *testing.T) {
	page := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, PageType: format.PageTypeFspHdr})
	_, ok := ExtractSnapshot(page, 0)
	assert.False(t, ok)
}

func TestAnalyze(t *testing.T) {
	snapshots := []PageSnapshot{
		{PageNumber: 1, IndexID: 10, Level: 0, HeapTop: uint16(format.PageDataOffset) + 100, Garbage: 0, NRecs: 5},
		{PageNumber: 2, IndexID: 10, Level: 0, HeapTop: uint16(format.PageDataOffset) + 50, Garbage: 0, NRecs: 0},
		{PageNumber: 3, IndexID: 10, Level: 1, HeapTop: uint16(format.PageDataOffset) + 20, Garbage: 0, NRecs: 2},
	}

	report := Analyze(snapshots, pageSize, 10, 2, "t1.ibd")
	assert.Equal(t, "t1.ibd", report.File)
	assert.EqualValues(t, 10, report.Summary.TotalPages)
	assert.EqualValues(t, 3, report.Summary.IndexPages)
	assert.EqualValues(t, 2, report.Summary.EmptyPages)
	assert.EqualValues(t, 5, report.Summary.NonIndexPages)
	assert.EqualValues(t, 1, report.Summary.IndexCount)

	idx := report.Indexes[0]
	assert.Equal(t, uint64(10), idx.IndexID)
	assert.EqualValues(t, 2, idx.TreeDepth)
	assert.EqualValues(t, 2, idx.LeafPages)
	assert.EqualValues(t, 1, idx.NonLeafPages)
	assert.EqualValues(t, 1, idx.EmptyLeafPages)
	assert.EqualValues(t, 7, idx.TotalRecords)
}
