package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/testpage"
)

const pageSize = uint32(16384)

func TestVerifyTablespaceClean(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 9, LSN: 1000, PageType: format.PageTypeFspHdr})
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, SpaceID: 9, LSN: 2000, PageType: format.PageTypeIndex})

	all := append(append([]byte{}, p0...), p1...)
	report := VerifyTablespace(all, pageSize, 9, "t.ibd", DefaultConfig())

	assert.True(t, report.Passed)
	assert.Empty(t, report.Findings)
	assert.EqualValues(t, 2, report.TotalPages)
}

func TestVerifyTablespacePageNumberMismatch(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 9, LSN: 1000, PageType: format.PageTypeFspHdr})
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 5, SpaceID: 9, LSN: 2000, PageType: format.PageTypeIndex})

	all := append(append([]byte{}, p0...), p1...)
	report := VerifyTablespace(all, pageSize, 9, "t.ibd", DefaultConfig())

	assert.False(t, report.Passed)
	found := false
	for _, f := range report.Findings {
		if f.Kind == CheckPageNumberSequence && f.PageNumber == 1 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyTablespaceSpaceIDMismatch(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 9, LSN: 1000, PageType: format.PageTypeFspHdr})
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, SpaceID: 42, LSN: 2000, PageType: format.PageTypeIndex})

	all := append(append([]byte{}, p0...), p1...)
	report := VerifyTablespace(all, pageSize, 9, "t.ibd", DefaultConfig())

	assert.False(t, report.Passed)
	var summary CheckSummary
	for _, s := range report.Summary {
		if s.Kind == CheckSpaceIDConsistency {
			summary = s
		}
	}
	assert.False(t, summary.Passed)
	assert.EqualValues(t, 1, summary.IssuesFound)
}

func TestVerifyTablespaceLSNDrop(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 9, LSN: 10000, PageType: format.PageTypeFspHdr})
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, SpaceID: 9, LSN: 100, PageType: format.PageTypeIndex})

	all := append(append([]byte{}, p0...), p1...)
	report := VerifyTablespace(all, pageSize, 9, "t.ibd", DefaultConfig())

	found := false
	for _, f := range report.Findings {
		if f.Kind == CheckLSNMonotonicity {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyTablespaceTrailerLSNMismatch(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 9, LSN: 1000, PageType: format.PageTypeFspHdr})
	trailerOff := int(pageSize) - format.SizeFILTrailer
	buf.PutU32BE(p0[trailerOff+4:], 0xDEAD)

	report := VerifyTablespace(p0, pageSize, 9, "t.ibd", DefaultConfig())
	found := false
	for _, f := range report.Findings {
		if f.Kind == CheckTrailerLSNMatch {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyTablespaceChainBounds(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 9, PrevPage: 99, PageType: format.PageTypeFspHdr})

	report := VerifyTablespace(p0, pageSize, 9, "t.ibd", DefaultConfig())
	found := false
	for _, f := range report.Findings {
		if f.Kind == CheckPageChainBounds {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyBackupChainContiguous(t *testing.T) {
	files := []ChainFileInfo{
		{File: "a", SpaceID: 1, MinLSN: 100, MaxLSN: 200},
		{File: "b", SpaceID: 1, MinLSN: 200, MaxLSN: 300},
	}
	report := VerifyBackupChain(files)
	assert.True(t, report.Contiguous)
	assert.True(t, report.ConsistentSpaceID)
	assert.Empty(t, report.Gaps)
}

func TestVerifyBackupChainGap(t *testing.T) {
	files := []ChainFileInfo{
		{File: "a", SpaceID: 1, MinLSN: 100, MaxLSN: 200},
		{File: "b", SpaceID: 1, MinLSN: 250, MaxLSN: 300},
	}
	report := VerifyBackupChain(files)
	assert.False(t, report.Contiguous)
	require.Len(t, report.Gaps, 1)
	assert.EqualValues(t, 50, report.Gaps[0].GapSize)
}

func TestVerifyBackupChainSpaceIDMismatch(t *testing.T) {
	files := []ChainFileInfo{
		{File: "a", SpaceID: 1, MaxLSN: 200},
		{File: "b", SpaceID: 2, MaxLSN: 300},
	}
	report := VerifyBackupChain(files)
	assert.False(t, report.ConsistentSpaceID)
}

func TestVerifyBackupChainEmpty(t *testing.T) {
	report := VerifyBackupChain(nil)
	assert.True(t, report.Contiguous)
	assert.True(t, report.ConsistentSpaceID)
}

func TestExtractChainFileInfo(t *testing.T) {
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 7, LSN: 500, PageType: format.PageTypeFspHdr})
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, SpaceID: 7, LSN: 800, PageType: format.PageTypeIndex})

	all := append(append([]byte{}, p0...), p1...)
	info := ExtractChainFileInfo(all, pageSize, "t.ibd")
	assert.Equal(t, uint32(7), info.SpaceID)
	assert.EqualValues(t, 800, info.MaxLSN)
	assert.EqualValues(t, 500, info.MinLSN)
	assert.EqualValues(t, 2, info.TotalPages)
}

func buildRedoFile(t *testing.T, cpLSN uint64) string {
	t.Helper()
	const blockSize = 512
	all := make([]byte, 4*blockSize)
	cp0 := all[blockSize : 2*blockSize]
	buf.PutU64BE(cp0[8:], cpLSN)
	dir := t.TempDir()
	path := filepath.Join(dir, "ib_logfile0")
	require.NoError(t, os.WriteFile(path, all, 0o644))
	return path
}

func TestVerifyRedoContinuityCovered(t *testing.T) {
	path := buildRedoFile(t, 5000)
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 1, LSN: 1000, PageType: format.PageTypeFspHdr})

	result, err := VerifyRedoContinuity(path, p0, pageSize)
	require.NoError(t, err)
	assert.True(t, result.CoversTablespace)
	assert.EqualValues(t, 0, result.LSNGap)
	assert.EqualValues(t, 5000, result.CheckpointLSN)
}

func TestVerifyRedoContinuityGap(t *testing.T) {
	path := buildRedoFile(t, 500)
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 1, LSN: 1000, PageType: format.PageTypeFspHdr})

	result, err := VerifyRedoContinuity(path, p0, pageSize)
	require.NoError(t, err)
	assert.False(t, result.CoversTablespace)
	assert.EqualValues(t, 500, result.LSNGap)
}
