package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/testpage"
	"github.com/idbkit/idbkit/internal/vendor"
)

const pageSize = uint32(16384)

func upstream() vendor.Descriptor {
	return vendor.Descriptor{
		Vendor:             vendor.Upstream,
		ChecksumCandidates: []checksum.Algorithm{checksum.AlgorithmCRC32C, checksum.AlgorithmLegacy},
	}
}

func indexPage(pageNumber uint32, indexID uint64, level uint16, prev, next uint32) []byte {
	p := testpage.NewPage(pageSize, testpage.FilHeaderFields{
		PageNumber: pageNumber,
		PrevPage:   prev,
		NextPage:   next,
		PageType:   format.PageTypeIndex,
		SpaceID:    7,
	})
	testpage.PutIndexHeader(p, testpage.IndexPageFields{Level: level, IndexID: indexID})
	return testpage.WithChecksum(p, pageSize, checksum.AlgorithmCRC32C)
}

func fspPage() []byte {
	p := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 7})
	return testpage.WithChecksum(p, pageSize, checksum.AlgorithmCRC32C)
}

func TestRepairFixesCorruptedChecksum(t *testing.T) {
	p0 := fspPage()
	p1 := indexPage(1, 10, 0, format.FilNull, format.FilNull)
	// Corrupt p1's stored checksum.
	p1[0] ^= 0xFF

	raw := append(append([]byte{}, p0...), p1...)
	report, out := Repair(raw, pageSize, upstream(), RepairConfig{})

	require.Len(t, report.Repairs, 1)
	assert.Equal(t, uint64(1), report.Repairs[0].PageNumber)
	assert.False(t, report.DryRun)

	fixed := pageAt(out, pageSize, 1)
	res := checksum.Validate(fixed, pageSize, checksum.AlgorithmCRC32C, nil)
	assert.True(t, res.Valid)
}

func TestRepairDryRunLeavesBytesUnchanged(t *testing.T) {
	p0 := fspPage()
	p1 := indexPage(1, 10, 0, format.FilNull, format.FilNull)
	p1[0] ^= 0xFF
	raw := append(append([]byte{}, p0...), p1...)

	report, out := Repair(raw, pageSize, upstream(), RepairConfig{DryRun: true})
	require.Len(t, report.Repairs, 1)
	assert.Equal(t, raw, out)
}

func TestRepairSkipsEmptyAndValidPages(t *testing.T) {
	p0 := fspPage()
	p1 := indexPage(1, 10, 0, format.FilNull, format.FilNull)
	empty := make([]byte, pageSize)
	raw := append(append(append([]byte{}, p0...), p1...), empty...)

	report, _ := Repair(raw, pageSize, upstream(), RepairConfig{})
	assert.Empty(t, report.Repairs)
}

func TestRepairSinglePageRestrictsScope(t *testing.T) {
	p0 := fspPage()
	p0[0] ^= 0xFF
	p1 := indexPage(1, 10, 0, format.FilNull, format.FilNull)
	p1[0] ^= 0xFF
	raw := append(append([]byte{}, p0...), p1...)

	target := uint64(1)
	report, _ := Repair(raw, pageSize, upstream(), RepairConfig{SinglePage: &target})
	require.Len(t, report.Repairs, 1)
	assert.Equal(t, uint64(1), report.Repairs[0].PageNumber)
}

func TestDefragRenumbersAndRechainsIndexGroup(t *testing.T) {
	p0 := fspPage()
	// Stored page numbers 5 and 3 are out of order; both pages share one
	// (index_id, level) group, which is renumbered 1, 2 and chained.
	pA := indexPage(5, 99, 0, format.FilNull, format.FilNull)
	pB := indexPage(3, 99, 0, format.FilNull, format.FilNull)

	raw := append(append(append([]byte{}, p0...), pA...), pB...)
	result := Defrag(raw, pageSize, upstream(), DefragConfig{})

	require.Equal(t, 3, result.Written)
	first := pageAt(result.Pages, pageSize, 1)
	second := pageAt(result.Pages, pageSize, 2)

	filFirst, err := format.ParseFilHeader(first)
	require.NoError(t, err)
	filSecond, err := format.ParseFilHeader(second)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), filFirst.PageNumber)
	assert.Equal(t, format.FilNull, filFirst.PrevPage)
	assert.Equal(t, uint32(2), filFirst.NextPage)

	assert.Equal(t, uint32(2), filSecond.PageNumber)
	assert.Equal(t, uint32(1), filSecond.PrevPage)
	assert.Equal(t, format.FilNull, filSecond.NextPage)
}

func TestDefragDropsEmptyPages(t *testing.T) {
	p0 := fspPage()
	empty := make([]byte, pageSize)
	raw := append(append([]byte{}, p0...), empty...)

	result := Defrag(raw, pageSize, upstream(), DefragConfig{})
	assert.Equal(t, 1, result.Written)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, "empty", result.Dropped[0].Reason)
}

func TestDefragIsIdempotent(t *testing.T) {
	p0 := fspPage()
	pA := indexPage(5, 99, 0, format.FilNull, format.FilNull)
	pB := indexPage(3, 99, 0, format.FilNull, format.FilNull)
	raw := append(append(append([]byte{}, p0...), pA...), pB...)

	once := Defrag(raw, pageSize, upstream(), DefragConfig{})
	twice := Defrag(once.Pages, pageSize, upstream(), DefragConfig{})
	assert.Equal(t, once.Pages, twice.Pages)
}

func TestClassifyDetectsEmptyUnreadableCorruptIntact(t *testing.T) {
	p0 := fspPage()
	intact := indexPage(1, 10, 0, format.FilNull, format.FilNull)
	corrupt := indexPage(2, 10, 0, format.FilNull, format.FilNull)
	corrupt[0] ^= 0xFF
	unreadable := make([]byte, pageSize)
	for i := range unreadable {
		unreadable[i] = 0xAB
	}
	empty := make([]byte, pageSize)

	raw := append(append(append(append(append([]byte{}, p0...), intact...), corrupt...), unreadable...), empty...)
	report := Classify(raw, pageSize, upstream())

	require.Len(t, report.Pages, 5)
	assert.Equal(t, PageClassIntact, report.Pages[1].Class)
	assert.Equal(t, PageClassCorrupt, report.Pages[2].Class)
	assert.Equal(t, PageClassUnreadable, report.Pages[3].Class)
	assert.Equal(t, PageClassEmpty, report.Pages[4].Class)
}

func TestTransplantAppliesValidDonorPage(t *testing.T) {
	targetP0 := fspPage()
	targetP1 := indexPage(1, 10, 0, format.FilNull, format.FilNull)
	target := append(append([]byte{}, targetP0...), targetP1...)

	donorP0 := fspPage()
	donorP1 := indexPage(1, 20, 0, format.FilNull, format.FilNull)
	donor := append(append([]byte{}, donorP0...), donorP1...)

	report, err := Transplant(target, donor, pageSize, upstream(), TransplantConfig{Pages: []uint64{1}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Applied)

	out := pageAt(report.Target, pageSize, 1)
	idx, err := format.ParsePageHeader(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), idx.IndexID)
}

func TestTransplantRefusesPageZeroWithoutForce(t *testing.T) {
	targetP0 := fspPage()
	target := append([]byte{}, targetP0...)
	donorP0 := fspPage()
	donor := append([]byte{}, donorP0...)

	report, err := Transplant(target, donor, pageSize, upstream(), TransplantConfig{Pages: []uint64{0}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Applied)
}

func TestTransplantRejectsSpaceIDMismatch(t *testing.T) {
	targetP0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 7})
	testpage.WithChecksum(targetP0, pageSize, checksum.AlgorithmCRC32C)
	donorP0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 8})
	testpage.WithChecksum(donorP0, pageSize, checksum.AlgorithmCRC32C)

	_, err := Transplant(targetP0, donorP0, pageSize, upstream(), TransplantConfig{})
	assert.Error(t, err)
}
