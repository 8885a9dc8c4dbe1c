package idbkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/ops"
	"github.com/idbkit/idbkit/internal/testpage"
)

const testPageSize = uint32(16384)

func fspPage(spaceID uint32) []byte {
	p := testpage.NewPage(testPageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: spaceID})
	return testpage.WithChecksum(p, testPageSize, checksum.AlgorithmCRC32C)
}

func indexPage(pageNumber uint32, spaceID uint32, indexID uint64, level uint16, prev, next uint32) []byte {
	p := testpage.NewPage(testPageSize, testpage.FilHeaderFields{
		PageNumber: pageNumber,
		PrevPage:   prev,
		NextPage:   next,
		PageType:   format.PageTypeIndex,
		SpaceID:    spaceID,
	})
	testpage.PutIndexHeader(p, testpage.IndexPageFields{Level: level, IndexID: indexID})
	return testpage.WithChecksum(p, testPageSize, checksum.AlgorithmCRC32C)
}

func writeFile(t *testing.T, dir, name string, pages ...[]byte) string {
	t.Helper()
	var buf []byte
	for _, p := range pages {
		buf = append(buf, p...)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestParseReportsPageHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.ibd",
		fspPage(5),
		indexPage(1, 5, 10, 0, format.FilNull, format.FilNull))

	report, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, 2, report.PageCount)
	assert.Equal(t, uint32(5), report.Pages[1].SpaceID)
}

func TestChecksumFlagsCorruptedPage(t *testing.T) {
	dir := t.TempDir()
	p1 := indexPage(1, 5, 10, 0, format.FilNull, format.FilNull)
	p1[0] ^= 0xFF
	path := writeFile(t, dir, "t.ibd", fspPage(5), p1)

	report, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 1, report.Valid)
}

func TestRepairFixesFileInPlace(t *testing.T) {
	dir := t.TempDir()
	p1 := indexPage(1, 5, 10, 0, format.FilNull, format.FilNull)
	p1[0] ^= 0xFF
	path := writeFile(t, dir, "t.ibd", fspPage(5), p1)

	report, err := Repair(path, WithAlgorithm(checksum.AlgorithmCRC32C))
	require.NoError(t, err)
	require.Len(t, report.Repairs, 1)

	fixed, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed.Invalid)
}

func TestRepairDryRunDoesNotTouchFile(t *testing.T) {
	dir := t.TempDir()
	p1 := indexPage(1, 5, 10, 0, format.FilNull, format.FilNull)
	p1[0] ^= 0xFF
	path := writeFile(t, dir, "t.ibd", fspPage(5), p1)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Repair(path, WithDryRun())
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRepairWithBackupWritesBakFile(t *testing.T) {
	dir := t.TempDir()
	p1 := indexPage(1, 5, 10, 0, format.FilNull, format.FilNull)
	p1[0] ^= 0xFF
	path := writeFile(t, dir, "t.ibd", fspPage(5), p1)

	_, err := Repair(path, WithBackup())
	require.NoError(t, err)
	assert.FileExists(t, path+".bak")
}

func TestDefragWritesRenumberedOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "src.ibd",
		fspPage(5),
		indexPage(5, 5, 99, 0, format.FilNull, format.FilNull),
		indexPage(3, 5, 99, 0, format.FilNull, format.FilNull))
	outPath := filepath.Join(dir, "out.ibd")

	report, err := Defrag(path, outPath)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Written)
	assert.FileExists(t, outPath)
}

func TestTransplantAppliesDonorPage(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "target.ibd",
		fspPage(7),
		indexPage(1, 7, 10, 0, format.FilNull, format.FilNull))
	donor := writeFile(t, dir, "donor.ibd",
		fspPage(7),
		indexPage(1, 7, 20, 0, format.FilNull, format.FilNull))

	report, err := Transplant(target, donor, WithSinglePage(1))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Applied)

	parsed, err := Pages(target)
	require.NoError(t, err)
	require.Len(t, parsed.Pages, 2)
}

func TestRecoverClassifiesPages(t *testing.T) {
	dir := t.TempDir()
	corrupt := indexPage(2, 5, 10, 0, format.FilNull, format.FilNull)
	corrupt[0] ^= 0xFF
	path := writeFile(t, dir, "t.ibd",
		fspPage(5),
		indexPage(1, 5, 10, 0, format.FilNull, format.FilNull),
		corrupt)

	report, err := Recover(path)
	require.NoError(t, err)
	require.Len(t, report.Classification.Pages, 3)
	assert.Equal(t, ops.PageClassIntact, report.Classification.Pages[1].Class)
	assert.Equal(t, ops.PageClassCorrupt, report.Classification.Pages[2].Class)
}

func TestRecoverWithRebuildOutputWritesFile(t *testing.T) {
	dir := t.TempDir()
	unreadable := make([]byte, testPageSize)
	for i := range unreadable {
		unreadable[i] = 0xAB
	}
	path := writeFile(t, dir, "t.ibd",
		fspPage(5),
		indexPage(1, 5, 10, 0, format.FilNull, format.FilNull),
		unreadable)
	outPath := filepath.Join(dir, "rebuilt.ibd")

	report, err := Recover(path, WithRebuildOutputPath(outPath))
	require.NoError(t, err)
	assert.Equal(t, outPath, report.RebuiltTo)
	assert.FileExists(t, outPath)
}

func TestHealthReportsPageCounts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.ibd",
		fspPage(5),
		indexPage(1, 5, 10, 0, format.FilNull, format.FilNull))

	_, err := Health(path)
	require.NoError(t, err)
}

func TestVerifyRunsTablespaceStructuralChecks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.ibd",
		fspPage(5),
		indexPage(1, 5, 10, 0, format.FilNull, format.FilNull))

	report, err := Verify(path)
	require.NoError(t, err)
	assert.True(t, report.Tablespace.Passed)
}
