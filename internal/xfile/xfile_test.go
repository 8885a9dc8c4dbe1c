package xfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/testpage"
)

const pageSize = uint32(16384)

func writeTablespace(t *testing.T, dir, name string, spaceID uint32, pages int) string {
	t.Helper()
	var buf []byte
	for n := 0; n < pages; n++ {
		p := testpage.NewPage(pageSize, testpage.FilHeaderFields{
			PageNumber: uint32(n),
			PageType:   format.PageTypeIndex,
			SpaceID:    spaceID,
		})
		testpage.PutIndexHeader(p, testpage.IndexPageFields{Level: 0, IndexID: 1})
		testpage.WithChecksum(p, pageSize, checksum.AlgorithmCRC32C)
		buf = append(buf, p...)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestFindLocatesPageByNumber(t *testing.T) {
	dir := t.TempDir()
	writeTablespace(t, dir, "a.ibd", 5, 3)
	writeTablespace(t, dir, "b.ibd", 6, 2)

	matches, err := Find(dir, 1, FindConfig{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestFindFiltersBySpaceID(t *testing.T) {
	dir := t.TempDir()
	writeTablespace(t, dir, "a.ibd", 5, 3)
	writeTablespace(t, dir, "b.ibd", 6, 2)

	matches, err := Find(dir, 1, FindConfig{SpaceID: 6, HasSpaceIDFilter: true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint32(6), matches[0].SpaceID)
}

func TestFindFirstMatchOnlyStopsEarly(t *testing.T) {
	dir := t.TempDir()
	writeTablespace(t, dir, "a.ibd", 5, 3)
	writeTablespace(t, dir, "b.ibd", 6, 3)

	matches, err := Find(dir, 0, FindConfig{FirstMatchOnly: true})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestTsidMapsFilesToSpaceIDs(t *testing.T) {
	dir := t.TempDir()
	writeTablespace(t, dir, "a.ibd", 5, 1)
	writeTablespace(t, dir, "b.ibd", 6, 1)

	entries, err := Tsid(dir, TsidConfig{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTsidLookupFilter(t *testing.T) {
	dir := t.TempDir()
	writeTablespace(t, dir, "a.ibd", 5, 1)
	writeTablespace(t, dir, "b.ibd", 6, 1)

	entries, err := Tsid(dir, TsidConfig{LookupID: 6, HasLookupFilter: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.ibd", filepath.Base(entries[0].Path))
}

func TestDiffReportsIdenticalPages(t *testing.T) {
	dir := t.TempDir()
	a := writeTablespace(t, dir, "a.ibd", 5, 2)
	b := writeTablespace(t, dir, "b.ibd", 5, 2)

	report, err := Diff(a, b, DiffConfig{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Identical)
	assert.Empty(t, report.Modified)
}

func TestDiffDetectsModifiedPageAndByteRange(t *testing.T) {
	dir := t.TempDir()
	a := writeTablespace(t, dir, "a.ibd", 5, 2)
	bBytes, err := os.ReadFile(a)
	require.NoError(t, err)
	bBytes = append([]byte{}, bBytes...)
	bBytes[int(pageSize)+100] ^= 0xFF
	b := filepath.Join(dir, "b.ibd")
	require.NoError(t, os.WriteFile(b, bBytes, 0o644))

	report, err := Diff(a, b, DiffConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Identical)
	require.Len(t, report.Modified, 1)
	assert.Equal(t, uint64(1), report.Modified[0].PageNumber)
}

func TestAuditIntegrityFlagsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	good := writeTablespace(t, dir, "good.ibd", 5, 2)
	bad := filepath.Join(dir, "bad.ibd")
	raw, err := os.ReadFile(good)
	require.NoError(t, err)
	raw = append([]byte{}, raw...)
	raw[int(pageSize)+7] ^= 0xFF // corrupt page 1's page-number field, breaks page-number sequence
	require.NoError(t, os.WriteFile(bad, raw, 0o644))

	report, err := Audit(dir, AuditConfig{Mode: AuditIntegrity})
	require.NoError(t, err)
	assert.Len(t, report.Files, 2)
	assert.GreaterOrEqual(t, report.Failed, 1)
}

func TestWatchEmitsChangeOnModification(t *testing.T) {
	dir := t.TempDir()
	path := writeTablespace(t, dir, "a.ibd", 5, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := Watch(ctx, path, 10*time.Millisecond)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw = append([]byte{}, raw...)
	raw[100] ^= 0xFF
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	select {
	case ev := <-events:
		assert.NoError(t, ev.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
