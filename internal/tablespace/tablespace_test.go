package tablespace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/testpage"
)

func writeTestFile(t *testing.T, pages [][]byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ibd")
	var all []byte
	for _, p := range pages {
		all = append(all, p...)
	}
	require.NoError(t, os.WriteFile(path, all, 0o644))
	return path
}

func twoPageFile(t *testing.T, pageSize uint32) string {
	t.Helper()
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 7, PageType: format.PageTypeFspHdr})
	testpage.WithChecksum(p0, pageSize, checksum.AlgorithmCRC32C)
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, SpaceID: 7, PageType: format.PageTypeIndex})
	testpage.WithChecksum(p1, pageSize, checksum.AlgorithmCRC32C)
	return writeTestFile(t, [][]byte{p0, p1})
}

func TestOpenDetectsPageSize(t *testing.T) {
	path := twoPageFile(t, 16384)
	h, err := Open(path, Options{})
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, uint32(16384), h.PageSize)
	assert.Equal(t, uint32(7), h.SpaceID)
	assert.Equal(t, uint64(2), h.PageCount)
}

func TestOpenDetectsNonDefaultPageSize(t *testing.T) {
	path := twoPageFile(t, 8192)
	h, err := Open(path, Options{})
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, uint32(8192), h.PageSize)
}

func TestOpenTooSmallFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.ibd")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	_, err := Open(path, Options{})
	assert.Error(t, err)
}

func TestReadPageOutOfRange(t *testing.T) {
	path := twoPageFile(t, 16384)
	h, err := Open(path, Options{})
	require.NoError(t, err)
	defer h.Close()
	_, err = h.ReadPage(2)
	assert.Error(t, err)
}

func TestForEachPageOrder(t *testing.T) {
	path := twoPageFile(t, 16384)
	h, err := Open(path, Options{})
	require.NoError(t, err)
	defer h.Close()

	var seen []uint64
	err = h.ForEachPage(func(n uint64, data []byte) error {
		seen = append(seen, n)
		hdr, perr := format.ParseFilHeader(data)
		require.NoError(t, perr)
		assert.Equal(t, uint32(n), hdr.PageNumber)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, seen)
}

func TestParallelDecodeCollectsInOrder(t *testing.T) {
	path := twoPageFile(t, 16384)
	h, err := Open(path, Options{})
	require.NoError(t, err)
	defer h.Close()

	results, err := ParallelDecode(h, func(n uint64, data []byte) (uint32, error) {
		hdr, err := format.ParseFilHeader(data)
		return hdr.PageNumber, err
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, uint64(i), r.PageNumber)
		assert.Equal(t, uint32(i), r.Value)
	}
}

func TestFingerprintStableForIdenticalBytes(t *testing.T) {
	a := make([]byte, 16384)
	b := make([]byte, 16384)
	a[100] = 0xAB
	b[100] = 0xAB
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	b[200] = 0x01
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
