package lob

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/tablespace"
	"github.com/idbkit/idbkit/internal/testpage"
)

func TestParseBlobPageHeader(t *testing.T) {
	page := make([]byte, 16384)
	d := page[format.FilPageData:]
	buf.PutU32BE(d[blobPartLenOff:], 8000)
	buf.PutU32BE(d[blobNextPageOff:], 12)

	hdr, err := ParseBlobPageHeader(page)
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), hdr.PartLen)
	assert.Equal(t, uint32(12), hdr.NextPageNo)
	assert.True(t, hdr.HasNext())
}

func TestBlobPageHeaderNoNext(t *testing.T) {
	page := make([]byte, 16384)
	d := page[format.FilPageData:]
	buf.PutU32BE(d[blobPartLenOff:], 100)
	buf.PutU32BE(d[blobNextPageOff:], format.FilNull)

	hdr, err := ParseBlobPageHeader(page)
	require.NoError(t, err)
	assert.False(t, hdr.HasNext())
}

func TestParseFirstPageHeader(t *testing.T) {
	page := make([]byte, 16384)
	d := page[format.FilPageData:]
	d[lobFirstVersionOff] = 1
	d[lobFirstFlagsOff] = 0
	buf.PutU32BE(d[lobFirstDataLenOff:], 65536)
	var trx [8]byte
	buf.PutU64BE(trx[:], 0x0000112233445566)
	copy(d[lobFirstTrxIDOff:lobFirstTrxIDOff+6], trx[2:8])

	hdr, err := ParseFirstPageHeader(page)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), hdr.Version)
	assert.Equal(t, uint32(65536), hdr.DataLen)
	assert.Equal(t, uint64(0x0000112233445566), hdr.TrxID)
}

func buildBlobChainFile(t *testing.T, pageSize uint32) string {
	t.Helper()
	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, SpaceID: 3, PageType: format.PageTypeFspHdr})
	testpage.WithChecksum(p0, pageSize, checksum.AlgorithmCRC32C)

	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, SpaceID: 3, PageType: format.PageTypeBlob})
	d1 := p1[format.FilPageData:]
	buf.PutU32BE(d1[blobPartLenOff:], 1000)
	buf.PutU32BE(d1[blobNextPageOff:], 2)
	testpage.WithChecksum(p1, pageSize, checksum.AlgorithmCRC32C)

	p2 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 2, SpaceID: 3, PageType: format.PageTypeBlob})
	d2 := p2[format.FilPageData:]
	buf.PutU32BE(d2[blobPartLenOff:], 500)
	buf.PutU32BE(d2[blobNextPageOff:], format.FilNull)
	testpage.WithChecksum(p2, pageSize, checksum.AlgorithmCRC32C)

	dir := t.TempDir()
	path := filepath.Join(dir, "blob.ibd")
	var all []byte
	all = append(all, p0...)
	all = append(all, p1...)
	all = append(all, p2...)
	require.NoError(t, os.WriteFile(path, all, 0o644))
	return path
}

func TestWalkBlobChain(t *testing.T) {
	path := buildBlobChainFile(t, 16384)
	h, err := tablespace.Open(path, tablespace.Options{})
	require.NoError(t, err)
	defer h.Close()

	chain, err := WalkBlobChain(h, 1, 16)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, uint64(1), chain[0].PageNumber)
	assert.Equal(t, uint32(1000), chain[0].PartLen)
	assert.Equal(t, uint64(2), chain[1].PageNumber)
	assert.Equal(t, uint32(500), chain[1].PartLen)
}

func TestWalkBlobChainStopsAtNull(t *testing.T) {
	path := buildBlobChainFile(t, 16384)
	h, err := tablespace.Open(path, tablespace.Options{})
	require.NoError(t, err)
	defer h.Close()

	chain, err := WalkBlobChain(h, 0, 16)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestWalkBlobChainBoundedByMaxPages(t *testing.T) {
	path := buildBlobChainFile(t, 16384)
	h, err := tablespace.Open(path, tablespace.Options{})
	require.NoError(t, err)
	defer h.Close()

	chain, err := WalkBlobChain(h, 1, 1)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, uint64(1), chain[0].PageNumber)
}
