package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/buf"
)

const pageSize = 16384

func TestFilHeaderPutParseRoundTrip(t *testing.T) {
	want := FilHeader{
		Checksum:   0xDEADBEEF,
		PageNumber: 7,
		PrevPage:   6,
		NextPage:   FilNull,
		LSN:        0x0102030405060708,
		PageType:   PageTypeIndex,
		FlushLSN:   0x1111222233334444,
		SpaceID:    42,
	}
	data := make([]byte, SizeFILHeader)
	PutFilHeader(data, want)
	got, err := ParseFilHeader(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.HasPrev())
	assert.False(t, got.HasNext())
}

func TestParseFilHeaderTruncated(t *testing.T) {
	_, err := ParseFilHeader(make([]byte, 10))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFilTrailerRoundTrip(t *testing.T) {
	want := FilTrailer{Checksum: 0xCAFEBABE, LSNLow32: 0x05060708}
	data := make([]byte, SizeFILTrailer)
	PutFilTrailer(data, want)
	got, err := ParseFilTrailer(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFspHeaderPageSizeDecoding(t *testing.T) {
	cases := map[uint32]uint32{
		0: 16384, // zero ssize means default
		3: 4096,
		4: 8192,
		5: 16384,
		6: 32768,
		7: 65536,
	}
	for ssize, want := range cases {
		h := FspHeader{Flags: ssize << FspFlagsPosPageSSize}
		assert.Equal(t, want, h.PageSize(), "ssize %d", ssize)
	}
}

func TestFspHeaderCompressionAndEncryptionFlags(t *testing.T) {
	h := FspHeader{Flags: 1 << FspFlagsPosCompression}
	assert.Equal(t, CompressionZlib, h.Compression())
	assert.False(t, h.Encrypted())

	h = FspHeader{Flags: 2<<FspFlagsPosCompression | 1<<FspFlagsPosEncryption}
	assert.Equal(t, CompressionLZ4, h.Compression())
	assert.True(t, h.Encrypted())
}

func TestPageTypePredicates(t *testing.T) {
	assert.True(t, PageTypeIndex.IsIndex())
	assert.True(t, PageTypeSDI.IsIndex())
	assert.True(t, PageTypeRTree.IsIndex())
	assert.False(t, PageTypeUndoLog.IsIndex())

	assert.True(t, PageTypeEncrypted.IsEncrypted())
	assert.True(t, PageTypeCompressedAndEncrypted.IsEncrypted())
	assert.True(t, PageTypeEncryptedRTree.IsEncrypted())
	assert.False(t, PageTypeIndex.IsEncrypted())

	assert.Equal(t, "INDEX", PageTypeIndex.Name())
	assert.Equal(t, "UNKNOWN", PageTypeFromU16(0x7777).Name())
}

// putRecord stamps a 5-byte compact extra header ending at origin.
func putRecord(page []byte, origin int, status uint8, nextOrigin int) {
	heapStatus := uint16(status) & RecNewStatusMask
	buf.PutU16BE(page[origin-4:origin-2], heapStatus)
	next := 0
	if nextOrigin != 0 {
		next = nextOrigin - origin
	}
	buf.PutU16BE(page[origin-2:origin], uint16(int16(next)))
}

func TestWalkRecordChainVisitsEachUserRecordOnce(t *testing.T) {
	page := make([]byte, pageSize)
	rec1, rec2 := 200, 320

	putRecord(page, PageNewInfimum, RecStatusInfimum, rec1)
	putRecord(page, rec1, RecStatusOrdinary, rec2)
	putRecord(page, rec2, RecStatusOrdinary, PageNewSupremum)
	putRecord(page, PageNewSupremum, RecStatusSupremum, 0)

	refs, err := WalkRecordChain(page)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, rec1, refs[0].Origin)
	assert.Equal(t, rec2, refs[1].Origin)
	assert.Equal(t, uint8(RecStatusOrdinary), refs[0].Extra.Status)
}

func TestWalkRecordChainEmptyPage(t *testing.T) {
	page := make([]byte, pageSize)
	putRecord(page, PageNewInfimum, RecStatusInfimum, PageNewSupremum)
	putRecord(page, PageNewSupremum, RecStatusSupremum, 0)

	refs, err := WalkRecordChain(page)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestWalkRecordChainOutOfBoundsNextFails(t *testing.T) {
	page := make([]byte, pageSize)
	putRecord(page, PageNewInfimum, RecStatusInfimum, pageSize-1)
	// The target's own extra header would start past the end of the page.
	_, err := WalkRecordChain(page[:pageSize-8])

	assert.Error(t, err)
}

func TestWalkRecordChainCycleTerminates(t *testing.T) {
	page := make([]byte, pageSize)
	rec1, rec2 := 200, 320
	putRecord(page, PageNewInfimum, RecStatusInfimum, rec1)
	putRecord(page, rec1, RecStatusOrdinary, rec2)
	putRecord(page, rec2, RecStatusOrdinary, rec1) // cycle back

	refs, err := WalkRecordChain(page)
	require.NoError(t, err)
	// The safety bound stops the walk rather than looping forever.
	assert.Len(t, refs, RecordChainSafetyLimit)
}

func TestParseRecordExtraHeaderFlags(t *testing.T) {
	page := make([]byte, 64)
	origin := 32
	page[origin-5] = RecInfoDeletedFlag | 0x03 // deleted, owned=3
	buf.PutU16BE(page[origin-4:origin-2], uint16(5)<<3|RecStatusOrdinary)
	nextOffset := int16(-20)
	buf.PutU16BE(page[origin-2:origin], uint16(nextOffset))

	extra, err := ParseRecordExtraHeader(page, origin)
	require.NoError(t, err)
	assert.True(t, extra.Deleted)
	assert.False(t, extra.MinRec)
	assert.Equal(t, uint8(3), extra.OwnedCount)
	assert.Equal(t, uint16(5), extra.HeapNumber)
	assert.Equal(t, uint8(RecStatusOrdinary), extra.Status)
	assert.Equal(t, int16(-20), extra.NextOffset)
}

func TestParseRecordExtraHeaderBounds(t *testing.T) {
	_, err := ParseRecordExtraHeader(make([]byte, 4), 3)
	assert.ErrorIs(t, err, ErrBoundsCheck)
}
