package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/format"
)

const pageSize = uint32(16384)

// newPage stamps a minimal FIL header with the given LSN so the trailer
// sequence check has something to agree with.
func newPage(lsn uint64) []byte {
	data := make([]byte, pageSize)
	format.PutFilHeader(data, format.FilHeader{
		PageNumber: 1,
		PrevPage:   format.FilNull,
		NextPage:   format.FilNull,
		LSN:        lsn,
		PageType:   format.PageTypeIndex,
		SpaceID:    7,
	})
	trailerOff := int(pageSize) - format.SizeFILTrailer
	buf.PutU32BE(data[trailerOff+4:], uint32(lsn))
	return data
}

func TestValidateRecomputeRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmCRC32C, AlgorithmLegacy, AlgorithmFullCRC32} {
		t.Run(algo.String(), func(t *testing.T) {
			data := newPage(0x1122334455667788)
			Recompute(data, pageSize, algo)
			res := Validate(data, pageSize, algo, nil)
			assert.True(t, res.Valid)
			assert.Equal(t, algo, res.Algorithm)
			assert.Equal(t, res.Computed, res.Stored)
			assert.False(t, res.LSNMismatch)
		})
	}
}

func TestValidateAutoDetectsStampedAlgorithm(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmCRC32C, AlgorithmLegacy, AlgorithmFullCRC32} {
		data := newPage(42)
		Recompute(data, pageSize, algo)
		res := Validate(data, pageSize, AlgorithmAuto, []Algorithm{AlgorithmCRC32C, AlgorithmLegacy, AlgorithmFullCRC32})
		require.True(t, res.Valid, "algo %s", algo)
		assert.Equal(t, algo, res.Algorithm)
	}
}

func TestValidateEmptyPageBypassesChecksum(t *testing.T) {
	data := make([]byte, pageSize)
	res := Validate(data, pageSize, AlgorithmCRC32C, nil)
	assert.True(t, res.Valid)
	assert.True(t, res.Empty)
}

func TestValidateDetectsCorruption(t *testing.T) {
	data := newPage(42)
	Recompute(data, pageSize, AlgorithmCRC32C)
	data[100] ^= 0xFF
	res := Validate(data, pageSize, AlgorithmCRC32C, nil)
	assert.False(t, res.Valid)
	assert.NotEqual(t, res.Stored, res.Computed)
}

func TestValidateLSNMismatchIsIndependentOfChecksum(t *testing.T) {
	data := newPage(42)
	Recompute(data, pageSize, AlgorithmCRC32C)
	// The trailer sits outside the body region CRC32C hashes, so a
	// disagreeing trailer LSN leaves the checksum valid.
	trailerOff := int(pageSize) - format.SizeFILTrailer
	buf.PutU32BE(data[trailerOff+4:], 999)
	res := Validate(data, pageSize, AlgorithmCRC32C, nil)
	assert.True(t, res.Valid)
	assert.True(t, res.LSNMismatch)
}

func TestRecomputeLegacyStampsTrailerChecksum(t *testing.T) {
	data := newPage(42)
	Recompute(data, pageSize, AlgorithmLegacy)
	trailer, err := format.ParseFilTrailer(data[int(pageSize)-format.SizeFILTrailer:])
	require.NoError(t, err)
	assert.Equal(t, buf.U32BE(data[format.FilPageSpaceOrChksum:]), trailer.Checksum)
	assert.Equal(t, uint32(42), trailer.LSNLow32)
}

func TestRecomputeFullCRC32WritesLastFourBytes(t *testing.T) {
	data := newPage(42)
	sum := Recompute(data, pageSize, AlgorithmFullCRC32)
	assert.Equal(t, sum, buf.U32BE(data[int(pageSize)-4:]))
}

func TestParseAlgorithm(t *testing.T) {
	for s, want := range map[string]Algorithm{
		"":           AlgorithmAuto,
		"auto":       AlgorithmAuto,
		"crc32c":     AlgorithmCRC32C,
		"legacy":     AlgorithmLegacy,
		"full_crc32": AlgorithmFullCRC32,
	} {
		got, ok := ParseAlgorithm(s)
		assert.True(t, ok, "%q", s)
		assert.Equal(t, want, got, "%q", s)
	}
	_, ok := ParseAlgorithm("md5")
	assert.False(t, ok)
}
