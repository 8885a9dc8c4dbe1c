package compress

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/format"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecompressNoneCopiesAndPads(t *testing.T) {
	out, err := Decompress(format.CompressionNone, []byte{1, 2, 3}, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, out)
}

func TestDecompressZlibRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("abcd"), 512)
	out, err := Decompress(format.CompressionZlib, zlibCompress(t, payload), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestDecompressZlibShortStreamZeroPads(t *testing.T) {
	payload := []byte("short")
	out, err := Decompress(format.CompressionZlib, zlibCompress(t, payload), 16)
	require.NoError(t, err)
	assert.Equal(t, append(payload, make([]byte, 11)...), out)
}

func TestDecompressLZ4RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("wxyz"), 512)
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, compressed, nil)
	require.NoError(t, err)

	out, err := Decompress(format.CompressionLZ4, compressed[:n], len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestDecompressUnknownAlgorithm(t *testing.T) {
	_, err := Decompress(format.CompressionAlgorithm(9), []byte{1}, 4)
	assert.Error(t, err)
}

func TestDecompressZlibGarbage(t *testing.T) {
	_, err := Decompress(format.CompressionZlib, []byte{0xDE, 0xAD, 0xBE, 0xEF}, 16)
	assert.Error(t, err)
}

func TestDecompressZlibStreamExactLength(t *testing.T) {
	payload := []byte(`{"dd_object_type":"Table"}`)
	out, err := DecompressZlibStream(zlibCompress(t, payload), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestDecompressZlibStreamTruncatedDeclaration(t *testing.T) {
	payload := []byte("abc")
	_, err := DecompressZlibStream(zlibCompress(t, payload), len(payload)+10)
	assert.Error(t, err)
}

func TestIsHolePunched(t *testing.T) {
	page := make([]byte, 16384)
	for i := 0; i < 4096; i++ {
		page[i] = 0xAB
	}
	assert.True(t, IsHolePunched(page))

	page[16384-1] = 1
	assert.False(t, IsHolePunched(page))
}
