// Package compress decompresses InnoDB page bodies and SDI payloads. Page
// compression uses zlib (klauspost/compress, a drop-in faster
// implementation of compress/zlib) or LZ4 (pierrec/lz4); dictionary (SDI)
// payloads are always zlib regardless of the page compression setting.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/idbkit/idbkit/internal/format"
)

// Decompress decompresses a page body under algo. The caller supplies
// uncompressed output capacity via want (the declared page size); the
// returned slice is always exactly want bytes, zero-padded if the
// decompressed stream was shorter.
func Decompress(algo format.CompressionAlgorithm, payload []byte, want int) ([]byte, error) {
	switch algo {
	case format.CompressionNone:
		out := make([]byte, want)
		copy(out, payload)
		return out, nil
	case format.CompressionZlib:
		return decompressZlib(payload, want)
	case format.CompressionLZ4:
		return decompressLZ4(payload, want)
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", algo)
	}
}

func decompressZlib(payload []byte, want int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("compress: zlib: %w", err)
	}
	defer r.Close()
	out := make([]byte, want)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("compress: zlib: %w", err)
	}
	if n < want {
		for i := n; i < want; i++ {
			out[i] = 0
		}
	}
	return out, nil
}

func decompressLZ4(payload []byte, want int) ([]byte, error) {
	out := make([]byte, want)
	n, err := lz4.UncompressBlock(payload, out)
	if err != nil {
		return nil, fmt.Errorf("compress: lz4: %w", err)
	}
	if n < want {
		for i := n; i < want; i++ {
			out[i] = 0
		}
	}
	return out, nil
}

// DecompressZlibStream decompresses exactly uncompressedLen bytes from a
// zlib stream (an error if the stream yields fewer), used by the dictionary (SDI) reassembly path where the uncompressed
// length is known exactly from the record header rather than a fixed page
// size.
func DecompressZlibStream(payload []byte, uncompressedLen int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("compress: sdi zlib: %w", err)
	}
	defer r.Close()
	out := make([]byte, uncompressedLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("compress: sdi zlib: %w", err)
	}
	return out, nil
}

// IsHolePunched applies the hole-punched page heuristic: the last quarter of
// the page is all zero after the compressed payload. This is recognized (so
// callers can report it) but not repaired — punching holes is a storage
// optimization, not corruption.
func IsHolePunched(pageData []byte) bool {
	n := len(pageData)
	quarter := n / 4
	for i := n - quarter; i < n; i++ {
		if pageData[i] != 0 {
			return false
		}
	}
	return true
}
