package idbkit

import (
	"encoding/hex"

	"github.com/idbkit/idbkit/internal/errs"
)

// DumpReport is a hex rendering of a byte range.
type DumpReport struct {
	File   string
	Offset int64
	Length int
	Raw    []byte
	Hex    string
}

// Dump reads length bytes starting at offset (a flat file offset, e.g.
// pageNumber*pageSize for whole-page dumps) and renders them as hex. If
// length is zero, it defaults to one full page at WithPageSizeOverride's
// size (or the auto-detected size when unset).
func Dump(path string, offset int64, length int, opts ...Option) (DumpReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return DumpReport{}, err
	}
	defer h.Close()

	if length == 0 {
		length = int(h.PageSize)
	}
	if offset < 0 || length < 0 {
		return DumpReport{}, errs.Argument("idbkit.Dump", "offset and length must be non-negative")
	}

	all, err := h.ReadAllPages()
	if err != nil {
		return DumpReport{}, err
	}
	end := offset + int64(length)
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	if offset > int64(len(all)) {
		offset = int64(len(all))
	}
	raw := all[offset:end]

	return DumpReport{
		File:   path,
		Offset: offset,
		Length: len(raw),
		Raw:    raw,
		Hex:    hex.Dump(raw),
	}, nil
}
