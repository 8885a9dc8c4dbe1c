package idbkit

import (
	"github.com/idbkit/idbkit/internal/xfile"
)

// TsidReport is the result of tsid(): every tablespace file under rootDir
// mapped to its space ID.
type TsidReport struct {
	Entries []xfile.TsidEntry
}

// Tsid walks rootDir building a file↔space-id map, optionally narrowed to
// one space ID with WithLookupID.
func Tsid(rootDir string, opts ...Option) (TsidReport, error) {
	c := newConfig(opts)
	entries, err := xfile.Tsid(rootDir, xfile.TsidConfig{
		LookupID:        c.lookupID,
		HasLookupFilter: c.hasLookupFilter,
		MaxDepth:        c.maxDepth,
	})
	if err != nil {
		return TsidReport{}, err
	}
	return TsidReport{Entries: entries}, nil
}
