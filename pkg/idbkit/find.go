package idbkit

import (
	"github.com/idbkit/idbkit/internal/xfile"
)

// FindReport is the result of find(): every matching file.
type FindReport struct {
	TargetPageNumber uint64
	Matches          []xfile.FindMatch
}

// Find walks rootDir for tablespace files containing targetPageNumber,
// narrowed by WithChecksumFilter/WithSpaceIDFilter/WithFirstMatchOnly/
// WithMaxDepth.
func Find(rootDir string, targetPageNumber uint64, opts ...Option) (FindReport, error) {
	c := newConfig(opts)
	matches, err := xfile.Find(rootDir, targetPageNumber, xfile.FindConfig{
		ChecksumAlgorithm: c.checksumFilter,
		HasChecksumFilter: c.hasChecksumFilter,
		SpaceID:           c.spaceIDFilter,
		HasSpaceIDFilter:  c.hasSpaceIDFilter,
		FirstMatchOnly:    c.firstMatchOnly,
		MaxDepth:          c.maxDepth,
	})
	if err != nil {
		return FindReport{}, err
	}
	return FindReport{TargetPageNumber: targetPageNumber, Matches: matches}, nil
}
