// Package xfile implements the cross-file and cross-time operations:
// scanning a directory tree of tablespace files to find a page, map
// files to space IDs, audit many files at once, diff two snapshots of the
// same tablespace, and watch a file for change over time. Every operation
// here walks real files on disk — unlike internal/ops, which works purely
// in memory over byte buffers a caller already has.
package xfile

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/idbkit/idbkit/internal/tablespace"
)

// candidateFile reports whether name looks like a tablespace data or undo
// file this package's operations should consider.
func candidateFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".ibd") || strings.HasSuffix(lower, ".ibu")
}

// walkCandidates walks root up to maxDepth directories deep (0 means
// unlimited) calling fn for every candidate tablespace file found, in
// lexical order per directory. A single unreadable file or directory
// entry doesn't abort the whole-tree scan, the same way an unreadable
// page doesn't abort a page scan.
func walkCandidates(root string, maxDepth int, fn func(path string)) error {
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if d.IsDir() {
			if maxDepth > 0 {
				depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
				if depth > maxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if candidateFile(d.Name()) {
			fn(path)
		}
		return nil
	})
}

// openOnly opens a tablespace handle without reading its pages, for
// operations (tsid) that only need the header fields Open already parses.
func openOnly(path string) (*tablespace.Handle, error) {
	return tablespace.Open(path, tablespace.Options{})
}

// openHandle is the shared open path every xfile operation uses: whole-file
// read via tablespace.Open/ReadAllPages, page size auto-detected unless
// overridden.
func openHandle(path string, pageSizeOverride uint32) (*tablespace.Handle, []byte, error) {
	h, err := tablespace.Open(path, tablespace.Options{PageSizeOverride: pageSizeOverride})
	if err != nil {
		return nil, nil, err
	}
	pages, err := h.ReadAllPages()
	if err != nil {
		h.Close()
		return nil, nil, err
	}
	return h, pages, nil
}
