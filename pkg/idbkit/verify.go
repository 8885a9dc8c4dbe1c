package idbkit

import (
	"github.com/idbkit/idbkit/internal/tablespace"
	"github.com/idbkit/idbkit/internal/verify"
)

// openHandleForChain opens a chain-comparison snapshot file without
// attempting decryption — chain continuity only reads FIL-header-level
// fields, which are never themselves encrypted.
func openHandleForChain(path string, pageSizeOverride uint32) (*tablespace.Handle, []byte, error) {
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

// VerifyReport is the full structural verification result: the tablespace
// report, plus an optional redo-continuity result and backup-chain report
// when WithRedoPath / WithChainPaths were supplied.
type VerifyReport struct {
	Tablespace verify.Report
	Redo       *verify.RedoResult `json:",omitempty"`
	Chain      *verify.ChainReport `json:",omitempty"`
}

// Verify runs structural validation over a tablespace file: page-number
// sequence, space-id consistency, LSN
// monotonicity, B+Tree level sanity, page-chain bounds, and trailer/header
// LSN agreement. When WithRedoPath is given, also checks the redo log
// covers the tablespace's LSN range; when WithChainPaths is given, also
// checks backup-chain ordering and gaps across the named snapshots.
func Verify(path string, opts ...Option) (VerifyReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return VerifyReport{}, err
	}
	defer h.Close()

	all, err := h.ReadAllPages()
	if err != nil {
		return VerifyReport{}, err
	}

	report := VerifyReport{
		Tablespace: verify.VerifyTablespace(all, h.PageSize, h.SpaceID, path, verify.DefaultConfig()),
	}

	if c.redoPath != "" {
		redoResult, err := verify.VerifyRedoContinuity(c.redoPath, all, h.PageSize)
		if err != nil {
			return VerifyReport{}, err
		}
		report.Redo = &redoResult
	}

	if len(c.chainPaths) > 0 {
		infos := make([]verify.ChainFileInfo, 0, len(c.chainPaths)+1)
		infos = append(infos, verify.ExtractChainFileInfo(all, h.PageSize, path))
		for _, p := range c.chainPaths {
			ch, pages, err := openHandleForChain(p, c.pageSizeOverride)
			if err != nil {
				return VerifyReport{}, err
			}
			infos = append(infos, verify.ExtractChainFileInfo(pages, ch.PageSize, p))
			ch.Close()
		}
		chainReport := verify.VerifyBackupChain(infos)
		report.Chain = &chainReport
	}

	return report, nil
}
