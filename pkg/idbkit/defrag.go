package idbkit

import (
	"os"

	"github.com/idbkit/idbkit/internal/ops"
	"github.com/idbkit/idbkit/internal/writer"
	"github.com/idbkit/idbkit/internal/xlog"
)

// DroppedPage reports one page the defragment pass dropped.
type DroppedPage = ops.DroppedPage

// DefragReport is the result of Defrag.
type DefragReport struct {
	Written int
	Dropped []DroppedPage
}

// Defrag renumbers and re-chains sourcePath's index pages, writing the
// result to outputPath. With WithBackup, an existing file at outputPath is
// copied to {outputPath}.bak before it is overwritten; sourcePath itself is
// never backed up. Defrag reads and writes raw bytes, like Repair.
func Defrag(sourcePath, outputPath string, opts ...Option) (DefragReport, error) {
	c := newConfig(opts)

	h, err := openTablespace(sourcePath, config{pageSizeOverride: c.pageSizeOverride})
	if err != nil {
		return DefragReport{}, err
	}
	raw, err := h.ReadAllPages()
	pageSize, vendorDesc := h.PageSize, h.Vendor
	h.Close()
	if err != nil {
		return DefragReport{}, err
	}

	result := ops.Defrag(raw, pageSize, vendorDesc, ops.DefragConfig{Algorithm: c.algorithm})

	if c.dryRun {
		return DefragReport{Written: result.Written, Dropped: result.Dropped}, nil
	}
	if c.backup {
		if _, statErr := os.Stat(outputPath); statErr == nil {
			if err := writer.Backup(outputPath); err != nil {
				return DefragReport{}, err
			}
		}
	}
	fw := &writer.FileWriter{Path: outputPath}
	if err := fw.WriteFile(result.Pages); err != nil {
		return DefragReport{}, err
	}
	xlog.Default.Infof("defrag: wrote %d page(s) to %s, dropped %d", result.Written, outputPath, len(result.Dropped))
	return DefragReport{Written: result.Written, Dropped: result.Dropped}, nil
}
