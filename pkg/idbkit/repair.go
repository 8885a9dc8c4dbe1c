package idbkit

import (
	"github.com/idbkit/idbkit/internal/ops"
	"github.com/idbkit/idbkit/internal/writer"
	"github.com/idbkit/idbkit/internal/xlog"
)

// RepairReport wraps internal/ops' checksum-repair result.
type RepairReport = ops.RepairReport

// Repair validates every page (optionally just WithSinglePage) and, unless
// WithDryRun is set, rewrites in place the stored checksum of each page
// that fails validation. WithBackup
// writes a {path}.bak copy before the destructive write. Repair reads and
// writes raw bytes — it deliberately never decrypts, since checksums are
// stamped over stored bytes, not plaintext.
func Repair(path string, opts ...Option) (RepairReport, error) {
	c := newConfig(opts)

	h, err := openTablespace(path, config{pageSizeOverride: c.pageSizeOverride})
	if err != nil {
		return RepairReport{}, err
	}
	raw, err := h.ReadAllPages()
	pageSize, vendorDesc := h.PageSize, h.Vendor
	h.Close()
	if err != nil {
		return RepairReport{}, err
	}

	cfg := ops.RepairConfig{Algorithm: c.algorithm, DryRun: c.dryRun, SinglePage: c.singlePage}
	report, out := ops.Repair(raw, pageSize, vendorDesc, cfg)

	if c.dryRun || len(report.Repairs) == 0 {
		return report, nil
	}
	if c.backup {
		if err := writer.Backup(path); err != nil {
			return report, err
		}
		xlog.Default.Infof("repair: wrote backup %s.bak", path)
	}
	fw := &writer.FileWriter{Path: path}
	if err := fw.WriteFile(out); err != nil {
		return report, err
	}
	xlog.Default.Infof("repair: rewrote %d page checksum(s) in %s", len(report.Repairs), path)
	return report, nil
}
