package idbkit

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/errs"
	"github.com/idbkit/idbkit/internal/ops"
	"github.com/idbkit/idbkit/internal/writer"
)

// PageTransplantResult reports what happened to one candidate page.
type PageTransplantResult = ops.PageTransplantResult

// TransplantReport is the result of Transplant.
type TransplantReport struct {
	Results []PageTransplantResult
}

// Transplant copies pages from donorPath into targetPath at matching page
// numbers (restricted to WithSinglePage's page, if set). The two files'
// page sizes must match; ops.Transplant checks their space ids.
// WithForce overrides the normal page-0 and invalid-donor-checksum skips.
// WithBackup snapshots targetPath before the write; WithDryRun computes
// the report without touching targetPath.
func Transplant(targetPath, donorPath string, opts ...Option) (TransplantReport, error) {
	c := newConfig(opts)

	th, err := openTablespace(targetPath, config{pageSizeOverride: c.pageSizeOverride})
	if err != nil {
		return TransplantReport{}, err
	}
	target, err := th.ReadAllPages()
	pageSize, vendorDesc := th.PageSize, th.Vendor
	th.Close()
	if err != nil {
		return TransplantReport{}, err
	}

	dh, err := openTablespace(donorPath, config{pageSizeOverride: c.pageSizeOverride})
	if err != nil {
		return TransplantReport{}, err
	}
	donor, err := dh.ReadAllPages()
	donorPageSize := dh.PageSize
	dh.Close()
	if err != nil {
		return TransplantReport{}, err
	}
	if donorPageSize != pageSize {
		return TransplantReport{}, errs.Validation("idbkit.Transplant", donorPath, fmt.Sprintf("page size mismatch (target %d, donor %d)", pageSize, donorPageSize))
	}

	cfg := ops.TransplantConfig{Force: c.force}
	if c.hasSinglePage {
		cfg.Pages = []uint64{*c.singlePage}
	}

	result, err := ops.Transplant(target, donor, pageSize, vendorDesc, cfg)
	if err != nil {
		return TransplantReport{}, err
	}

	if c.dryRun {
		return TransplantReport{Results: result.Results}, nil
	}
	if c.backup {
		if err := writer.Backup(targetPath); err != nil {
			return TransplantReport{}, err
		}
	}
	fw := &writer.FileWriter{Path: targetPath}
	if err := fw.WriteFile(result.Target); err != nil {
		return TransplantReport{}, err
	}
	return TransplantReport{Results: result.Results}, nil
}
