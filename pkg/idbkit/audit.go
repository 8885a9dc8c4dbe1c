package idbkit

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/errs"
	"github.com/idbkit/idbkit/internal/xfile"
)

// AuditReport wraps internal/xfile's per-file roll-up. A non-zero Failed
// count means a driver should exit non-zero.
type AuditReport = xfile.AuditReport

// Audit walks rootDir running WithAuditMode's check ("integrity" [default],
// "health", or "mismatch") against every tablespace file found.
func Audit(rootDir string, opts ...Option) (AuditReport, error) {
	c := newConfig(opts)
	mode := xfile.AuditIntegrity
	switch c.auditMode {
	case "", "integrity":
	case "health":
		mode = xfile.AuditHealth
	case "mismatch":
		mode = xfile.AuditMismatch
	default:
		return AuditReport{}, errs.Argument("idbkit.Audit", fmt.Sprintf("unknown audit mode %q", c.auditMode))
	}
	return xfile.Audit(rootDir, xfile.AuditConfig{
		Mode:             mode,
		PageSizeOverride: c.pageSizeOverride,
		MaxDepth:         c.maxDepth,
	})
}
