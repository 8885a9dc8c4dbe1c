package idbkit

import (
	"github.com/idbkit/idbkit/internal/health"
)

// HealthReport wraps internal/health's per-tablespace analysis.
type HealthReport = health.Report

// Health analyzes per-index fill factor, garbage ratio, fragmentation, and
// tree depth for a tablespace file.
func Health(path string, opts ...Option) (HealthReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return HealthReport{}, err
	}
	defer h.Close()

	all, err := h.ReadAllPages()
	if err != nil {
		return HealthReport{}, err
	}

	total := uint64(len(all)) / uint64(h.PageSize)
	var empty uint64
	snapshots := make([]health.PageSnapshot, 0, total)
	for n := uint64(0); n < total; n++ {
		page := all[n*uint64(h.PageSize) : (n+1)*uint64(h.PageSize)]
		if isAllZero(page) {
			empty++
			continue
		}
		if snap, ok := health.ExtractSnapshot(page, n); ok {
			snapshots = append(snapshots, snap)
		}
	}
	return health.Analyze(snapshots, h.PageSize, total, empty, path), nil
}
