package idbkit

import (
	"github.com/idbkit/idbkit/internal/redolog"
)

// BlockDetail is one redo log block's header, checksum validity, and
// (when WithVerbose) its scanned record-type sequence.
type BlockDetail struct {
	BlockNumber uint64
	HasData     bool
	DataLen     uint16
	ChecksumOK  bool
	RecordTypes []string `json:",omitempty"`
}

// LogReport is the result of log(): file header, both checkpoint slots,
// and per-block detail.
type LogReport struct {
	File        string
	Header      redolog.FileHeader
	Checkpoints [2]redolog.Checkpoint
	Blocks      []BlockDetail
}

// Log reads a redo log file's header, checkpoint slots, and block
// sequence, optionally capped at WithBlockLimit blocks, skipping
// data-free blocks under WithSkipEmpty, and including each block's scanned
// MLOG record-type sequence under WithVerbose.
func Log(path string, opts ...Option) (LogReport, error) {
	c := newConfig(opts)
	lf, err := redolog.Open(path)
	if err != nil {
		return LogReport{}, err
	}
	defer lf.Close()

	report := LogReport{File: path}
	if hdr, err := lf.ReadFileHeader(); err == nil {
		report.Header = hdr
	}
	for slot := 0; slot < 2; slot++ {
		if cp, err := lf.ReadCheckpoint(slot); err == nil {
			report.Checkpoints[slot] = cp
		}
	}

	limit := lf.BlockCount()
	if c.hasBlockLimit && uint64(c.blockLimit) < limit {
		limit = uint64(c.blockLimit)
	}

	for n := uint64(0); n < limit; n++ {
		block, err := lf.ReadBlock(n)
		if err != nil {
			continue
		}
		bh, err := redolog.ParseBlockHeader(block)
		if err != nil {
			continue
		}
		if c.skipEmpty && !bh.HasData() {
			continue
		}
		detail := BlockDetail{
			BlockNumber: n,
			HasData:     bh.HasData(),
			DataLen:     bh.DataLen,
			ChecksumOK:  redolog.ValidateBlockChecksum(block),
		}
		if c.verbose && bh.HasData() {
			for _, t := range redolog.ScanRecordTypes(block, bh.DataLen) {
				detail.RecordTypes = append(detail.RecordTypes, t.Name())
			}
		}
		report.Blocks = append(report.Blocks, detail)
	}
	return report, nil
}
