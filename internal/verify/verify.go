// Package verify performs structural validation of InnoDB tablespace
// files, redo log continuity against a tablespace, and backup chain
// ordering across a set of tablespace snapshots. These are pure metadata
// checks — they never require a page's checksum to be valid, which makes
// them useful for catching logical corruption even in files that also
// fail checksum validation.
package verify

import (
	"fmt"
	"sort"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/redolog"
)

// CheckKind identifies which structural check produced a finding.
type CheckKind int

const (
	CheckPageNumberSequence CheckKind = iota
	CheckSpaceIDConsistency
	CheckLSNMonotonicity
	CheckBTreeLevelConsistency
	CheckPageChainBounds
	CheckTrailerLSNMatch
)

func (k CheckKind) String() string {
	switch k {
	case CheckPageNumberSequence:
		return "page_number_sequence"
	case CheckSpaceIDConsistency:
		return "space_id_consistency"
	case CheckLSNMonotonicity:
		return "lsn_monotonicity"
	case CheckBTreeLevelConsistency:
		return "btree_level_consistency"
	case CheckPageChainBounds:
		return "page_chain_bounds"
	case CheckTrailerLSNMatch:
		return "trailer_lsn_match"
	default:
		return "unknown"
	}
}

// Finding is a single structural issue found on one page.
type Finding struct {
	Kind       CheckKind
	PageNumber uint64
	Message    string
	Expected   string // empty when not applicable
	Actual     string // empty when not applicable
}

// CheckSummary tallies one check kind's results across the tablespace.
type CheckSummary struct {
	Kind         CheckKind
	PagesChecked uint64
	IssuesFound  uint64
	Passed       bool
}

// Config selects which structural checks run. All default to true via
// DefaultConfig.
type Config struct {
	CheckPageNumbers      bool
	CheckSpaceIDs         bool
	CheckLSNMonotonicity  bool
	CheckBTreeLevels      bool
	CheckChainBounds      bool
	CheckTrailerLSN       bool
}

// DefaultConfig enables every structural check.
func DefaultConfig() Config {
	return Config{
		CheckPageNumbers:     true,
		CheckSpaceIDs:        true,
		CheckLSNMonotonicity: true,
		CheckBTreeLevels:     true,
		CheckChainBounds:     true,
		CheckTrailerLSN:      true,
	}
}

// Report is the full structural verification result for a tablespace.
type Report struct {
	File       string
	TotalPages uint64
	PageSize   uint32
	Passed     bool
	Findings   []Finding
	Summary    []CheckSummary
}

// maxBTreeLevel is the highest B+Tree level treated as plausible; deeper
// values indicate corrupted header bytes rather than a real index depth.
const maxBTreeLevel = 64

// VerifyTablespace runs all configured structural checks over a flat buffer
// of consecutive pageSize pages, comparing every page's header fields
// against the space ID declared on page 0 and against its neighbors.
func VerifyTablespace(allPages []byte, pageSize uint32, spaceID uint32, file string, cfg Config) Report {
	ps := int(pageSize)
	totalPages := uint64(len(allPages) / ps)
	var findings []Finding

	var pageNumChecked, pageNumIssues uint64
	var spaceIDChecked, spaceIDIssues uint64
	var lsnChecked, lsnIssues uint64
	var btreeChecked, btreeIssues uint64
	var chainChecked, chainIssues uint64
	var trailerChecked, trailerIssues uint64

	var prevLSN uint64

	for pageIdx := uint64(0); pageIdx < totalPages; pageIdx++ {
		offset := int(pageIdx) * ps
		pageData := allPages[offset : offset+ps]

		if isAllZero(pageData) {
			continue
		}

		header, err := format.ParseFilHeader(pageData)
		if err != nil {
			continue
		}

		if cfg.CheckPageNumbers {
			pageNumChecked++
			if uint64(header.PageNumber) != pageIdx {
				pageNumIssues++
				findings = append(findings, Finding{
					Kind:       CheckPageNumberSequence,
					PageNumber: pageIdx,
					Message:    fmt.Sprintf("Page %d has page_number %d in header", pageIdx, header.PageNumber),
					Expected:   fmt.Sprintf("%d", pageIdx),
					Actual:     fmt.Sprintf("%d", header.PageNumber),
				})
			}
		}

		if cfg.CheckSpaceIDs {
			spaceIDChecked++
			if header.SpaceID != spaceID {
				spaceIDIssues++
				findings = append(findings, Finding{
					Kind:       CheckSpaceIDConsistency,
					PageNumber: pageIdx,
					Message:    fmt.Sprintf("Page %d has space_id %d (expected %d)", pageIdx, header.SpaceID, spaceID),
					Expected:   fmt.Sprintf("%d", spaceID),
					Actual:     fmt.Sprintf("%d", header.SpaceID),
				})
			}
		}

		if cfg.CheckLSNMonotonicity && pageIdx > 0 {
			lsnChecked++
			if header.LSN > 0 && prevLSN > 0 && header.LSN < prevLSN/2 {
				lsnIssues++
				findings = append(findings, Finding{
					Kind:       CheckLSNMonotonicity,
					PageNumber: pageIdx,
					Message:    fmt.Sprintf("Page %d LSN %d is significantly lower than previous %d", pageIdx, header.LSN, prevLSN),
					Expected:   fmt.Sprintf(">= %d", prevLSN/2),
					Actual:     fmt.Sprintf("%d", header.LSN),
				})
			}
		}
		if header.LSN > 0 {
			prevLSN = header.LSN
		}

		if cfg.CheckBTreeLevels && header.PageType == format.PageTypeIndex {
			if idxHeader, err := format.ParsePageHeader(pageData); err == nil {
				btreeChecked++
				if idxHeader.Level > maxBTreeLevel {
					btreeIssues++
					findings = append(findings, Finding{
						Kind:       CheckBTreeLevelConsistency,
						PageNumber: pageIdx,
						Message:    fmt.Sprintf("Page %d has unreasonable B+Tree level %d", pageIdx, idxHeader.Level),
						Expected:   fmt.Sprintf("<= %d", maxBTreeLevel),
						Actual:     fmt.Sprintf("%d", idxHeader.Level),
					})
				}
			}
		}

		if cfg.CheckChainBounds {
			chainChecked++
			if header.PrevPage != format.FilNull && uint64(header.PrevPage) >= totalPages {
				chainIssues++
				findings = append(findings, Finding{
					Kind:       CheckPageChainBounds,
					PageNumber: pageIdx,
					Message:    fmt.Sprintf("Page %d prev pointer %d is out of bounds (total: %d)", pageIdx, header.PrevPage, totalPages),
					Expected:   fmt.Sprintf("< %d or FIL_NULL", totalPages),
					Actual:     fmt.Sprintf("%d", header.PrevPage),
				})
			}
			if header.NextPage != format.FilNull && uint64(header.NextPage) >= totalPages {
				chainIssues++
				findings = append(findings, Finding{
					Kind:       CheckPageChainBounds,
					PageNumber: pageIdx,
					Message:    fmt.Sprintf("Page %d next pointer %d is out of bounds (total: %d)", pageIdx, header.NextPage, totalPages),
					Expected:   fmt.Sprintf("< %d or FIL_NULL", totalPages),
					Actual:     fmt.Sprintf("%d", header.NextPage),
				})
			}
		}

		if cfg.CheckTrailerLSN {
			trailerChecked++
			trailerOffset := ps - format.SizeFILTrailer
			if len(pageData) >= trailerOffset+8 {
				trailerLSNLow := buf.U32BE(pageData[trailerOffset+4 : trailerOffset+8])
				headerLSNLow := uint32(header.LSN & 0xFFFFFFFF)
				if trailerLSNLow != headerLSNLow {
					trailerIssues++
					findings = append(findings, Finding{
						Kind:       CheckTrailerLSNMatch,
						PageNumber: pageIdx,
						Message:    fmt.Sprintf("Page %d header LSN low32 0x%08X != trailer 0x%08X", pageIdx, headerLSNLow, trailerLSNLow),
						Expected:   fmt.Sprintf("0x%08X", headerLSNLow),
						Actual:     fmt.Sprintf("0x%08X", trailerLSNLow),
					})
				}
			}
		}
	}

	var summary []CheckSummary
	if cfg.CheckPageNumbers {
		summary = append(summary, CheckSummary{CheckPageNumberSequence, pageNumChecked, pageNumIssues, pageNumIssues == 0})
	}
	if cfg.CheckSpaceIDs {
		summary = append(summary, CheckSummary{CheckSpaceIDConsistency, spaceIDChecked, spaceIDIssues, spaceIDIssues == 0})
	}
	if cfg.CheckLSNMonotonicity {
		summary = append(summary, CheckSummary{CheckLSNMonotonicity, lsnChecked, lsnIssues, lsnIssues == 0})
	}
	if cfg.CheckBTreeLevels {
		summary = append(summary, CheckSummary{CheckBTreeLevelConsistency, btreeChecked, btreeIssues, btreeIssues == 0})
	}
	if cfg.CheckChainBounds {
		summary = append(summary, CheckSummary{CheckPageChainBounds, chainChecked, chainIssues, chainIssues == 0})
	}
	if cfg.CheckTrailerLSN {
		summary = append(summary, CheckSummary{CheckTrailerLSNMatch, trailerChecked, trailerIssues, trailerIssues == 0})
	}

	passed := true
	for _, s := range summary {
		if !s.Passed {
			passed = false
			break
		}
	}

	return Report{
		File:       file,
		TotalPages: totalPages,
		PageSize:   pageSize,
		Passed:     passed,
		Findings:   findings,
		Summary:    summary,
	}
}

func isAllZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// RedoResult is the outcome of comparing a redo log's checkpoint LSN
// against the highest LSN stamped on any page of a tablespace.
type RedoResult struct {
	RedoFile           string
	CheckpointLSN      uint64
	TablespaceMaxLSN   uint64
	CoversTablespace   bool
	LSNGap             uint64
}

// VerifyRedoContinuity opens the redo log at redoPath, takes the higher of
// its two checkpoint LSNs, and compares it to the maximum header LSN found
// across allPages. The log "covers" the tablespace when its checkpoint has
// advanced at least as far as every page it could need to recover.
func VerifyRedoContinuity(redoPath string, allPages []byte, pageSize uint32) (RedoResult, error) {
	lf, err := redolog.Open(redoPath)
	if err != nil {
		return RedoResult{}, err
	}
	defer lf.Close()

	cp0, err := lf.ReadCheckpoint(0)
	if err != nil {
		return RedoResult{}, err
	}
	cp1, err := lf.ReadCheckpoint(1)
	if err != nil {
		return RedoResult{}, err
	}
	checkpointLSN := cp0.LSN
	if cp1.LSN > checkpointLSN {
		checkpointLSN = cp1.LSN
	}

	ps := int(pageSize)
	totalPages := len(allPages) / ps
	var maxLSN uint64
	for i := 0; i < totalPages; i++ {
		pageData := allPages[i*ps : (i+1)*ps]
		if isAllZero(pageData) {
			continue
		}
		header, err := format.ParseFilHeader(pageData)
		if err != nil {
			continue
		}
		if header.LSN > maxLSN {
			maxLSN = header.LSN
		}
	}

	covers := checkpointLSN >= maxLSN
	var gap uint64
	if !covers {
		gap = maxLSN - checkpointLSN
	}

	return RedoResult{
		RedoFile:         redoPath,
		CheckpointLSN:    checkpointLSN,
		TablespaceMaxLSN: maxLSN,
		CoversTablespace: covers,
		LSNGap:           gap,
	}, nil
}

// ChainFileInfo is the LSN/space-ID fingerprint of one tablespace file,
// used to order a backup chain and detect gaps between snapshots.
type ChainFileInfo struct {
	File       string
	SpaceID    uint32
	MaxLSN     uint64
	MinLSN     uint64
	TotalPages uint64
}

// ExtractChainFileInfo scans allPages and summarizes its space ID (from
// page 0) and its LSN range.
func ExtractChainFileInfo(allPages []byte, pageSize uint32, file string) ChainFileInfo {
	ps := int(pageSize)
	totalPages := uint64(len(allPages) / ps)
	var maxLSN uint64
	minLSN := uint64(1<<64 - 1)
	var spaceID uint32

	for i := uint64(0); i < totalPages; i++ {
		pageData := allPages[int(i)*ps : int(i+1)*ps]
		if isAllZero(pageData) {
			continue
		}
		header, err := format.ParseFilHeader(pageData)
		if err != nil {
			continue
		}
		if i == 0 {
			spaceID = header.SpaceID
		}
		if header.LSN > maxLSN {
			maxLSN = header.LSN
		}
		if header.LSN > 0 && header.LSN < minLSN {
			minLSN = header.LSN
		}
	}
	if minLSN == uint64(1<<64-1) {
		minLSN = 0
	}

	return ChainFileInfo{
		File:       file,
		SpaceID:    spaceID,
		MaxLSN:     maxLSN,
		MinLSN:     minLSN,
		TotalPages: totalPages,
	}
}

// ChainGap is an LSN gap detected between two consecutive files in a
// backup chain.
type ChainGap struct {
	FromFile   string
	FromMaxLSN uint64
	ToFile     string
	ToMinLSN   uint64
	GapSize    uint64
}

// ChainReport is the result of ordering a set of tablespace snapshots by
// LSN and checking for continuity gaps or space-ID mismatches.
type ChainReport struct {
	Files               []ChainFileInfo
	Gaps                []ChainGap
	Contiguous          bool
	ConsistentSpaceID   bool
}

// VerifyBackupChain orders filesInfo by ascending MaxLSN and reports any
// gap where the next file's MinLSN exceeds the previous file's MaxLSN,
// along with whether every file agrees on space ID.
func VerifyBackupChain(filesInfo []ChainFileInfo) ChainReport {
	if len(filesInfo) == 0 {
		return ChainReport{Contiguous: true, ConsistentSpaceID: true}
	}

	sorted := make([]ChainFileInfo, len(filesInfo))
	copy(sorted, filesInfo)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MaxLSN < sorted[j].MaxLSN })

	firstSpaceID := sorted[0].SpaceID
	consistentSpaceID := true
	for _, f := range sorted {
		if f.SpaceID != firstSpaceID {
			consistentSpaceID = false
			break
		}
	}

	var gaps []ChainGap
	for i := 0; i+1 < len(sorted); i++ {
		prev, next := sorted[i], sorted[i+1]
		if next.MinLSN > prev.MaxLSN {
			gaps = append(gaps, ChainGap{
				FromFile:   prev.File,
				FromMaxLSN: prev.MaxLSN,
				ToFile:     next.File,
				ToMinLSN:   next.MinLSN,
				GapSize:    next.MinLSN - prev.MaxLSN,
			})
		}
	}

	return ChainReport{
		Files:             sorted,
		Gaps:               gaps,
		Contiguous:         len(gaps) == 0,
		ConsistentSpaceID:  consistentSpaceID,
	}
}
