package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	repairAlgorithm string
	repairDryRun    bool
	repairBackup    bool
	repairPage      uint64
	repairHasPage   bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Recompute and rewrite invalid page checksums",
		Args:  cobra.ExactArgs(1),
		RunE:  runRepair,
	}
	cmd.Flags().StringVar(&repairAlgorithm, "algorithm", "auto", "Checksum algorithm: auto|crc32c|legacy|full_crc32")
	cmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Compute but don't write repairs")
	cmd.Flags().BoolVar(&repairBackup, "backup", false, "Write a .bak copy before modifying the file")
	cmd.Flags().Uint64Var(&repairPage, "page", 0, "Restrict repair to a single page number")
	cmd.Flags().BoolVar(&repairHasPage, "single-page", false, "Enable the --page restriction")
	rootCmd.AddCommand(cmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	path := args[0]
	algo, ok := checksum.ParseAlgorithm(repairAlgorithm)
	if !ok {
		return fmt.Errorf("unknown checksum algorithm %q", repairAlgorithm)
	}

	opts := []idbkit.Option{idbkit.WithAlgorithm(algo)}
	if repairDryRun {
		opts = append(opts, idbkit.WithDryRun())
	}
	if repairBackup {
		opts = append(opts, idbkit.WithBackup())
	}
	if repairHasPage {
		opts = append(opts, idbkit.WithSinglePage(repairPage))
	}

	report, err := idbkit.Repair(path, opts...)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Algorithm: %s\n", report.Algorithm)
	if report.DryRun {
		printInfo("Dry run: %d page(s) would be repaired\n", len(report.Repairs))
	} else {
		printInfo("Repaired: %d page(s)\n", len(report.Repairs))
	}
	for _, r := range report.Repairs {
		printInfo("  page %-8d %-10s old=0x%08x new=0x%08x\n", r.PageNumber, r.Algorithm, r.OldChecksum, r.NewChecksum)
	}
	return nil
}
