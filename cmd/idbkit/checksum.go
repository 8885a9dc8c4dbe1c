package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

func init() {
	cmd := &cobra.Command{
		Use:   "checksum <file>",
		Short: "Validate every page's stored checksum",
		Args:  cobra.ExactArgs(1),
		RunE:  runChecksum,
	}
	rootCmd.AddCommand(cmd)
}

func runChecksum(cmd *cobra.Command, args []string) error {
	path := args[0]
	var opts []idbkit.Option
	if verbose {
		opts = append(opts, idbkit.WithVerbose())
	}

	report, err := idbkit.Checksum(path, opts...)
	if err != nil {
		return fmt.Errorf("checksum failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Valid:   %d\n", report.Valid)
	printInfo("Invalid: %d\n", report.Invalid)
	printInfo("Empty:   %d\n", report.Empty)
	if report.LSNMismatch > 0 {
		printInfo("LSN mismatches: %d\n", report.LSNMismatch)
	}
	for _, d := range report.Details {
		status := "OK"
		if !d.Valid {
			status = "INVALID"
		}
		printInfo("  page %-8d %-8s algo=%s stored=0x%08x computed=0x%08x\n",
			d.PageNumber, status, d.Algorithm, d.Stored, d.Computed)
	}
	if report.Invalid > 0 {
		return fmt.Errorf("%d page(s) failed checksum validation", report.Invalid)
	}
	return nil
}
