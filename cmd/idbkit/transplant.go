package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	transplantPage    uint64
	transplantHasPage bool
	transplantForce   bool
	transplantDryRun  bool
	transplantBackup  bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "transplant <target> <donor>",
		Short: "Copy pages from a donor file into a target file",
		Args:  cobra.ExactArgs(2),
		RunE:  runTransplant,
	}
	cmd.Flags().Uint64Var(&transplantPage, "page", 0, "Restrict the transplant to a single page number (default: all shared pages)")
	cmd.Flags().BoolVar(&transplantHasPage, "single-page", false, "Enable the --page restriction")
	cmd.Flags().BoolVar(&transplantForce, "force", false, "Override page-0 and donor-checksum safety skips")
	cmd.Flags().BoolVar(&transplantDryRun, "dry-run", false, "Compute but don't write the target file")
	cmd.Flags().BoolVar(&transplantBackup, "backup", true, "Write a .bak copy of the target before modifying it")
	rootCmd.AddCommand(cmd)
}

func runTransplant(cmd *cobra.Command, args []string) error {
	target, donor := args[0], args[1]

	var opts []idbkit.Option
	if transplantForce {
		opts = append(opts, idbkit.WithForce())
	}
	if transplantDryRun {
		opts = append(opts, idbkit.WithDryRun())
	}
	if transplantBackup {
		opts = append(opts, idbkit.WithBackup())
	}
	if transplantHasPage {
		opts = append(opts, idbkit.WithSinglePage(transplantPage))
	}

	report, err := idbkit.Transplant(target, donor, opts...)
	if err != nil {
		return fmt.Errorf("transplant failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	for _, r := range report.Results {
		status := "applied"
		if !r.Applied {
			status = "skipped: " + r.Reason
		}
		printInfo("  page %-8d %s\n", r.PageNumber, status)
	}
	return nil
}
