package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	verifyRedoPath   string
	verifyChainPaths []string
)

func init() {
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Run structural validation over a tablespace file",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().StringVar(&verifyRedoPath, "redo", "", "Redo log path to check LSN coverage against")
	cmd.Flags().StringSliceVar(&verifyChainPaths, "chain", nil, "Backup snapshot paths to check chain continuity against")
	rootCmd.AddCommand(cmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := args[0]
	var opts []idbkit.Option
	if verifyRedoPath != "" {
		opts = append(opts, idbkit.WithRedoPath(verifyRedoPath))
	}
	if len(verifyChainPaths) > 0 {
		opts = append(opts, idbkit.WithChainPaths(verifyChainPaths))
	}

	report, err := idbkit.Verify(path, opts...)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	status := "PASS"
	if !report.Tablespace.Passed {
		status = "FAIL"
	}
	printInfo("Tablespace: %s (%d pages checked)\n", status, report.Tablespace.TotalPages)
	for _, s := range report.Tablespace.Summary {
		printInfo("  %-28s %s\n", s.Kind, passFail(s.Passed))
	}
	for _, f := range report.Tablespace.Findings {
		printInfo("  ! page %d: %s\n", f.PageNumber, f.Message)
	}
	if report.Redo != nil {
		printInfo("Redo continuity: %s\n", passFail(report.Redo.CoversTablespace))
	}
	if report.Chain != nil {
		printInfo("Backup chain: %s\n", passFail(report.Chain.Contiguous))
	}

	if !report.Tablespace.Passed {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
