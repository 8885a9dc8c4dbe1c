package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	auditMode     string
	auditMaxDepth int
)

func init() {
	cmd := &cobra.Command{
		Use:   "audit <root-dir>",
		Short: "Roll up integrity, health, or space-id checks across a directory tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}
	cmd.Flags().StringVar(&auditMode, "mode", "integrity", "Audit mode: integrity|health|mismatch")
	cmd.Flags().IntVar(&auditMaxDepth, "max-depth", 0, "Bound directory recursion (0 = unbounded)")
	rootCmd.AddCommand(cmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := args[0]

	switch auditMode {
	case "integrity", "health", "mismatch":
	default:
		return fmt.Errorf("unknown audit mode %q", auditMode)
	}

	opts := []idbkit.Option{idbkit.WithAuditMode(auditMode)}
	if auditMaxDepth > 0 {
		opts = append(opts, idbkit.WithMaxDepth(auditMaxDepth))
	}

	report, err := idbkit.Audit(root, opts...)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	for _, f := range report.Files {
		status := "PASS"
		if !f.Passed {
			status = "FAIL"
		}
		printInfo("%-8s %s (%d issue(s))\n", status, f.Path, f.Issues)
	}
	printInfo("Failed: %d/%d\n", report.Failed, len(report.Files))

	if report.Failed > 0 {
		return fmt.Errorf("%d file(s) failed audit", report.Failed)
	}
	return nil
}
