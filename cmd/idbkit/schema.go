package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Render the tablespace's table schema (SDI-derived, or inferred)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchema,
	}
	rootCmd.AddCommand(cmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	report, err := idbkit.Schema(args[0])
	if err != nil {
		return fmt.Errorf("schema failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	if report.Inferred {
		printInfo("No SDI schema found; inferred structure:\n")
		printInfo("Record format: %s\n", report.Fallback.RecordFormat)
		for _, idx := range report.Fallback.Indexes {
			printInfo("  index_id=%-6d leaf_pages=%-6d max_level=%d\n", idx.IndexID, idx.LeafPages, idx.MaxLevel)
		}
		return nil
	}

	printInfo("%s\n", report.Table.DDL)
	return nil
}
