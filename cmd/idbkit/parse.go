package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var parsePageSize uint32

func init() {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Report FIL header summaries and page-type frequencies",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	cmd.Flags().Uint32Var(&parsePageSize, "page-size", 0, "Override auto-detected page size")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	printVerbose("Parsing: %s\n", path)

	var opts []idbkit.Option
	if parsePageSize != 0 {
		opts = append(opts, idbkit.WithPageSizeOverride(parsePageSize))
	}

	report, err := idbkit.Parse(path, opts...)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("File: %s\n", report.File)
	printInfo("Page size: %d\n", report.PageSize)
	printInfo("Pages: %d\n\n", report.PageCount)
	printInfo("Page type frequency:\n")
	for t, n := range report.TypeFrequency {
		printInfo("  %-12s %d\n", t, n)
	}
	return nil
}
