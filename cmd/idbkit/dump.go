package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	dumpOffset int64
	dumpLength int
)

func init() {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Hex-dump a byte range",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	cmd.Flags().Int64Var(&dumpOffset, "offset", 0, "Flat file offset")
	cmd.Flags().IntVar(&dumpLength, "length", 0, "Bytes to dump (defaults to one page)")
	rootCmd.AddCommand(cmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]
	report, err := idbkit.Dump(path, dumpOffset, dumpLength)
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}
	if jsonOut {
		return printJSON(report)
	}
	printInfo("%s", report.Hex)
	return nil
}
