package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	logBlockLimit int
	logSkipEmpty  bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "log <redo-log-file>",
		Short: "Inspect a redo log's header, checkpoints, and block sequence",
		Args:  cobra.ExactArgs(1),
		RunE:  runLog,
	}
	cmd.Flags().IntVar(&logBlockLimit, "limit", 0, "Cap the number of blocks reported")
	cmd.Flags().BoolVar(&logSkipEmpty, "skip-empty", false, "Omit blocks with no data")
	rootCmd.AddCommand(cmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	path := args[0]
	var opts []idbkit.Option
	if logBlockLimit > 0 {
		opts = append(opts, idbkit.WithBlockLimit(logBlockLimit))
	}
	if logSkipEmpty {
		opts = append(opts, idbkit.WithSkipEmpty())
	}
	if verbose {
		opts = append(opts, idbkit.WithVerbose())
	}

	report, err := idbkit.Log(path, opts...)
	if err != nil {
		return fmt.Errorf("log failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Checkpoint 0: LSN=%d\n", report.Checkpoints[0].LSN)
	printInfo("Checkpoint 1: LSN=%d\n", report.Checkpoints[1].LSN)
	printInfo("Blocks: %d\n", len(report.Blocks))
	for _, b := range report.Blocks {
		status := "ok"
		if !b.ChecksumOK {
			status = "BAD CHECKSUM"
		}
		printInfo("  block %-8d data=%-5d %s", b.BlockNumber, b.DataLen, status)
		if len(b.RecordTypes) > 0 {
			printInfo(" types=%v", b.RecordTypes)
		}
		printInfo("\n")
	}
	return nil
}
