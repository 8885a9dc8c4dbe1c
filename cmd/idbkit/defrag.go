package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

func init() {
	cmd := &cobra.Command{
		Use:   "defrag <source> <output>",
		Short: "Renumber and re-chain index pages into a new file",
		Args:  cobra.ExactArgs(2),
		RunE:  runDefrag,
	}
	rootCmd.AddCommand(cmd)
}

func runDefrag(cmd *cobra.Command, args []string) error {
	source, output := args[0], args[1]

	report, err := idbkit.Defrag(source, output)
	if err != nil {
		return fmt.Errorf("defrag failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Pages written: %d\n", report.Written)
	if len(report.Dropped) > 0 {
		printInfo("Pages dropped: %d\n", len(report.Dropped))
		for _, d := range report.Dropped {
			printInfo("  page %-8d %s\n", d.PageNumber, d.Reason)
		}
	}
	return nil
}
