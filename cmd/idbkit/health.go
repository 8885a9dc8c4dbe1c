package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

func init() {
	cmd := &cobra.Command{
		Use:   "health <file>",
		Short: "Report per-index fill factor, fragmentation, and tree depth",
		Args:  cobra.ExactArgs(1),
		RunE:  runHealth,
	}
	rootCmd.AddCommand(cmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	report, err := idbkit.Health(args[0])
	if err != nil {
		return fmt.Errorf("health failed: %w", err)
	}
	return printJSON(report)
}
