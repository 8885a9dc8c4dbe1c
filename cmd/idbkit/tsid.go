package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	tsidLookupID    uint32
	tsidHasLookupID bool
	tsidMaxDepth    int
)

func init() {
	cmd := &cobra.Command{
		Use:   "tsid <root-dir>",
		Short: "Map tablespace files to their space IDs",
		Args:  cobra.ExactArgs(1),
		RunE:  runTsid,
	}
	cmd.Flags().Uint32Var(&tsidLookupID, "space-id", 0, "Restrict output to this space ID")
	cmd.Flags().BoolVar(&tsidHasLookupID, "has-space-id", false, "Enable the --space-id filter")
	cmd.Flags().IntVar(&tsidMaxDepth, "max-depth", 0, "Bound directory recursion (0 = unbounded)")
	rootCmd.AddCommand(cmd)
}

func runTsid(cmd *cobra.Command, args []string) error {
	root := args[0]

	var opts []idbkit.Option
	if tsidHasLookupID {
		opts = append(opts, idbkit.WithLookupID(tsidLookupID))
	}
	if tsidMaxDepth > 0 {
		opts = append(opts, idbkit.WithMaxDepth(tsidMaxDepth))
	}

	report, err := idbkit.Tsid(root, opts...)
	if err != nil {
		return fmt.Errorf("tsid failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	for _, e := range report.Entries {
		printInfo("%-40s space=%-8d page_size=%d\n", e.Path, e.SpaceID, e.PageSize)
	}
	return nil
}
