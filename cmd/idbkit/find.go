package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	findSpaceID   uint32
	findHasSpace  bool
	findFirstOnly bool
	findMaxDepth  int
	findAlgorithm string
)

func init() {
	cmd := &cobra.Command{
		Use:   "find <root-dir> <page-number>",
		Short: "Locate a page number across a directory tree of tablespace files",
		Args:  cobra.ExactArgs(2),
		RunE:  runFind,
	}
	cmd.Flags().Uint32Var(&findSpaceID, "space-id", 0, "Restrict to files with this space ID")
	cmd.Flags().BoolVar(&findHasSpace, "has-space-id", false, "Enable the --space-id filter")
	cmd.Flags().BoolVar(&findFirstOnly, "first", false, "Stop after the first match")
	cmd.Flags().IntVar(&findMaxDepth, "max-depth", 0, "Bound directory recursion (0 = unbounded)")
	cmd.Flags().StringVar(&findAlgorithm, "checksum-algo", "", "Restrict to pages validating under this algorithm")
	rootCmd.AddCommand(cmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	root := args[0]
	var pageNumber uint64
	if _, err := fmt.Sscanf(args[1], "%d", &pageNumber); err != nil {
		return fmt.Errorf("invalid page number %q: %w", args[1], err)
	}

	var opts []idbkit.Option
	if findHasSpace {
		opts = append(opts, idbkit.WithSpaceIDFilter(findSpaceID))
	}
	if findFirstOnly {
		opts = append(opts, idbkit.WithFirstMatchOnly())
	}
	if findMaxDepth > 0 {
		opts = append(opts, idbkit.WithMaxDepth(findMaxDepth))
	}
	if findAlgorithm != "" {
		algo, ok := checksum.ParseAlgorithm(findAlgorithm)
		if !ok {
			return fmt.Errorf("unknown checksum algorithm %q", findAlgorithm)
		}
		opts = append(opts, idbkit.WithChecksumFilter(algo))
	}

	report, err := idbkit.Find(root, pageNumber, opts...)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}
	for _, m := range report.Matches {
		printInfo("%s  page=%d space=%d page_size=%d\n", m.Path, m.PageNumber, m.SpaceID, m.PageSize)
	}
	return nil
}
