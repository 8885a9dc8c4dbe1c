package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	pagesFilterType  string
	pagesShowEmpty   bool
	pagesList        bool
	pagesSinglePage  int64
)

func init() {
	cmd := &cobra.Command{
		Use:   "pages <file>",
		Short: "Decode each page's structure",
		Args:  cobra.ExactArgs(1),
		RunE:  runPages,
	}
	cmd.Flags().StringVar(&pagesFilterType, "type", "", "Restrict to one page-type name (e.g. INDEX)")
	cmd.Flags().BoolVar(&pagesShowEmpty, "show-empty", false, "Include all-zero pages")
	cmd.Flags().BoolVar(&pagesList, "list", false, "Compact listing without per-page index headers")
	cmd.Flags().Int64Var(&pagesSinglePage, "page", -1, "Restrict to one page number")
	rootCmd.AddCommand(cmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	path := args[0]

	var opts []idbkit.Option
	if pagesFilterType != "" {
		opts = append(opts, idbkit.WithFilterType(pagesFilterType))
	}
	if pagesShowEmpty {
		opts = append(opts, idbkit.WithShowEmpty())
	}
	if pagesList {
		opts = append(opts, idbkit.WithListMode())
	}
	if pagesSinglePage >= 0 {
		opts = append(opts, idbkit.WithSinglePage(uint64(pagesSinglePage)))
	}

	report, err := idbkit.Pages(path, opts...)
	if err != nil {
		return fmt.Errorf("pages failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	for _, p := range report.Pages {
		if p.Empty {
			printInfo("page %-8d empty\n", p.PageNumber)
			continue
		}
		printInfo("page %-8d %-10s space=%d\n", p.PageNumber, p.PageType, p.SpaceID)
	}
	return nil
}
