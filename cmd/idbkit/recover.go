package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var (
	recoverForce      bool
	recoverRebuildTo  string
	recoverSinglePage uint64
	recoverHasPage    bool
	recoverKeyring    string
)

func init() {
	cmd := &cobra.Command{
		Use:   "recover <file>",
		Short: "Classify pages and salvage recoverable records",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecover,
	}
	cmd.Flags().BoolVar(&recoverForce, "force", false, "Extract records from corrupt pages too")
	cmd.Flags().StringVar(&recoverRebuildTo, "rebuild-output", "", "Write a rebuilt file excluding unreadable pages to this path")
	cmd.Flags().Uint64Var(&recoverSinglePage, "page", 0, "Restrict classification to a single page number")
	cmd.Flags().BoolVar(&recoverHasPage, "single-page", false, "Enable the --page restriction")
	cmd.Flags().StringVar(&recoverKeyring, "keyring", "", "Keyring file path for decrypting an encrypted tablespace")
	rootCmd.AddCommand(cmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	path := args[0]

	var opts []idbkit.Option
	if recoverForce {
		opts = append(opts, idbkit.WithForce())
	}
	if recoverRebuildTo != "" {
		opts = append(opts, idbkit.WithRebuildOutputPath(recoverRebuildTo))
	}
	if recoverHasPage {
		opts = append(opts, idbkit.WithSinglePage(recoverSinglePage))
	}
	if recoverKeyring != "" {
		opts = append(opts, idbkit.WithKeyringPath(recoverKeyring))
	}

	report, err := idbkit.Recover(path, opts...)
	if err != nil {
		return fmt.Errorf("recover failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	for class, count := range report.Classification.Counts {
		printInfo("%-12s %d\n", class, count)
	}
	printInfo("Recoverable records: %d\n", len(report.Records))
	if report.RebuiltTo != "" {
		printInfo("Rebuilt file written to: %s\n", report.RebuiltTo)
	}

	if report.Classification.Counts[idbkit.PageClassCorrupt] > 0 ||
		report.Classification.Counts[idbkit.PageClassUnreadable] > 0 {
		return fmt.Errorf("recover found corrupt or unreadable pages")
	}
	return nil
}
