package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/internal/dictionary"
	"github.com/idbkit/idbkit/pkg/idbkit"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sdi <file>",
		Short: "Extract embedded Serialized Dictionary Information records",
		Args:  cobra.ExactArgs(1),
		RunE:  runSDI,
	}
	rootCmd.AddCommand(cmd)
}

func runSDI(cmd *cobra.Command, args []string) error {
	report, err := idbkit.SDI(args[0])
	if err != nil {
		return fmt.Errorf("sdi failed: %w", err)
	}

	if jsonOut {
		return printJSON(report)
	}

	for _, rec := range report.Records {
		printInfo("id=%d type=%s len=%d/%d\n", rec.ID, dictionary.TypeName(rec.Type), rec.CompressedLen, rec.UncompressedLen)
		if verbose {
			printInfo("%s\n", rec.Data)
		}
	}
	return nil
}
