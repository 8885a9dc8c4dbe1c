package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/idbkit/idbkit/pkg/idbkit"
)

var watchInterval string

func init() {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Poll a tablespace file and report page-level changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	cmd.Flags().StringVar(&watchInterval, "interval", "2s", "Poll interval (Go duration syntax)")
	rootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	interval, err := time.ParseDuration(watchInterval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", watchInterval, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for ev := range idbkit.Watch(ctx, path, interval) {
		if jsonOut {
			if err := printJSON(ev); err != nil {
				return err
			}
			continue
		}
		if ev.Err != nil {
			printError("poll %d: %v\n", ev.Poll, ev.Err)
			continue
		}
		printInfo(
			"poll %-4s %s changed=%d added=%d removed=%d\n",
			strconv.Itoa(ev.Poll),
			ev.Timestamp.Format(time.RFC3339),
			len(ev.Changed),
			len(ev.Added),
			len(ev.Removed),
		)
	}
	return nil
}
