package idbkit

import (
	"context"
	"time"

	"github.com/idbkit/idbkit/internal/xfile"
)

// WatchEvent wraps internal/xfile's per-poll change set.
type WatchEvent = xfile.WatchEvent

// Watch polls path every interval, sending a WatchEvent on the returned
// channel for every poll after the first (which only establishes the
// baseline). Cancel ctx — e.g. from an interrupt signal — for the clean
// exit; the channel closes once the watch loop returns.
func Watch(ctx context.Context, path string, interval time.Duration) <-chan WatchEvent {
	return xfile.Watch(ctx, path, interval)
}
