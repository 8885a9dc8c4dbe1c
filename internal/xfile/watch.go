package xfile

import (
	"context"
	"sort"
	"time"

	"github.com/idbkit/idbkit/internal/tablespace"
)

// WatchEvent is one poll's change set against the previous poll.
type WatchEvent struct {
	Poll      int
	Timestamp time.Time
	Changed   []uint64 // page numbers whose fingerprint differs from the prior poll
	Added     []uint64 // page numbers that exist now but didn't in the prior poll
	Removed   []uint64 // page numbers that existed before but don't now
	Err       error    // set when this poll's read failed; Changed/Added/Removed are empty
}

// Watch polls path every interval until ctx is cancelled, sending one
// WatchEvent per poll (after the first, which only establishes the
// baseline and is not itself emitted) on the returned channel. The caller
// closing ctx — e.g. on an interrupt signal — is the clean-exit path; Watch never blocks past the next poll boundary once ctx is done.
func Watch(ctx context.Context, path string, interval time.Duration) <-chan WatchEvent {
	out := make(chan WatchEvent)
	go func() {
		defer close(out)

		prev, _, perr := pollFingerprints(path)
		poll := 0
		if perr != nil {
			select {
			case out <- WatchEvent{Poll: poll, Timestamp: now(), Err: perr}:
			case <-ctx.Done():
				return
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll++
				cur, _, err := pollFingerprints(path)
				if err != nil {
					ev := WatchEvent{Poll: poll, Timestamp: now(), Err: err}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
					continue
				}
				ev := diffFingerprints(poll, prev, cur)
				prev = cur
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// now is a seam so Watch's timestamping doesn't depend directly on the
// wall clock in a way that would complicate testing; production callers
// get real wall-clock time.
var now = time.Now

func pollFingerprints(path string) (map[uint64]uint64, uint32, error) {
	h, err := tablespace.Open(path, tablespace.Options{})
	if err != nil {
		return nil, 0, err
	}
	defer h.Close()
	pages, err := h.ReadAllPages()
	if err != nil {
		return nil, 0, err
	}
	total := uint64(len(pages)) / uint64(h.PageSize)
	fps := make(map[uint64]uint64, total)
	for n := uint64(0); n < total; n++ {
		page := pages[n*uint64(h.PageSize) : (n+1)*uint64(h.PageSize)]
		fps[n] = tablespace.Fingerprint(page)
	}
	return fps, h.PageSize, nil
}

func diffFingerprints(poll int, prev, cur map[uint64]uint64) WatchEvent {
	ev := WatchEvent{Poll: poll, Timestamp: now()}
	for n, fp := range cur {
		prevFP, existed := prev[n]
		if !existed {
			ev.Added = append(ev.Added, n)
			continue
		}
		if prevFP != fp {
			ev.Changed = append(ev.Changed, n)
		}
	}
	for n := range prev {
		if _, stillThere := cur[n]; !stillThere {
			ev.Removed = append(ev.Removed, n)
		}
	}
	for _, s := range [][]uint64{ev.Changed, ev.Added, ev.Removed} {
		sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	}
	return ev
}
