package netmon

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	retainWindow = 300 * time.Second
	dedupWindow  = 60 * time.Second
)

// Window is the rolling retained set of network detections: entries older
// than five minutes age out, and a (pid, domain) pair seen again within
// sixty seconds is merged into the retained entry instead of duplicated.
// Not safe for concurrent use; the orchestrator serializes access.
type Window struct {
	entries  []Result
	lastSeen map[uint64]time.Time
}

func NewWindow() *Window {
	return &Window{lastSeen: make(map[uint64]time.Time)}
}

// Merge ages out stale entries, folds in the new cycle's results, and
// returns the current retained snapshot plus the entries that were actually
// added this cycle. The snapshot slice is a copy.
func (w *Window) Merge(now time.Time, incoming []Result) (snapshot, added []Result) {
	w.expire(now)

	for _, r := range incoming {
		key := dedupKey(r.PID, r.DestinationDomain)
		if seen, ok := w.lastSeen[key]; ok && now.Sub(seen) < dedupWindow {
			continue
		}
		w.lastSeen[key] = now
		w.entries = append(w.entries, r)
		added = append(added, r)
	}

	snapshot = make([]Result, len(w.entries))
	copy(snapshot, w.entries)
	return snapshot, added
}

// Reset drops all retained state.
func (w *Window) Reset() {
	w.entries = nil
	w.lastSeen = make(map[uint64]time.Time)
}

func (w *Window) expire(now time.Time) {
	cutoff := now.Add(-retainWindow)
	kept := w.entries[:0]
	for _, r := range w.entries {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	w.entries = kept

	for key, seen := range w.lastSeen {
		if !seen.After(cutoff) {
			delete(w.lastSeen, key)
		}
	}
}

func dedupKey(pid int32, domain string) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%d|%s", pid, domain))
}
