package netmon

import (
	"testing"
	"time"
)

func TestWindowMergeReportsAdded(t *testing.T) {
	w := NewWindow()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, added := w.Merge(now, []Result{{PID: 1, DestinationDomain: "a.example", Timestamp: now}})
	if len(added) != 1 {
		t.Fatalf("first merge added %d", len(added))
	}
	_, added = w.Merge(now.Add(5*time.Second), []Result{{PID: 1, DestinationDomain: "a.example", Timestamp: now.Add(5 * time.Second)}})
	if len(added) != 0 {
		t.Fatalf("duplicate reported as added: %d", len(added))
	}
}
