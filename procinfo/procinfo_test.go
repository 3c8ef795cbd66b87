package procinfo

import (
	"context"
	"os"
	"testing"

	"vigil/winspect"
)

type fakeWindows struct {
	props map[int32]winspect.Properties
}

func (f fakeWindows) WindowCount(pid int32) (int, error) {
	return f.props[pid].WindowCount, nil
}

func (f fakeWindows) ScreenEvasionCount(pid int32) (int, error) {
	return f.props[pid].SuspiciousPatterns, nil
}

func (f fakeWindows) ElevatedLayerCount(pid int32) (int, error) {
	return f.props[pid].ElevatedLayers, nil
}

func (f fakeWindows) Properties(pid int32) (winspect.Properties, error) {
	return f.props[pid], nil
}

func (f fakeWindows) Owners() ([]winspect.Owner, error) {
	return nil, nil
}

func TestListProcessesIncludesSelf(t *testing.T) {
	insp := NewInspector(nil)
	snapshots, err := insp.ListProcesses(context.Background())
	if err != nil {
		t.Fatalf("list processes: %v", err)
	}
	if len(snapshots) == 0 {
		t.Fatal("expected at least one process")
	}

	self := int32(os.Getpid())
	found := false
	for _, snap := range snapshots {
		if snap.PID <= 0 {
			t.Fatalf("snapshot with non-positive pid: %+v", snap)
		}
		if snap.Name == "" {
			t.Fatalf("snapshot with empty name: %+v", snap)
		}
		if snap.PID == self {
			found = true
		}
	}
	if !found {
		t.Fatalf("own pid %d missing from process table", self)
	}
}

func TestFillWindowSignals(t *testing.T) {
	windows := fakeWindows{props: map[int32]winspect.Properties{
		42: {WindowCount: 3, SuspiciousPatterns: 2, ElevatedLayers: 1, SharingStateDisabled: 1},
	}}
	insp := &tableInspector{windows: windows}

	snap := Snapshot{PID: 42, Name: "overlay"}
	insp.fillWindowSignals(&snap)
	if snap.WindowCount != 3 || snap.ScreenEvasionCount != 2 || snap.ElevatedLayerCount != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.SuspiciousWindowCount != 1 {
		t.Fatalf("expected suspicious window flag, got %d", snap.SuspiciousWindowCount)
	}

	clean := Snapshot{PID: 7, Name: "calm"}
	insp.fillWindowSignals(&clean)
	if clean.SuspiciousWindowCount != 0 || clean.WindowCount != 0 {
		t.Fatalf("expected zero counters: %+v", clean)
	}
}
