package winspect

import "testing"

type fakeRegistry struct {
	windows []Window
	err     error
}

func (f fakeRegistry) ListWindows() ([]Window, error) {
	return f.windows, f.err
}

func normalWindow(pid int32) Window {
	return Window{OwnerPID: pid, OwnerName: "App", Layer: 0, SharingState: 1, X: 100, Y: 100, Width: 800, Height: 600, OnScreen: true}
}

func TestCountOnScreen(t *testing.T) {
	windows := []Window{
		normalWindow(10),
		normalWindow(10),
		{OwnerPID: 10, SharingState: 1, Width: 800, Height: 600, OnScreen: false},
		normalWindow(20),
	}
	if got := CountOnScreen(windows, 10); got != 2 {
		t.Fatalf("expected 2 on-screen windows, got %d", got)
	}
	if got := CountOnScreen(windows, 99); got != 0 {
		t.Fatalf("expected 0 for unowned pid, got %d", got)
	}
}

func TestCountScreenEvasion(t *testing.T) {
	tests := []struct {
		name   string
		window Window
		want   int
	}{
		{"normal", normalWindow(5), 0},
		{"offscreen negative", Window{OwnerPID: 5, SharingState: 1, X: -2000, Y: 100, Width: 800, Height: 600}, 1},
		{"offscreen far", Window{OwnerPID: 5, SharingState: 1, X: 10001, Y: 100, Width: 800, Height: 600}, 1},
		{"degenerate size", Window{OwnerPID: 5, SharingState: 1, X: 100, Y: 100, Width: 0, Height: 0}, 1},
		{"sharing disabled", Window{OwnerPID: 5, SharingState: SharingNone, X: 100, Y: 100, Width: 800, Height: 600}, 1},
		// one window can contribute to both sub-conditions
		{"offscreen and sharing disabled", Window{OwnerPID: 5, SharingState: SharingNone, X: -5000, Y: 100, Width: 800, Height: 600}, 2},
	}
	for _, tt := range tests {
		if got := CountScreenEvasion([]Window{tt.window}, 5); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestCountElevatedLayers(t *testing.T) {
	windows := []Window{
		{OwnerPID: 7, SharingState: 1, Layer: 0, X: 0, Y: 0, Width: 100, Height: 100},
		{OwnerPID: 7, SharingState: 1, Layer: 3, X: 0, Y: 0, Width: 100, Height: 100},
		{OwnerPID: 7, SharingState: 1, Layer: 25, X: 0, Y: 0, Width: 100, Height: 100},
		{OwnerPID: 8, SharingState: 1, Layer: 8, X: 0, Y: 0, Width: 100, Height: 100},
	}
	if got := CountElevatedLayers(windows, 7); got != 2 {
		t.Fatalf("expected 2 elevated layers, got %d", got)
	}
}

func TestAggregateProperties(t *testing.T) {
	windows := []Window{
		normalWindow(9),
		{OwnerPID: 9, SharingState: SharingNone, Layer: 3, X: 100, Y: 100, Width: 800, Height: 600, OnScreen: true},
		{OwnerPID: 9, SharingState: 1, Layer: 0, X: -9999, Y: 0, Width: 800, Height: 600},
	}
	props := AggregateProperties(windows, 9)
	if props.WindowCount != 2 {
		t.Errorf("window count: expected 2, got %d", props.WindowCount)
	}
	if props.SharingStateDisabled != 1 {
		t.Errorf("sharing disabled: expected 1, got %d", props.SharingStateDisabled)
	}
	if props.ElevatedLayers != 1 {
		t.Errorf("elevated layers: expected 1, got %d", props.ElevatedLayers)
	}
	if props.SuspiciousPatterns != 2 {
		t.Errorf("suspicious patterns: expected 2, got %d", props.SuspiciousPatterns)
	}
}

func TestInspectorRejectsInvalidPid(t *testing.T) {
	insp := NewInspectorWith(fakeRegistry{})
	if _, err := insp.WindowCount(0); err == nil {
		t.Fatal("expected error for pid 0")
	}
	if _, err := insp.Properties(-1); err == nil {
		t.Fatal("expected error for negative pid")
	}
}

func TestInspectorZeroWindows(t *testing.T) {
	insp := NewInspectorWith(fakeRegistry{})
	count, err := insp.WindowCount(1234)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
	props, err := insp.Properties(1234)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props != (Properties{}) {
		t.Fatalf("expected empty aggregate, got %+v", props)
	}
}

func TestOwnersDeduplicated(t *testing.T) {
	insp := NewInspectorWith(fakeRegistry{windows: []Window{
		{OwnerPID: 10, OwnerName: "Safari"},
		{OwnerPID: 10, OwnerName: "Safari"},
		{OwnerPID: 20, OwnerName: "Notes"},
		{OwnerPID: 0, OwnerName: "orphan"},
		{OwnerPID: 30},
	}})
	owners, err := insp.Owners()
	if err != nil {
		t.Fatalf("owners: %v", err)
	}
	if len(owners) != 2 {
		t.Fatalf("expected 2 owners, got %v", owners)
	}
}
