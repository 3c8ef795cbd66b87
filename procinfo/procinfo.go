// Package procinfo enumerates the OS process table and annotates each entry
// with its window-registry signal counters.
package procinfo

import (
	"context"
	"fmt"

	"vigil/logger"
	"vigil/winspect"

	"github.com/shirou/gopsutil/v4/process"
)

// Snapshot is one live process at scan time. Constructed fresh every cycle
// and never mutated afterwards.
type Snapshot struct {
	PID                   int32  `json:"pid"`
	Name                  string `json:"name"`
	Path                  string `json:"path,omitempty"`
	WindowCount           int    `json:"window_count"`
	SuspiciousWindowCount int    `json:"suspicious_window_count"`
	ScreenEvasionCount    int    `json:"screen_evasion_count"`
	ElevatedLayerCount    int    `json:"elevated_layer_count"`
}

// Inspector lists every process visible to the OS process table. Per-process
// lookup failures are skipped; only a failed table query is an error.
type Inspector interface {
	ListProcesses(ctx context.Context) ([]Snapshot, error)
}

type tableInspector struct {
	windows winspect.Inspector
}

// NewInspector returns an Inspector backed by the OS process table. The
// window inspector fills the per-process signal counters inline during the
// table walk; pass nil to leave them at zero.
func NewInspector(windows winspect.Inspector) Inspector {
	return &tableInspector{windows: windows}
}

func (t *tableInspector) ListProcesses(ctx context.Context) ([]Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		fallback, fbErr := listProcessesFallback()
		if fbErr != nil {
			return nil, fmt.Errorf("process table query failed: %w", err)
		}
		snapshots := make([]Snapshot, 0, len(fallback))
		for _, snap := range fallback {
			t.fillWindowSignals(&snap)
			snapshots = append(snapshots, snap)
		}
		return snapshots, nil
	}

	snapshots := make([]Snapshot, 0, len(procs))
	for _, p := range procs {
		if p.Pid <= 0 {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		snap := Snapshot{PID: p.Pid, Name: name}

		// Path is best-effort; an unreadable executable is not an error.
		if exe, err := p.ExeWithContext(ctx); err == nil {
			snap.Path = exe
		}

		t.fillWindowSignals(&snap)
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (t *tableInspector) fillWindowSignals(snap *Snapshot) {
	if t.windows == nil {
		return
	}
	props, err := t.windows.Properties(snap.PID)
	if err != nil {
		logger.Debugf("Window properties unavailable for pid %d: %v", snap.PID, err)
		return
	}
	snap.WindowCount = props.WindowCount
	snap.ScreenEvasionCount = props.SuspiciousPatterns
	snap.ElevatedLayerCount = props.ElevatedLayers
	if props.SuspiciousPatterns > 0 || props.ElevatedLayers > 0 {
		snap.SuspiciousWindowCount = 1
	}
}
