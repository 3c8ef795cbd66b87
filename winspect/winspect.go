// Package winspect queries the window-compositor registry for per-process
// window metadata: counts, geometry, compositing layer, and capture-sharing
// state. The scoring-relevant classification is implemented as pure functions
// over Window slices so detector heuristics can be tested with synthetic data.
package winspect

import (
	"fmt"
)

// Sharing state values as reported by the compositor. SharingNone marks a
// window excluded from screen-capture APIs.
const (
	SharingNone = 0
)

// Geometry and layer bounds used to classify windows.
const (
	offscreenMin   = -1000
	offscreenMax   = 10000
	minDimension   = 1
	normalLayerMax = 2 // floating/modal/status levels sit above this
)

// Window is one entry from the compositor's global registry.
type Window struct {
	OwnerPID     int32
	OwnerName    string
	Layer        int
	SharingState int
	X            float64
	Y            float64
	Width        float64
	Height       float64
	OnScreen     bool
}

// Properties aggregates the per-pid window signals. All fields are >= 0 and
// computed fresh per call.
type Properties struct {
	WindowCount          int `json:"window_count"`
	SharingStateDisabled int `json:"sharing_state_disabled"`
	ElevatedLayers       int `json:"elevated_layers"`
	SuspiciousPatterns   int `json:"suspicious_patterns"`
}

// Owner is a distinct window-owning process from the registry, used as the
// GUI-application source during basic scans.
type Owner struct {
	PID  int32
	Name string
}

// Inspector is the read-only window-registry capability. A pid with no
// windows yields zero counts; pid <= 0 violates the input contract.
type Inspector interface {
	WindowCount(pid int32) (int, error)
	ScreenEvasionCount(pid int32) (int, error)
	ElevatedLayerCount(pid int32) (int, error)
	Properties(pid int32) (Properties, error)
	Owners() ([]Owner, error)
}

// Registry lists every window the compositor tracks, on-screen and off.
type Registry interface {
	ListWindows() ([]Window, error)
}

// NewInspector builds an Inspector over the host compositor registry.
func NewInspector() Inspector {
	return &registryInspector{registry: hostRegistry{}}
}

// NewInspectorWith builds an Inspector over an arbitrary registry. Used by
// tests and by callers injecting synthetic window data.
func NewInspectorWith(reg Registry) Inspector {
	return &registryInspector{registry: reg}
}

type registryInspector struct {
	registry Registry
}

func (r *registryInspector) list(pid int32) ([]Window, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	return r.registry.ListWindows()
}

func (r *registryInspector) WindowCount(pid int32) (int, error) {
	windows, err := r.list(pid)
	if err != nil {
		return 0, err
	}
	return CountOnScreen(windows, pid), nil
}

func (r *registryInspector) ScreenEvasionCount(pid int32) (int, error) {
	windows, err := r.list(pid)
	if err != nil {
		return 0, err
	}
	return CountScreenEvasion(windows, pid), nil
}

func (r *registryInspector) ElevatedLayerCount(pid int32) (int, error) {
	windows, err := r.list(pid)
	if err != nil {
		return 0, err
	}
	return CountElevatedLayers(windows, pid), nil
}

func (r *registryInspector) Properties(pid int32) (Properties, error) {
	windows, err := r.list(pid)
	if err != nil {
		return Properties{}, err
	}
	return AggregateProperties(windows, pid), nil
}

func (r *registryInspector) Owners() ([]Owner, error) {
	windows, err := r.registry.ListWindows()
	if err != nil {
		return nil, err
	}
	seen := make(map[int32]struct{}, len(windows))
	owners := make([]Owner, 0, len(windows))
	for _, w := range windows {
		if w.OwnerPID <= 0 || w.OwnerName == "" {
			continue
		}
		if _, ok := seen[w.OwnerPID]; ok {
			continue
		}
		seen[w.OwnerPID] = struct{}{}
		owners = append(owners, Owner{PID: w.OwnerPID, Name: w.OwnerName})
	}
	return owners, nil
}

// CountOnScreen counts on-screen windows owned by pid.
func CountOnScreen(windows []Window, pid int32) int {
	count := 0
	for _, w := range windows {
		if w.OwnerPID == pid && w.OnScreen {
			count++
		}
	}
	return count
}

// CountScreenEvasion counts evasion signals for pid across all windows.
// Degenerate geometry and a disabled sharing state increment the counter
// independently, so a single window can contribute twice.
func CountScreenEvasion(windows []Window, pid int32) int {
	count := 0
	for _, w := range windows {
		if w.OwnerPID != pid {
			continue
		}
		if degenerateGeometry(w) {
			count++
		}
		if w.SharingState == SharingNone {
			count++
		}
	}
	return count
}

// CountElevatedLayers counts windows owned by pid composited above the
// normal application layer.
func CountElevatedLayers(windows []Window, pid int32) int {
	count := 0
	for _, w := range windows {
		if w.OwnerPID == pid && w.Layer > normalLayerMax {
			count++
		}
	}
	return count
}

// AggregateProperties combines all per-pid window signals in one pass over
// the registry snapshot.
func AggregateProperties(windows []Window, pid int32) Properties {
	props := Properties{}
	for _, w := range windows {
		if w.OwnerPID != pid {
			continue
		}
		if w.OnScreen {
			props.WindowCount++
		}
		if w.Layer > normalLayerMax {
			props.ElevatedLayers++
		}
		if degenerateGeometry(w) {
			props.SuspiciousPatterns++
		}
		if w.SharingState == SharingNone {
			props.SuspiciousPatterns++
			props.SharingStateDisabled++
		}
	}
	return props
}

func degenerateGeometry(w Window) bool {
	return w.X < offscreenMin || w.Y < offscreenMin ||
		w.X > offscreenMax || w.Y > offscreenMax ||
		w.Width < minDimension || w.Height < minDimension
}
