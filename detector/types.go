package detector

// Confidence tiers for process detections. Heuristic detections are capped at
// ConfidenceSuspicious; only exact deny-list matches may be definitive. The
// ceiling bounds the severity of a false accusation.
type Confidence string

const (
	ConfidenceDefinitive Confidence = "definitive"
	ConfidenceSuspicious Confidence = "suspicious"
	ConfidenceClean      Confidence = "clean"
)

// DetectionType identifies which signal produced a finding.
type DetectionType string

const (
	DetectName              DetectionType = "name"
	DetectPath              DetectionType = "path"
	DetectHash              DetectionType = "hash"
	DetectWindowProperty    DetectionType = "window_property"
	DetectScreenEvasion     DetectionType = "screen_evasion"
	DetectElevatedLayer     DetectionType = "elevated_layer"
	DetectBehavioralPattern DetectionType = "behavioral_pattern"
)

// BasicResult is a deny-list match from the basic scan.
type BasicResult struct {
	Type        DetectionType `json:"type"`
	ProcessName string        `json:"process_name"`
	ProcessPath string        `json:"process_path,omitempty"`
	PID         int32         `json:"pid"`
	Message     string        `json:"message"`
}

// AdvancedResult is a finding from the advanced scan. Evidence is never
// empty: a result without evidence is not emitted.
type AdvancedResult struct {
	ID          string        `json:"id"`
	Confidence  Confidence    `json:"confidence"`
	Type        DetectionType `json:"type"`
	ProcessName string        `json:"process_name"`
	ProcessPath string        `json:"process_path,omitempty"`
	PID         int32         `json:"pid"`
	Message     string        `json:"message"`
	Evidence    []string      `json:"evidence"`
}
