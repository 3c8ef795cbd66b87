// Package detector scores processes against configured deny-lists and
// window-registry heuristics. Scoring is stateless: the caller owns the
// already-alerted bookkeeping between scans.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vigil/hasher"
	"vigil/logger"
	"vigil/procinfo"
	"vigil/winspect"

	"github.com/djherbis/times"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	applicationsDir = "/Applications"
	systemDir       = "/System"

	// Heuristic weights and cutoffs. Empirically chosen; tunable, not
	// load-bearing truths.
	weightHiddenProcess     = 3
	weightSingleNonCapture  = 2
	weightEvasionCombo      = 4
	weightKeywordName       = 5
	weightHighDisabledRatio = 3
	weightSparseElevated    = 2
	weightExcessiveWindows  = 1
	excessiveWindowCount    = 20
	disabledRatioCutoff     = 0.5

	evasionKeywordScore  = 5
	evasionVeryHighCount = 15
	evasionModerateCount = 5

	layerKeywordScore    = 4
	layerVeryHighCount   = 10
	layerModerateCount   = 3
	layerScoreThreshold  = 2
	recentBinaryAge      = 24 * time.Hour
	defaultWindowScore   = 3
	defaultEvasionScore  = 2
)

// Config carries the deny-lists and advanced-detection settings. Lists are
// normalized at construction: names and hashes lowercase, paths exact.
type Config struct {
	ForbiddenNames        []string
	ForbiddenPaths        []string
	ForbiddenHashes       []string
	AdvancedDetection     bool
	WindowScoreThreshold  int
	EvasionScoreThreshold int
	MaxHashesPerSecond    int
}

type Detector struct {
	cfg         Config
	procs       procinfo.Inspector
	windows     winspect.Inspector
	hashFile    func(string) (string, error)
	keywords    *keywordMatcher
	hashLimiter *rate.Limiter
}

func New(cfg Config, procs procinfo.Inspector, windows winspect.Inspector) *Detector {
	cfg.ForbiddenNames = lowerAll(cfg.ForbiddenNames)
	cfg.ForbiddenHashes = lowerAll(cfg.ForbiddenHashes)
	if cfg.WindowScoreThreshold <= 0 {
		cfg.WindowScoreThreshold = defaultWindowScore
	}
	if cfg.EvasionScoreThreshold <= 0 {
		cfg.EvasionScoreThreshold = defaultEvasionScore
	}

	limit := rate.Inf
	if cfg.MaxHashesPerSecond > 0 {
		limit = rate.Limit(cfg.MaxHashesPerSecond)
	}

	return &Detector{
		cfg:         cfg,
		procs:       procs,
		windows:     windows,
		hashFile:    hasher.SHA256File,
		keywords:    newKeywordMatcher(suspiciousKeywords),
		hashLimiter: rate.NewLimiter(limit, maxInt(cfg.MaxHashesPerSecond, 1)),
	}
}

// DetectSuspiciousProcesses runs the basic deny-list scan over the process
// table unioned with the GUI-application registry. Returns all matches plus
// the set of matched pids for the caller's alert bookkeeping.
func (d *Detector) DetectSuspiciousProcesses(ctx context.Context) ([]BasicResult, map[int32]struct{}, error) {
	procs, err := d.procs.ListProcesses(ctx)
	if err != nil {
		return nil, nil, err
	}

	state := &basicScanState{
		matched:   make(map[int32]struct{}),
		seen:      make(map[string]struct{}),
		hashCache: make(map[string]string),
	}

	for _, p := range procs {
		d.checkBasic(ctx, state, p.Name, p.Path, p.PID)
	}

	// Second source: processes the compositor knows as window owners. These
	// can carry display names the process table does not.
	if d.windows != nil {
		owners, err := d.windows.Owners()
		if err != nil {
			logger.Debugf("GUI registry unavailable: %v", err)
		} else {
			for _, owner := range owners {
				d.checkBasic(ctx, state, owner.Name, "", owner.PID)
			}
		}
	}

	return state.results, state.matched, nil
}

type basicScanState struct {
	results   []BasicResult
	matched   map[int32]struct{}
	seen      map[string]struct{}
	hashCache map[string]string
}

func (d *Detector) checkBasic(ctx context.Context, state *basicScanState, name, path string, pid int32) {
	lower := strings.ToLower(name)

	for _, denied := range d.cfg.ForbiddenNames {
		if denied == "" || !strings.Contains(lower, denied) {
			continue
		}
		state.add(BasicResult{
			Type:        DetectName,
			ProcessName: name,
			ProcessPath: path,
			PID:         pid,
			Message:     fmt.Sprintf("[NAME] %s (PID: %d)", name, pid),
		})
		break
	}

	if path != "" {
		for _, denied := range d.cfg.ForbiddenPaths {
			if path != denied {
				continue
			}
			state.add(BasicResult{
				Type:        DetectPath,
				ProcessName: name,
				ProcessPath: path,
				PID:         pid,
				Message:     fmt.Sprintf("[PATH] %s (PID: %d)", path, pid),
			})
			break
		}
	}

	if path != "" && len(d.cfg.ForbiddenHashes) > 0 {
		if sum, ok := d.hashFor(ctx, path, state.hashCache); ok {
			for _, denied := range d.cfg.ForbiddenHashes {
				if sum != denied {
					continue
				}
				state.add(BasicResult{
					Type:        DetectHash,
					ProcessName: name,
					ProcessPath: path,
					PID:         pid,
					Message:     fmt.Sprintf("[HASH] %s (PID: %d)", path, pid),
				})
				break
			}
		}
	}
}

func (s *basicScanState) add(result BasicResult) {
	key := fmt.Sprintf("%d|%s", result.PID, result.Type)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.results = append(s.results, result)
	s.matched[result.PID] = struct{}{}
}

// hashFor computes the deny-list hash for path, memoized per scan cycle and
// rate-limited so a wide deny-list cannot saturate disk I/O. An unreadable
// executable is "no match", not a failure.
func (d *Detector) hashFor(ctx context.Context, path string, cache map[string]string) (string, bool) {
	if sum, ok := cache[path]; ok {
		return sum, sum != ""
	}
	if err := d.hashLimiter.Wait(ctx); err != nil {
		return "", false
	}
	sum, err := d.hashFile(path)
	if err != nil {
		if !errors.Is(err, hasher.ErrNotReadable) {
			logger.Debugf("Hashing %s failed: %v", path, err)
		}
		cache[path] = ""
		return "", false
	}
	sum = strings.ToLower(sum)
	cache[path] = sum
	return sum, true
}

// DetectAdvancedSuspiciousProcesses runs the heuristic scan. Hard-gated on
// the advanced-detection toggle: disabled means an empty result, regardless
// of process table contents.
func (d *Detector) DetectAdvancedSuspiciousProcesses(ctx context.Context) ([]AdvancedResult, error) {
	if !d.cfg.AdvancedDetection {
		return nil, nil
	}

	procs, err := d.procs.ListProcesses(ctx)
	if err != nil {
		return nil, err
	}

	var results []AdvancedResult
	hashCache := make(map[string]string)
	for _, p := range procs {
		if isCoreOSProcess(p.Name) {
			continue
		}
		lower := strings.ToLower(p.Name)
		hits := d.keywords.Hits(lower)

		procResults := d.scanProcess(ctx, p, lower, hits, hashCache)
		if len(procResults) > 0 {
			total := 0
			for _, r := range procResults {
				total += len(r.Evidence) * 2
			}
			if len(hits) > 0 {
				total += 5
			}
			logger.Debugf("Aggregate suspicion score %d for %s (pid %d)", total, p.Name, p.PID)
			results = append(results, procResults...)
		}
	}
	return results, nil
}

// scanProcess decides scan depth by name: suspicious names get the full
// window-registry analysis, benign names only the precomputed-counter check.
// The cheap pre-check bounds compositor queries to a minority of processes.
func (d *Detector) scanProcess(ctx context.Context, p procinfo.Snapshot, lower string, hits []string, hashCache map[string]string) []AdvancedResult {
	var results []AdvancedResult

	for _, denied := range d.cfg.ForbiddenNames {
		if denied == "" || !strings.Contains(lower, denied) {
			continue
		}
		results = append(results, d.definitive(p, DetectName,
			fmt.Sprintf("Forbidden application detected: %s (PID: %d)", p.Name, p.PID),
			fmt.Sprintf("process name contains deny-listed term %q", denied)))
		break
	}

	if p.Path != "" {
		for _, denied := range d.cfg.ForbiddenPaths {
			if p.Path != denied {
				continue
			}
			results = append(results, d.definitive(p, DetectPath,
				fmt.Sprintf("Forbidden executable path: %s (PID: %d)", p.Path, p.PID),
				fmt.Sprintf("executable path matches deny-listed entry %s", denied)))
			break
		}
	}

	if len(hits) == 0 {
		if r := d.analyzeWindowsLight(p); r != nil {
			results = append(results, *r)
		}
		return results
	}

	// Suspicious name: run every check, including the expensive ones.
	if p.Path != "" && len(d.cfg.ForbiddenHashes) > 0 {
		if sum, ok := d.hashFor(ctx, p.Path, hashCache); ok {
			for _, denied := range d.cfg.ForbiddenHashes {
				if sum != denied {
					continue
				}
				results = append(results, d.definitive(p, DetectHash,
					fmt.Sprintf("Forbidden binary hash: %s (PID: %d)", p.Path, p.PID),
					fmt.Sprintf("executable SHA-256 matches deny-listed hash %s", denied)))
				break
			}
		}
	}

	props, err := d.windowProperties(p)
	if err != nil {
		logger.Debugf("Window analysis unavailable for %s (pid %d): %v", p.Name, p.PID, err)
		if r := d.analyzeWindowsLight(p); r != nil {
			results = append(results, *r)
		}
		return results
	}

	if r := d.analyzeWindowsFull(p, props, hits); r != nil {
		results = append(results, *r)
	}
	if r := d.analyzeScreenEvasion(p, props.SuspiciousPatterns, hits); r != nil {
		results = append(results, *r)
	}
	if r := d.analyzeElevatedLayers(p, props.ElevatedLayers, hits); r != nil {
		results = append(results, *r)
	}
	return results
}

func (d *Detector) windowProperties(p procinfo.Snapshot) (winspect.Properties, error) {
	if d.windows == nil {
		return winspect.Properties{}, errors.New("no window inspector")
	}
	return d.windows.Properties(p.PID)
}

func (d *Detector) definitive(p procinfo.Snapshot, detType DetectionType, message, evidence string) AdvancedResult {
	return AdvancedResult{
		ID:          uuid.NewString(),
		Confidence:  ConfidenceDefinitive,
		Type:        detType,
		ProcessName: p.Name,
		ProcessPath: p.Path,
		PID:         p.PID,
		Message:     message,
		Evidence:    []string{evidence},
	}
}

func (d *Detector) suspicious(p procinfo.Snapshot, detType DetectionType, message string, evidence []string) *AdvancedResult {
	return &AdvancedResult{
		ID:          uuid.NewString(),
		Confidence:  ConfidenceSuspicious,
		Type:        detType,
		ProcessName: p.Name,
		ProcessPath: p.Path,
		PID:         p.PID,
		Message:     message,
		Evidence:    evidence,
	}
}

// analyzeWindowsFull scores a fresh window-registry aggregate.
func (d *Detector) analyzeWindowsFull(p procinfo.Snapshot, props winspect.Properties, hits []string) *AdvancedResult {
	score := 0
	var evidence []string

	if props.WindowCount == 0 {
		score += weightHiddenProcess
		evidence = append(evidence, "completely hidden: no visible windows")
	}
	if props.WindowCount == 1 && props.SharingStateDisabled > 0 {
		score += weightSingleNonCapture
		evidence = append(evidence, "single window excluded from screen capture")
	}
	if props.WindowCount <= 3 && props.SharingStateDisabled > 0 && props.ElevatedLayers > 0 {
		score += weightEvasionCombo
		evidence = append(evidence, "classic evasion pattern: few windows, capture-disabled, elevated layer")
	}
	if len(hits) > 0 {
		score += weightKeywordName
		evidence = append(evidence, fmt.Sprintf("name contains suspicious keywords: %s", strings.Join(hits, ", ")))
	}
	if props.WindowCount > 0 && props.WindowCount <= 5 &&
		float64(props.SharingStateDisabled)/float64(props.WindowCount) >= disabledRatioCutoff {
		score += weightHighDisabledRatio
		evidence = append(evidence, fmt.Sprintf("high ratio of capture-disabled windows (%d of %d)", props.SharingStateDisabled, props.WindowCount))
	}
	if props.WindowCount <= 2 && props.ElevatedLayers > 0 {
		score += weightSparseElevated
		evidence = append(evidence, "elevated compositing layer with minimal window presence")
	}
	if props.WindowCount > excessiveWindowCount {
		score += weightExcessiveWindows
		evidence = append(evidence, fmt.Sprintf("excessive window count (%d), possibly automation or scripting", props.WindowCount))
	}

	if score < d.cfg.WindowScoreThreshold || len(evidence) == 0 {
		return nil
	}
	if note := recentBinaryNote(p.Path); note != "" {
		evidence = append(evidence, note)
	}
	return d.suspicious(p, DetectWindowProperty,
		fmt.Sprintf("Suspicious window configuration: %s (PID: %d)", p.Name, p.PID), evidence)
}

// analyzeWindowsLight reuses the counters precomputed during process-table
// enumeration. No extra compositor queries for benign-named processes.
func (d *Detector) analyzeWindowsLight(p procinfo.Snapshot) *AdvancedResult {
	score := 0
	var evidence []string

	// Zero windows alone is every headless daemon on the machine. The
	// hidden-process weight needs a corroborating registry signal.
	hasSignals := p.SuspiciousWindowCount > 0 || p.ScreenEvasionCount > 0 || p.ElevatedLayerCount > 0
	if p.WindowCount == 0 && hasSignals {
		score += weightHiddenProcess
		evidence = append(evidence, "completely hidden: no visible windows")
	}
	if p.SuspiciousWindowCount > 0 {
		score += 2
		evidence = append(evidence, fmt.Sprintf("%d windows flagged suspicious during enumeration", p.SuspiciousWindowCount))
	}
	if p.ScreenEvasionCount > 0 {
		score++
		evidence = append(evidence, fmt.Sprintf("%d screen-evasion signals", p.ScreenEvasionCount))
	}
	if p.ElevatedLayerCount > 0 {
		score++
		evidence = append(evidence, fmt.Sprintf("%d windows on elevated layers", p.ElevatedLayerCount))
	}

	if score < d.cfg.WindowScoreThreshold || len(evidence) == 0 {
		return nil
	}
	return d.suspicious(p, DetectWindowProperty,
		fmt.Sprintf("Suspicious window configuration: %s (PID: %d)", p.Name, p.PID), evidence)
}

func (d *Detector) analyzeScreenEvasion(p procinfo.Snapshot, count int, hits []string) *AdvancedResult {
	if count == 0 {
		return nil
	}
	score := 0
	var evidence []string

	if len(hits) > 0 {
		score = evasionKeywordScore
		evidence = append(evidence, fmt.Sprintf("suspicious name with %d screen-evasion signals", count))
	} else if count >= evasionVeryHighCount {
		score = 3
		evidence = append(evidence, fmt.Sprintf("very high screen-evasion signal count (%d)", count))
	} else if count >= evasionModerateCount && !strings.HasPrefix(p.Path, applicationsDir) {
		score = 2
		evidence = append(evidence, fmt.Sprintf("%d screen-evasion signals from executable outside %s", count, applicationsDir))
	}

	if score < d.cfg.EvasionScoreThreshold || len(evidence) == 0 {
		return nil
	}
	return d.suspicious(p, DetectScreenEvasion,
		fmt.Sprintf("Screen-capture evasion: %s (PID: %d)", p.Name, p.PID), evidence)
}

func (d *Detector) analyzeElevatedLayers(p procinfo.Snapshot, count int, hits []string) *AdvancedResult {
	if count == 0 {
		return nil
	}
	score := 0
	var evidence []string

	if len(hits) > 0 {
		score = layerKeywordScore
		evidence = append(evidence, fmt.Sprintf("suspicious name with %d elevated-layer windows", count))
	} else {
		if count >= layerVeryHighCount {
			score += 2
			evidence = append(evidence, fmt.Sprintf("very high elevated-layer window count (%d)", count))
		}
		if count >= layerModerateCount && !strings.HasPrefix(p.Path, applicationsDir) && !strings.HasPrefix(p.Path, systemDir) {
			score += 2
			evidence = append(evidence, fmt.Sprintf("%d elevated-layer windows from executable outside standard directories", count))
		}
	}

	if score < layerScoreThreshold || len(evidence) == 0 {
		return nil
	}
	return d.suspicious(p, DetectElevatedLayer,
		fmt.Sprintf("Elevated window layers: %s (PID: %d)", p.Name, p.PID), evidence)
}

// recentBinaryNote flags a freshly created executable. Evidence only; the
// contract weights above are unaffected.
func recentBinaryNote(path string) string {
	if path == "" {
		return ""
	}
	ts, err := times.Stat(path)
	if err != nil || !ts.HasBirthTime() {
		return ""
	}
	age := time.Since(ts.BirthTime())
	if age < 0 || age >= recentBinaryAge {
		return ""
	}
	return fmt.Sprintf("executable created recently (%s ago)", age.Round(time.Minute))
}

func lowerAll(items []string) []string {
	lowered := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		lowered = append(lowered, item)
	}
	return lowered
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
