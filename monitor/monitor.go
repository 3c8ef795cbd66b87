// Package monitor owns scan cadence and published state. Scans execute on
// background goroutines; only the publish step touches the observable
// snapshots, under lock, and only while monitoring is active.
package monitor

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"vigil/detector"
	"vigil/logger"
	"vigil/netmon"
)

// BasicScanner runs the deny-list scan.
type BasicScanner interface {
	DetectSuspiciousProcesses(ctx context.Context) ([]detector.BasicResult, map[int32]struct{}, error)
}

// AdvancedScanner runs the heuristic scan.
type AdvancedScanner interface {
	DetectAdvancedSuspiciousProcesses(ctx context.Context) ([]detector.AdvancedResult, error)
}

// NetworkScanner produces one classified connection snapshot per call.
type NetworkScanner interface {
	CheckConnections(ctx context.Context) ([]netmon.Result, error)
}

// Config is the orchestration cadence and feature gating. The pro gates are
// evaluated once at Start, not re-checked mid-session.
type Config struct {
	BasicInterval     time.Duration
	AdvancedInterval  time.Duration
	NetworkInterval   time.Duration
	ProPlan           bool
	AdvancedDetection bool
	NetworkMonitoring bool
}

// Callbacks receive newly published detections. All hooks are optional and
// are invoked from scan goroutines; implementations must be safe for that.
type Callbacks struct {
	OnForbiddenApp func(detector.BasicResult)
	OnAdvanced     func(detector.AdvancedResult)
	OnNetwork      func(netmon.Result)
}

type Monitor struct {
	cfg       Config
	basic     BasicScanner
	advanced  AdvancedScanner
	network   NetworkScanner
	callbacks Callbacks
	now       func() time.Time

	cycles atomic.Uint64

	mu             sync.Mutex
	active         bool
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	alerted        map[int32]struct{}
	forbiddenApps  []string
	advancedState  []detector.AdvancedResult
	networkWindow  *netmon.Window
	networkResults []netmon.Result
}

func New(cfg Config, basic BasicScanner, advanced AdvancedScanner, network NetworkScanner, callbacks Callbacks) *Monitor {
	if cfg.BasicInterval <= 0 {
		cfg.BasicInterval = 2 * time.Second
	}
	if cfg.AdvancedInterval <= 0 {
		cfg.AdvancedInterval = 30 * time.Second
	}
	if cfg.NetworkInterval <= 0 {
		cfg.NetworkInterval = 10 * time.Second
	}
	return &Monitor{
		cfg:           cfg,
		basic:         basic,
		advanced:      advanced,
		network:       network,
		callbacks:     callbacks,
		now:           time.Now,
		alerted:       make(map[int32]struct{}),
		networkWindow: netmon.NewWindow(),
	}
}

// Start begins the scan loops. Calling Start while active is a no-op. The
// pro feature gates are decided here, once, for the session.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return
	}
	m.active = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	runAdvanced := m.cfg.ProPlan && m.cfg.AdvancedDetection && m.advanced != nil
	runNetwork := m.cfg.ProPlan && m.cfg.NetworkMonitoring && m.network != nil

	logger.Infof("Monitoring started (basic %s, advanced %v, network %v)",
		m.cfg.BasicInterval, runAdvanced, runNetwork)

	m.wg.Add(1)
	go m.loop(ctx, m.cfg.BasicInterval, m.basicCycle)
	if runAdvanced {
		m.wg.Add(1)
		go m.loop(ctx, m.cfg.AdvancedInterval, m.advancedCycle)
	}
	if runNetwork {
		m.wg.Add(1)
		go m.loop(ctx, m.cfg.NetworkInterval, m.networkCycle)
	}
}

// Stop cancels all timers and clears published state. An in-flight scan is
// allowed to finish; its publish is dropped by the active check. Calling
// Stop while stopped is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	cancel := m.cancel
	m.cancel = nil
	m.alerted = make(map[int32]struct{})
	m.forbiddenApps = nil
	m.advancedState = nil
	m.networkResults = nil
	m.networkWindow.Reset()
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	logger.Info("Monitoring stopped")
}

// Cycles counts completed basic scan cycles. The stall watchdog probes it.
func (m *Monitor) Cycles() uint64 {
	return m.cycles.Load()
}

// ForbiddenApps returns the current deduplicated forbidden-app match list.
func (m *Monitor) ForbiddenApps() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.forbiddenApps))
	copy(out, m.forbiddenApps)
	return out
}

// AdvancedResults returns the last advanced scan's findings.
func (m *Monitor) AdvancedResults() []detector.AdvancedResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]detector.AdvancedResult, len(m.advancedState))
	copy(out, m.advancedState)
	return out
}

// NetworkResults returns the retained network detection window.
func (m *Monitor) NetworkResults() []netmon.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]netmon.Result, len(m.networkResults))
	copy(out, m.networkResults)
	return out
}

// loop fires the cycle immediately, then on every tick until cancellation.
func (m *Monitor) loop(ctx context.Context, interval time.Duration, cycle func(ctx context.Context)) {
	defer m.wg.Done()

	cycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle(ctx)
		}
	}
}

func (m *Monitor) basicCycle(ctx context.Context) {
	results, matched, err := m.basic.DetectSuspiciousProcesses(ctx)
	if err != nil {
		logger.Warnf("Basic scan cycle failed: %v", err)
		return
	}

	// set union by message string, stable order for consumers
	apps := make(map[string]struct{}, len(results))
	for _, r := range results {
		apps[r.Message] = struct{}{}
	}
	list := make([]string, 0, len(apps))
	for msg := range apps {
		list = append(list, msg)
	}
	sort.Strings(list)

	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.forbiddenApps = list
	var fresh []detector.BasicResult
	for _, r := range results {
		if _, seen := m.alerted[r.PID]; seen {
			continue
		}
		fresh = append(fresh, r)
	}
	for pid := range matched {
		m.alerted[pid] = struct{}{}
	}
	m.mu.Unlock()

	m.cycles.Add(1)

	if m.callbacks.OnForbiddenApp != nil {
		for _, r := range fresh {
			logger.Warnf("Forbidden application detected: %s", r.Message)
			m.callbacks.OnForbiddenApp(r)
		}
	}
}

func (m *Monitor) advancedCycle(ctx context.Context) {
	results, err := m.advanced.DetectAdvancedSuspiciousProcesses(ctx)
	if err != nil {
		logger.Warnf("Advanced scan cycle failed: %v", err)
		return
	}

	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.advancedState = results
	m.mu.Unlock()

	if m.callbacks.OnAdvanced != nil {
		for _, r := range results {
			m.callbacks.OnAdvanced(r)
		}
	}
}

func (m *Monitor) networkCycle(ctx context.Context) {
	results, err := m.network.CheckConnections(ctx)
	if err != nil {
		logger.Warnf("Network scan cycle failed: %v", err)
		return
	}

	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	snapshot, added := m.networkWindow.Merge(m.now(), results)
	m.networkResults = snapshot
	m.mu.Unlock()

	if m.callbacks.OnNetwork != nil {
		for _, r := range added {
			m.callbacks.OnNetwork(r)
		}
	}
}
