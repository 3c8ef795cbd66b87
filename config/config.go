package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"vigil/version"
)

// Plan tiers. Advanced detection and network monitoring only run on PlanPro.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

type Config struct {
	ForbiddenNames         []string          `json:"forbidden_names"`
	ForbiddenPaths         []string          `json:"forbidden_paths"`
	ForbiddenHashes        []string          `json:"forbidden_hashes"`
	Plan                   string            `json:"plan"`
	AdvancedDetection      bool              `json:"advanced_detection"`
	WindowCountThreshold   int               `json:"window_count_threshold"`
	ScreenEvasionThreshold int               `json:"screen_evasion_threshold"`
	NetworkMonitoring      bool              `json:"network_monitoring"`
	BasicInterval          time.Duration     `json:"basic_interval"`
	AdvancedInterval       time.Duration     `json:"advanced_interval"`
	NetworkInterval        time.Duration     `json:"network_interval"`
	ConnectionListTimeout  time.Duration     `json:"connection_list_timeout"`
	DNSTimeout             time.Duration     `json:"dns_timeout"`
	MaxHashesPerSecond     int               `json:"max_hashes_per_second"`
	LogLevel               string            `json:"log_level"`
	OutputFileName         string            `json:"output_file_name"`
	ConfigFile             string            `json:"config_file"`
	DiagStallThreshold     time.Duration     `json:"diag_stall_threshold"`
	DiagDir                string            `json:"diag_dir"`
	DiagGoroutineLeak      bool              `json:"diag_goroutine_leak"`
	OtelEndpoint           string            `json:"otel_endpoint"`
	OtelFromEnv            bool              `json:"otel_from_env"`
	OtelHeaders            map[string]string `json:"otel_headers"`
	OtelServiceName        string            `json:"otel_service_name"`
	OtelTimeout            time.Duration     `json:"otel_timeout"`
	OtelExportPaths        bool              `json:"otel_export_paths"`
}

func LoadConfig() (*Config, error) {
	now := time.Now().UTC()
	timestamp := now.Format("20060102-150405")
	cfg := &Config{
		ForbiddenNames:         []string{},
		ForbiddenPaths:         []string{},
		ForbiddenHashes:        []string{},
		Plan:                   PlanFree,
		AdvancedDetection:      false,
		WindowCountThreshold:   3,
		ScreenEvasionThreshold: 2,
		NetworkMonitoring:      true,
		BasicInterval:          2 * time.Second,
		AdvancedInterval:       30 * time.Second,
		NetworkInterval:        10 * time.Second,
		ConnectionListTimeout:  5 * time.Second,
		DNSTimeout:             2 * time.Second,
		MaxHashesPerSecond:     50,
		LogLevel:               "info",
		OutputFileName:         fmt.Sprintf("vigil-%s.ndjson", timestamp),
		DiagStallThreshold:     0,
		DiagDir:                ".",
		DiagGoroutineLeak:      false,
		OtelEndpoint:           "",
		OtelFromEnv:            false,
		OtelHeaders:            map[string]string{},
		OtelServiceName:        "vigil",
		OtelTimeout:            5 * time.Second,
		OtelExportPaths:        false,
	}

	forbiddenNames := flag.String("forbidden-names", "", "Comma-separated list of forbidden process names (substring match, case-insensitive).")
	forbiddenPaths := flag.String("forbidden-paths", "", "Comma-separated list of forbidden executable paths (exact match).")
	forbiddenHashes := flag.String("forbidden-hashes", "", "Comma-separated list of forbidden executable SHA-256 hashes.")
	plan := flag.String("plan", cfg.Plan, fmt.Sprintf("Plan tier: free or pro (default: %s).", cfg.Plan))
	advanced := flag.Bool("advanced-detection", cfg.AdvancedDetection, fmt.Sprintf("Enable advanced heuristic detection (pro only) (default: %t).", cfg.AdvancedDetection))
	windowThreshold := flag.Int("window-count-threshold", cfg.WindowCountThreshold, fmt.Sprintf("Window-property suspicion score threshold (default: %d).", cfg.WindowCountThreshold))
	evasionThreshold := flag.Int("screen-evasion-threshold", cfg.ScreenEvasionThreshold, fmt.Sprintf("Screen-evasion suspicion score threshold (default: %d).", cfg.ScreenEvasionThreshold))
	netMonitoring := flag.Bool("network-monitoring", cfg.NetworkMonitoring, fmt.Sprintf("Enable outbound connection monitoring (pro only) (default: %t).", cfg.NetworkMonitoring))
	basicInterval := flag.Duration("basic-interval", cfg.BasicInterval, "Interval between basic deny-list scans (default: 2s).")
	advancedInterval := flag.Duration("advanced-interval", cfg.AdvancedInterval, "Interval between advanced heuristic scans (default: 30s).")
	networkInterval := flag.Duration("network-interval", cfg.NetworkInterval, "Interval between network scans (default: 10s).")
	connTimeout := flag.Duration("connection-list-timeout", cfg.ConnectionListTimeout, "Timeout for the external connection-listing utility (default: 5s).")
	dnsTimeout := flag.Duration("dns-timeout", cfg.DNSTimeout, "Timeout for reverse DNS lookups (default: 2s).")
	maxHashes := flag.Int("max-hashes-per-second", cfg.MaxHashesPerSecond, fmt.Sprintf("Maximum executable hash computations per second (default: %d, 0 means unlimited).", cfg.MaxHashesPerSecond))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	output := flag.String("output", cfg.OutputFileName, "Detection event output file name (default: vigil-<timestamp>.ndjson).")
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	diagStallThreshold := flag.Duration(
		"diag-stall-threshold",
		cfg.DiagStallThreshold,
		"If positive, emit diagnostics when scan cycles stall for this duration (default: 0/off).",
	)
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	diagGoroutineLeak := flag.Bool(
		"diag-goroutine-leak",
		cfg.DiagGoroutineLeak,
		"Write goroutine leak profile on shutdown (default: false).",
	)
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: vigil).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include raw executable paths in OTEL payloads (default: false).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("Vigil version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "forbidden-names":
			cfg.ForbiddenNames = parseCommaSeparated(*forbiddenNames)
		case "forbidden-paths":
			cfg.ForbiddenPaths = parseCommaSeparated(*forbiddenPaths)
		case "forbidden-hashes":
			cfg.ForbiddenHashes = parseCommaSeparated(*forbiddenHashes)
		case "plan":
			cfg.Plan = strings.ToLower(strings.TrimSpace(*plan))
		case "advanced-detection":
			cfg.AdvancedDetection = *advanced
		case "window-count-threshold":
			cfg.WindowCountThreshold = *windowThreshold
		case "screen-evasion-threshold":
			cfg.ScreenEvasionThreshold = *evasionThreshold
		case "network-monitoring":
			cfg.NetworkMonitoring = *netMonitoring
		case "basic-interval":
			cfg.BasicInterval = *basicInterval
		case "advanced-interval":
			cfg.AdvancedInterval = *advancedInterval
		case "network-interval":
			cfg.NetworkInterval = *networkInterval
		case "connection-list-timeout":
			cfg.ConnectionListTimeout = *connTimeout
		case "dns-timeout":
			cfg.DNSTimeout = *dnsTimeout
		case "max-hashes-per-second":
			cfg.MaxHashesPerSecond = *maxHashes
		case "log-level":
			cfg.LogLevel = *logLevel
		case "output":
			cfg.OutputFileName = *output
		case "diag-stall-threshold":
			cfg.DiagStallThreshold = *diagStallThreshold
		case "diag-dir":
			cfg.DiagDir = strings.TrimSpace(*diagDir)
		case "diag-goroutine-leak":
			cfg.DiagGoroutineLeak = *diagGoroutineLeak
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("Vigil - Suspicious Process & AI-Endpoint Detection Engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vigil [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  vigil --forbidden-names \"cluely,interview coder\"")
	fmt.Println("  vigil --plan pro --advanced-detection --network-monitoring")
	fmt.Println("  vigil --config vigil.json --otel-endpoint http://localhost:4318")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

// validate normalizes the configuration. Empty deny-lists are accepted: a
// detector with nothing to match is a legitimate disabled state, not an error.
func (cfg *Config) validate() error {
	cfg.Plan = strings.ToLower(strings.TrimSpace(cfg.Plan))
	if cfg.Plan == "" {
		cfg.Plan = PlanFree
	}
	if cfg.Plan != PlanFree && cfg.Plan != PlanPro {
		return fmt.Errorf("unknown plan tier %q: must be free or pro", cfg.Plan)
	}
	if cfg.BasicInterval <= 0 {
		cfg.BasicInterval = 2 * time.Second
	}
	if cfg.AdvancedInterval <= 0 {
		cfg.AdvancedInterval = 30 * time.Second
	}
	if cfg.NetworkInterval <= 0 {
		cfg.NetworkInterval = 10 * time.Second
	}
	if cfg.ConnectionListTimeout <= 0 {
		cfg.ConnectionListTimeout = 5 * time.Second
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = 2 * time.Second
	}
	if cfg.WindowCountThreshold <= 0 {
		cfg.WindowCountThreshold = 3
	}
	if cfg.ScreenEvasionThreshold <= 0 {
		cfg.ScreenEvasionThreshold = 2
	}
	if cfg.MaxHashesPerSecond < 0 {
		cfg.MaxHashesPerSecond = 0
	}
	if strings.TrimSpace(cfg.DiagDir) == "" {
		cfg.DiagDir = "."
	}
	cfg.ForbiddenNames = normalizeLower(cfg.ForbiddenNames)
	cfg.ForbiddenHashes = normalizeLower(cfg.ForbiddenHashes)
	cfg.ForbiddenPaths = trimEmpty(cfg.ForbiddenPaths)
	return nil
}

// Pro reports whether the elevated plan tier is active.
func (cfg *Config) Pro() bool {
	return cfg.Plan == PlanPro
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	items := strings.Split(input, ",")
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

func normalizeLower(items []string) []string {
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		normalized = append(normalized, item)
	}
	return normalized
}

func trimEmpty(items []string) []string {
	trimmed := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		trimmed = append(trimmed, item)
	}
	return trimmed
}
