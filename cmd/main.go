package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vigil/config"
	"vigil/detector"
	"vigil/diag"
	"vigil/logger"
	"vigil/monitor"
	"vigil/netmon"
	"vigil/output"
	"vigil/procinfo"
	"vigil/winspect"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	if cfg.AdvancedDetection && !cfg.Pro() {
		logger.Warn("Advanced detection requires the pro plan; it will not run.")
	}
	if cfg.NetworkMonitoring && !cfg.Pro() {
		logger.Warn("Network monitoring requires the pro plan; it will not run.")
	}

	writer, err := output.New(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize output: %v", err)
	}
	defer writer.Close()

	windows := winspect.NewInspector()
	procs := procinfo.NewInspector(windows)

	det := detector.New(detector.Config{
		ForbiddenNames:        cfg.ForbiddenNames,
		ForbiddenPaths:        cfg.ForbiddenPaths,
		ForbiddenHashes:       cfg.ForbiddenHashes,
		AdvancedDetection:     cfg.AdvancedDetection,
		WindowScoreThreshold:  cfg.WindowCountThreshold,
		EvasionScoreThreshold: cfg.ScreenEvasionThreshold,
		MaxHashesPerSecond:    cfg.MaxHashesPerSecond,
	}, procs, windows)

	network := netmon.New(netmon.Config{
		ListTimeout: cfg.ConnectionListTimeout,
		DNSTimeout:  cfg.DNSTimeout,
	})

	mon := monitor.New(monitor.Config{
		BasicInterval:     cfg.BasicInterval,
		AdvancedInterval:  cfg.AdvancedInterval,
		NetworkInterval:   cfg.NetworkInterval,
		ProPlan:           cfg.Pro(),
		AdvancedDetection: cfg.AdvancedDetection,
		NetworkMonitoring: cfg.NetworkMonitoring,
	}, det, det, network, monitor.Callbacks{
		OnForbiddenApp: writer.WriteForbiddenApp,
		OnAdvanced:     writer.WriteAdvanced,
		OnNetwork:      writer.WriteNetwork,
	})

	diagCtx, diagCancel := context.WithCancel(context.Background())
	defer diagCancel()
	watchdog := diag.NewController(diag.Options{
		StallThreshold: cfg.DiagStallThreshold,
		Dir:            cfg.DiagDir,
		GoroutineLeak:  cfg.DiagGoroutineLeak,
		CycleCountFn:   mon.Cycles,
	})
	watchdog.Start(diagCtx)
	defer watchdog.Close()

	mon.Start()
	defer mon.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	handleSignalEvent(sigChan)
}

// handleSignalEvent blocks until an interrupt or termination signal
// arrives. Shutdown itself runs through main's deferred stops.
func handleSignalEvent(sigChan <-chan os.Signal) {
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
}
