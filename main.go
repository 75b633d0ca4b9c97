package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxfarer/agent/internal/agentcfg"
	"voxfarer/agent/internal/goals"
	"voxfarer/agent/internal/memory"
	"voxfarer/agent/internal/nav"
	"voxfarer/agent/internal/pathfind"
	"voxfarer/agent/internal/scanner"
	"voxfarer/agent/internal/telemetry"
	"voxfarer/agent/internal/worldq"
	"voxfarer/agent/logging"
	"voxfarer/agent/logging/sinks"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to the YAML config file")
		scanInterval = flag.Duration("scan-interval", 10*time.Second, "cadence of the ambient scan loop")
	)
	flag.Parse()

	cfg := agentcfg.DefaultConfig()
	if *configPath != "" {
		loaded, err := agentcfg.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = cfg.Logging.Sinks
	logCfg.MinimumSeverity = parseSeverity(cfg.Logging.MinSeverity)
	logCfg.Fields = map[string]any{"agent": cfg.World.AgentID}

	router, closeRouter, err := buildRouter(logCfg, cfg.Logging.JSONPath)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeRouter()

	metrics := &logging.Metrics{}

	world, err := worldq.Dial(worldq.ClientConfig{
		URL:     cfg.World.URL,
		AgentID: cfg.World.AgentID,
		Logger:  telemetry.WrapLogger(log.Default()),
	})
	if err != nil {
		log.Fatalf("world connection: %v", err)
	}
	defer world.Close()

	scan := scanner.New(world, scanner.Config{
		Radius:      cfg.Scanner.Radius,
		HeightRange: cfg.Scanner.HeightRange,
		Publisher:   router,
		Metrics:     telemetry.WrapMetrics(metrics),
		AgentID:     cfg.World.AgentID,
	})
	mem := memory.New(memory.Config{
		Metrics: telemetry.WrapMetrics(metrics),
	})
	grid := pathfind.NewGrid(world, world.Move)
	navigator := nav.New(world, grid, mem, scan, nav.Config{
		CheckpointEvery: cfg.Navigator.CheckpointEvery,
		ArriveTolerance: cfg.Navigator.ArriveTolerance,
		MonitorInterval: time.Duration(cfg.Navigator.MonitorIntervalMS) * time.Millisecond,
		StuckThreshold:  time.Duration(cfg.Navigator.StuckThresholdMS) * time.Millisecond,
		NodeBudget:      cfg.Navigator.NodeBudget,
		AgentID:         cfg.World.AgentID,
		Publisher:       router,
		Metrics:         telemetry.WrapMetrics(metrics),
	})
	tracker := goals.NewTracker(goals.Config{
		Publisher: router,
		Metrics:   telemetry.WrapMetrics(metrics),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("agent %s connected to %s", cfg.World.AgentID, cfg.World.URL)
	runLoop(ctx, scan, mem, world, navigator, tracker, *scanInterval)
	log.Printf("agent %s shutting down", cfg.World.AgentID)
}

// runLoop keeps the ambient perception fresh: scan, fold the snapshot into
// the current context, log a status line, repeat until cancelled. Navigation
// and goal mutation happen on other goroutines (or an embedding planner);
// the loop only reads their state.
func runLoop(ctx context.Context, scan *scanner.Scanner, mem *memory.Memory, world worldq.World, navigator *nav.Navigator, tracker *goals.Tracker, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh := func() {
		snapshot := scan.Scan()
		mem.UpdateContext(world, snapshot)
		main := tracker.MainSummary()
		log.Printf("nav=%s goal=%q progress=%d%% | %s",
			navigator.State(), main.Description, main.Progress, mem.SummarizeContext())
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func buildRouter(cfg logging.Config, jsonPath string) (*logging.Router, func(), error) {
	var named []logging.NamedSink
	var jsonFile *os.File
	if cfg.HasSink("console") {
		named = append(named, logging.NamedSink{
			Name: "console",
			Sink: sinks.NewConsoleSink(os.Stdout, cfg.Console),
		})
	}
	if cfg.HasSink("json") && jsonPath != "" {
		file, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		jsonFile = file
		named = append(named, logging.NamedSink{
			Name: "json",
			Sink: sinks.NewJSON(file, cfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, cfg, named)
	if err != nil {
		if jsonFile != nil {
			jsonFile.Close()
		}
		return nil, nil, err
	}
	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := router.Close(shutdownCtx); err != nil {
			log.Printf("logging shutdown: %v", err)
		}
		if jsonFile != nil {
			jsonFile.Close()
		}
	}
	return router, closeFn, nil
}

func parseSeverity(name string) logging.Severity {
	switch name {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}
