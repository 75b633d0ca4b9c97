package agentcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	contents := `
world:
  url: ws://worldhost:9000/ws
  agent_id: miner-1
scanner:
  radius: 24
navigator:
  checkpoint_every: 3
  stuck_threshold_ms: 8000
logging:
  sinks: [console, json]
  json_path: /tmp/agent.log
  min_severity: debug
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.World.URL != "ws://worldhost:9000/ws" || cfg.World.AgentID != "miner-1" {
		t.Fatalf("unexpected world config: %+v", cfg.World)
	}
	if cfg.Scanner.Radius != 24 {
		t.Fatalf("expected radius override, got %d", cfg.Scanner.Radius)
	}
	if cfg.Scanner.HeightRange != 8 {
		t.Fatalf("expected default height range, got %d", cfg.Scanner.HeightRange)
	}
	if cfg.Navigator.CheckpointEvery != 3 || cfg.Navigator.StuckThresholdMS != 8000 {
		t.Fatalf("unexpected navigator config: %+v", cfg.Navigator)
	}
	if cfg.Navigator.ArriveTolerance != 2 {
		t.Fatalf("expected default arrive tolerance, got %v", cfg.Navigator.ArriveTolerance)
	}
	if len(cfg.Logging.Sinks) != 2 || cfg.Logging.MinSeverity != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("world: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNormalizedFillsZeroFields(t *testing.T) {
	cfg := Config{}.Normalized()
	defaults := DefaultConfig()

	if cfg.World.URL != defaults.World.URL {
		t.Fatalf("expected default url, got %q", cfg.World.URL)
	}
	if cfg.Navigator != defaults.Navigator {
		t.Fatalf("expected default navigator config, got %+v", cfg.Navigator)
	}
	if len(cfg.Logging.Sinks) != 1 || cfg.Logging.Sinks[0] != "console" {
		t.Fatalf("expected default sinks, got %v", cfg.Logging.Sinks)
	}
}

func TestNormalizedTrimsWhitespace(t *testing.T) {
	cfg := Config{}
	cfg.World.URL = "  ws://host/ws  "
	cfg.World.AgentID = "   "
	normalized := cfg.Normalized()

	if normalized.World.URL != "ws://host/ws" {
		t.Fatalf("expected trimmed url, got %q", normalized.World.URL)
	}
	if normalized.World.AgentID != DefaultConfig().World.AgentID {
		t.Fatalf("expected blank agent id replaced, got %q", normalized.World.AgentID)
	}
}
