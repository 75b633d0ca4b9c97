package agentcfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the agent daemon configuration, loaded from YAML.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Navigator NavigatorConfig `yaml:"navigator"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WorldConfig identifies the world server connection.
type WorldConfig struct {
	URL     string `yaml:"url"`
	AgentID string `yaml:"agent_id"`
}

// ScannerConfig tunes spatial scanning.
type ScannerConfig struct {
	Radius      int `yaml:"radius"`
	HeightRange int `yaml:"height_range"`
}

// NavigatorConfig tunes navigation execution and monitoring.
type NavigatorConfig struct {
	CheckpointEvery   int     `yaml:"checkpoint_every"`
	ArriveTolerance   float64 `yaml:"arrive_tolerance"`
	MonitorIntervalMS int     `yaml:"monitor_interval_ms"`
	StuckThresholdMS  int     `yaml:"stuck_threshold_ms"`
	NodeBudget        int     `yaml:"node_budget"`
}

// LoggingConfig selects sinks and severity.
type LoggingConfig struct {
	Sinks       []string `yaml:"sinks"`
	JSONPath    string   `yaml:"json_path"`
	MinSeverity string   `yaml:"min_severity"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		World: WorldConfig{
			URL:     "ws://localhost:8080/ws",
			AgentID: "agent",
		},
		Scanner: ScannerConfig{
			Radius:      16,
			HeightRange: 8,
		},
		Navigator: NavigatorConfig{
			CheckpointEvery:   5,
			ArriveTolerance:   2,
			MonitorIntervalMS: 1000,
			StuckThresholdMS:  5000,
			NodeBudget:        4096,
		},
		Logging: LoggingConfig{
			Sinks:       []string{"console"},
			MinSeverity: "info",
		},
	}
}

// Load reads and normalizes a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("agentcfg: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("agentcfg: parse %s: %w", path, err)
	}
	return cfg.Normalized(), nil
}

// Normalized returns a config with defaults applied to any zero fields.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	normalized.World.URL = strings.TrimSpace(normalized.World.URL)
	if normalized.World.URL == "" {
		normalized.World.URL = defaults.World.URL
	}
	normalized.World.AgentID = strings.TrimSpace(normalized.World.AgentID)
	if normalized.World.AgentID == "" {
		normalized.World.AgentID = defaults.World.AgentID
	}
	if normalized.Scanner.Radius <= 0 {
		normalized.Scanner.Radius = defaults.Scanner.Radius
	}
	if normalized.Scanner.HeightRange <= 0 {
		normalized.Scanner.HeightRange = defaults.Scanner.HeightRange
	}
	if normalized.Navigator.CheckpointEvery <= 0 {
		normalized.Navigator.CheckpointEvery = defaults.Navigator.CheckpointEvery
	}
	if normalized.Navigator.ArriveTolerance <= 0 {
		normalized.Navigator.ArriveTolerance = defaults.Navigator.ArriveTolerance
	}
	if normalized.Navigator.MonitorIntervalMS <= 0 {
		normalized.Navigator.MonitorIntervalMS = defaults.Navigator.MonitorIntervalMS
	}
	if normalized.Navigator.StuckThresholdMS <= 0 {
		normalized.Navigator.StuckThresholdMS = defaults.Navigator.StuckThresholdMS
	}
	if normalized.Navigator.NodeBudget <= 0 {
		normalized.Navigator.NodeBudget = defaults.Navigator.NodeBudget
	}
	if len(normalized.Logging.Sinks) == 0 {
		normalized.Logging.Sinks = append([]string(nil), defaults.Logging.Sinks...)
	}
	if strings.TrimSpace(normalized.Logging.MinSeverity) == "" {
		normalized.Logging.MinSeverity = defaults.Logging.MinSeverity
	}
	return normalized
}
