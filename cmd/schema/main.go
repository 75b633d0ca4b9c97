package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"voxfarer/agent/internal/goals"
	"voxfarer/agent/internal/memory"
)

// The agent persists its spatial memory as a flat JSON snapshot and exposes
// goal summaries to external planners. This tool emits JSON Schema documents
// for both shapes so external consumers can validate what they read.
func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	reflector := jsonschema.Reflector{}

	memorySchema := reflector.Reflect(new(memory.SnapshotDocument))
	memorySchema.Title = "Spatial Memory Snapshot"
	memorySchema.Description = "Flat snapshot of the locations, regions, landmarks, and paths tables."
	if err := writeSchema(filepath.Join(outDir, "memory_snapshot.schema.json"), memorySchema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write memory schema: %v\n", err)
		os.Exit(1)
	}

	goalSchema := reflector.Reflect(new(goals.GoalSummary))
	goalSchema.Title = "Goal Summary"
	goalSchema.Description = "Defaulted goal projection returned by the goal tracker."
	if err := writeSchema(filepath.Join(outDir, "goal_summary.schema.json"), goalSchema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write goal schema: %v\n", err)
		os.Exit(1)
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
