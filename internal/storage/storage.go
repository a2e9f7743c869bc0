// Package storage persists tracker snapshots as JSON files so a game can
// survive restarting the program mid-session.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cluetrack/internal/tracker"
)

// DefaultPath is where Save writes when no path is given.
const DefaultPath = "cluetrack.json"

// Save writes the snapshot to path, creating parent directories as needed.
func Save(path string, snap tracker.Snapshot) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot previously written by Save.
func Load(path string) (tracker.Snapshot, error) {
	var snap tracker.Snapshot
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("reading snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
