package memory

import (
	"encoding/json"
	"fmt"
)

// SnapshotDocument is the persisted snapshot shape: the four in-memory
// tables verbatim. There is no schema migration layer; the wire format is
// the table shape.
type SnapshotDocument struct {
	Locations map[string]Location   `json:"locations"`
	Regions   map[string]Region     `json:"regions"`
	Landmarks map[string]Landmark   `json:"landmarks"`
	Paths     map[string]PathRecord `json:"paths"`
}

// SnapshotJSON serializes the four SnapshotDocument. The transient context is not
// persisted.
func (m *Memory) SnapshotJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("memory: nil receiver")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(SnapshotDocument{
		Locations: m.locations,
		Regions:   m.regions,
		Landmarks: m.landmarks,
		Paths:     m.paths,
	})
}

// RestoreJSON replaces the four SnapshotDocument from a prior snapshot. Only presence
// is checked: absent SnapshotDocument leave the existing table untouched. On a decode
// error the in-memory SnapshotDocument are left unchanged.
func (m *Memory) RestoreJSON(data []byte) error {
	if m == nil {
		return fmt.Errorf("memory: nil receiver")
	}
	var decoded SnapshotDocument
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("memory: decode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if decoded.Locations != nil {
		m.locations = decoded.Locations
	}
	if decoded.Regions != nil {
		m.regions = decoded.Regions
	}
	if decoded.Landmarks != nil {
		m.landmarks = decoded.Landmarks
	}
	if decoded.Paths != nil {
		m.paths = decoded.Paths
	}
	return nil
}
