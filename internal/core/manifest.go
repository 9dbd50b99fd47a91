package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/barysiuk/duckport/internal/core/system"
)

const (
	manifestFileName       = "duckport.lock.json"
	currentManifestVersion = 1
)

// ManifestPath returns the full path to the manifest in the given output root.
func ManifestPath(dir string) string {
	return filepath.Join(dir, manifestFileName)
}

// ReadManifest reads and parses the manifest from the given output root.
// Returns nil, nil if the file does not exist.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.LockVersion > currentManifestVersion {
		return nil, fmt.Errorf("manifest version %d is newer than supported version %d", m.LockVersion, currentManifestVersion)
	}
	return &m, nil
}

// WriteManifest writes the manifest atomically with targets sorted by name.
// An empty manifest removes the file instead.
func WriteManifest(dir string, m *Manifest) error {
	path := ManifestPath(dir)
	if len(m.Targets) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing manifest: %w", err)
		}
		return nil
	}

	sort.Slice(m.Targets, func(i, j int) bool {
		return m.Targets[i].Target < m.Targets[j].Target
	})
	m.LockVersion = currentManifestVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output root: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// Entry returns the recorded output of target, if any.
func (m *Manifest) Entry(target string) (*ManifestEntry, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Targets {
		if m.Targets[i].Target == target {
			return &m.Targets[i], true
		}
	}
	return nil, false
}

// Upsert replaces the entry for entry.Target, or appends it.
func (m *Manifest) Upsert(entry ManifestEntry) {
	if e, ok := m.Entry(entry.Target); ok {
		*e = entry
		return
	}
	m.Targets = append(m.Targets, entry)
}

// Remove drops the entry for target and reports whether one existed.
func (m *Manifest) Remove(target string) bool {
	if m == nil {
		return false
	}
	for i, e := range m.Targets {
		if e.Target == target {
			m.Targets = append(m.Targets[:i], m.Targets[i+1:]...)
			return true
		}
	}
	return false
}

// Stale returns what prev recorded that next no longer produces, in the
// shape Clean expects. Returns nil when nothing is stale.
func Stale(prev, next *system.WriteResult) *system.WriteResult {
	if prev == nil {
		return nil
	}
	if next == nil {
		next = &system.WriteResult{}
	}

	out := &system.WriteResult{}
	for _, f := range prev.Files {
		if !slices.Contains(next.Files, f) {
			out.Files = append(out.Files, f)
		}
	}

	if prev.ServerConfig != "" {
		out.ServerConfig = prev.ServerConfig
		for _, s := range prev.Servers {
			if next.ServerConfig != prev.ServerConfig || !slices.Contains(next.Servers, s) {
				out.Servers = append(out.Servers, s)
			}
		}
	}

	if len(out.Files) == 0 && len(out.Servers) == 0 {
		return nil
	}
	return out
}
