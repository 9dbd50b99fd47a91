package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/barysiuk/duckport/internal/core/system"
)

func TestReadManifest_NotExists(t *testing.T) {
	m, err := ReadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest, got %+v", m)
	}
}

func TestReadManifest_Valid(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "lockVersion": 1,
  "targets": [
    {
      "target": "cursor",
      "plugin": "compound-engineering",
      "version": "2.1.0",
      "files": [".cursor/rules/security-sentinel.mdc"],
      "serverConfig": ".cursor/mcp.json",
      "servers": ["context7"]
    }
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := m.Entry("cursor")
	if !ok {
		t.Fatal("expected cursor entry")
	}
	if e.Plugin != "compound-engineering" || e.Version != "2.1.0" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Files) != 1 || e.ServerConfig != ".cursor/mcp.json" || e.Servers[0] != "context7" {
		t.Errorf("write result = %+v", e.WriteResult)
	}
}

func TestReadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadManifest(dir); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestReadManifest_FutureVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), []byte(`{"lockVersion": 9, "targets": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadManifest(dir); err == nil {
		t.Fatal("expected error for newer manifest version")
	}
}

func TestWriteManifest_SortsTargets(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{}
	m.Upsert(ManifestEntry{Target: "opencode", Plugin: "p"})
	m.Upsert(ManifestEntry{Target: "cursor", Plugin: "p"})

	if err := WriteManifest(dir, m); err != nil {
		t.Fatalf("WriteManifest() error: %v", err)
	}

	data, err := os.ReadFile(ManifestPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	var raw struct {
		LockVersion int `json:"lockVersion"`
		Targets     []struct {
			Target string   `json:"target"`
			Files  []string `json:"files"`
		} `json:"targets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw.LockVersion != currentManifestVersion {
		t.Errorf("lockVersion = %d", raw.LockVersion)
	}
	if raw.Targets[0].Target != "cursor" || raw.Targets[1].Target != "opencode" {
		t.Errorf("targets not sorted: %+v", raw.Targets)
	}
	if data[len(data)-1] != '\n' {
		t.Error("expected trailing newline")
	}
	if _, err := os.Stat(ManifestPath(dir) + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestWriteManifest_EmptyRemovesFile(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Targets: []ManifestEntry{{Target: "cursor"}}}
	if err := WriteManifest(dir, m); err != nil {
		t.Fatal(err)
	}
	m.Remove("cursor")
	if err := WriteManifest(dir, m); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ManifestPath(dir)); !os.IsNotExist(err) {
		t.Error("expected manifest to be removed")
	}
}

func TestManifest_UpsertAndRemove(t *testing.T) {
	m := &Manifest{}
	m.Upsert(ManifestEntry{Target: "cursor", Version: "1"})
	m.Upsert(ManifestEntry{Target: "cursor", Version: "2"})

	if len(m.Targets) != 1 || m.Targets[0].Version != "2" {
		t.Errorf("targets = %+v", m.Targets)
	}
	if !m.Remove("cursor") {
		t.Error("Remove() should report an existing entry")
	}
	if m.Remove("cursor") {
		t.Error("Remove() should report a missing entry")
	}

	var nilManifest *Manifest
	if _, ok := nilManifest.Entry("cursor"); ok {
		t.Error("nil manifest has no entries")
	}
}

func TestStale(t *testing.T) {
	prev := &system.WriteResult{
		Files:        []string{".cursor/rules/a.mdc", ".cursor/rules/b.mdc", ".cursor/skills/s"},
		ServerConfig: ".cursor/mcp.json",
		Servers:      []string{"one", "two"},
	}
	next := &system.WriteResult{
		Files:        []string{".cursor/rules/a.mdc", ".cursor/skills/s"},
		ServerConfig: ".cursor/mcp.json",
		Servers:      []string{"one"},
	}

	got := Stale(prev, next)
	if got == nil {
		t.Fatal("expected stale output")
	}
	if len(got.Files) != 1 || got.Files[0] != ".cursor/rules/b.mdc" {
		t.Errorf("stale files = %v", got.Files)
	}
	if got.ServerConfig != ".cursor/mcp.json" || len(got.Servers) != 1 || got.Servers[0] != "two" {
		t.Errorf("stale servers = %s %v", got.ServerConfig, got.Servers)
	}
}

func TestStale_Nothing(t *testing.T) {
	res := &system.WriteResult{Files: []string{"x"}}
	if got := Stale(res, res); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if got := Stale(nil, res); got != nil {
		t.Errorf("expected nil for no previous run, got %+v", got)
	}
}

func TestStale_ServerConfigMoved(t *testing.T) {
	prev := &system.WriteResult{ServerConfig: "opencode.json", Servers: []string{"db"}}
	next := &system.WriteResult{ServerConfig: "opencode.jsonc", Servers: []string{"db"}}

	got := Stale(prev, next)
	if got == nil || got.ServerConfig != "opencode.json" || len(got.Servers) != 1 {
		t.Errorf("stale = %+v", got)
	}
}
