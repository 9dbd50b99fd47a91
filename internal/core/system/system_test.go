package system

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/tailscale/hujson"
)

func TestSystemRegistry(t *testing.T) {
	// All 3 systems should be registered via init().
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 systems, got %d", len(all))
	}

	expected := []string{"cursor", "github-copilot", "opencode"}
	names := make(map[string]bool)
	for _, s := range all {
		names[s.Name()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected system %q not found in registry", name)
		}
	}
}

func TestByName(t *testing.T) {
	s, ok := ByName("cursor")
	if !ok {
		t.Fatal("ByName(cursor) not found")
	}
	if s.Name() != "cursor" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.DisplayName() != "Cursor" {
		t.Errorf("DisplayName() = %q", s.DisplayName())
	}
	if s.Profile() != convert.Cursor {
		t.Error("Profile() should be the Cursor profile")
	}
}

func TestByName_Unknown(t *testing.T) {
	_, ok := ByName("nonexistent")
	if ok {
		t.Error("expected ByName for unknown to return false")
	}
}

func TestByNames(t *testing.T) {
	systems, err := ByNames([]string{"opencode", "cursor", " opencode"})
	if err != nil {
		t.Fatalf("ByNames() error: %v", err)
	}
	if len(systems) != 2 {
		t.Fatalf("expected 2 (deduplicated), got %d", len(systems))
	}
	if got := strings.Join(DisplayNames(systems), ","); got != "OpenCode,Cursor" {
		t.Errorf("DisplayNames = %s", got)
	}
}

func TestByNames_Unknown(t *testing.T) {
	_, err := ByNames([]string{"cursor", "codex"})
	if err == nil {
		t.Fatal("expected error for unknown target name")
	}
	if !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("expected ErrUnknownTarget, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: cursor") {
		t.Errorf("error should list available targets: %v", err)
	}
}

func TestSystemFields(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		rulesDir    string
		commandsDir string
		skillsDir   string
		mcpPath     string
		mcpKey      string
	}{
		{"cursor", "Cursor", ".cursor/rules", ".cursor/commands", ".cursor/skills", ".cursor/mcp.json", "mcpServers"},
		{"opencode", "OpenCode", ".opencode/agents", ".opencode/commands", ".opencode/skills", "opencode.json", "mcp"},
		{"github-copilot", "GitHub Copilot", ".github/agents", ".github/prompts", ".github/skills", ".vscode/mcp.json", "servers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := ByName(tt.name)
			if !ok {
				t.Fatalf("system %q not found", tt.name)
			}
			if s.DisplayName() != tt.displayName {
				t.Errorf("DisplayName() = %q, want %q", s.DisplayName(), tt.displayName)
			}

			type layout interface {
				RulesDir() string
				CommandsDir() string
				SkillsDir() string
				MCPConfigPath() string
				MCPConfigKey() string
			}
			l, ok := s.(layout)
			if !ok {
				t.Fatalf("system %q does not expose its layout", tt.name)
			}
			if l.RulesDir() != tt.rulesDir {
				t.Errorf("RulesDir() = %q, want %q", l.RulesDir(), tt.rulesDir)
			}
			if l.CommandsDir() != tt.commandsDir {
				t.Errorf("CommandsDir() = %q, want %q", l.CommandsDir(), tt.commandsDir)
			}
			if l.SkillsDir() != tt.skillsDir {
				t.Errorf("SkillsDir() = %q, want %q", l.SkillsDir(), tt.skillsDir)
			}
			if l.MCPConfigPath() != tt.mcpPath {
				t.Errorf("MCPConfigPath() = %q, want %q", l.MCPConfigPath(), tt.mcpPath)
			}
			if l.MCPConfigKey() != tt.mcpKey {
				t.Errorf("MCPConfigKey() = %q, want %q", l.MCPConfigKey(), tt.mcpKey)
			}
		})
	}
}

// --- Write ---

func setupSkill(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "skills", "brainstorming")
	files := map[string]string{
		"SKILL.md":            "---\nname: brainstorming\n---\nSteps.\n",
		"references/notes.md": "notes",
		".git/HEAD":           "ref: refs/heads/main",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testBundle(t *testing.T) *convert.Bundle {
	return &convert.Bundle{
		Target:   "cursor",
		Rules:    []convert.Document{{Name: "security-reviewer", Content: "---\ndescription: x\n---\n\nBody"}},
		Commands: []convert.Document{{Name: "plan", Content: "Plan the work."}},
		Skills:   []convert.SkillDir{{Name: "brainstorming", SourceDir: setupSkill(t)}},
		Servers: map[string]convert.ServerDescriptor{
			"zeta":       {URL: "https://mcp.example.com/sse", Headers: map[string]string{"Authorization": "Bearer t"}},
			"playwright": {Command: "npx", Args: []string{"-y", "@anthropic/mcp-playwright"}},
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func readConfig(t *testing.T, path string) map[string]any {
	t.Helper()
	std, err := hujson.Standardize([]byte(readFile(t, path)))
	if err != nil {
		t.Fatalf("standardizing %s: %v", path, err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(std, &cfg); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return cfg
}

func TestWrite_CursorLayout(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("cursor")

	res, err := s.Write(root, testBundle(t))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	rule := readFile(t, filepath.Join(root, ".cursor", "rules", "security-reviewer.mdc"))
	if rule != "---\ndescription: x\n---\n\nBody\n" {
		t.Errorf("rule content = %q", rule)
	}
	if got := readFile(t, filepath.Join(root, ".cursor", "commands", "plan.md")); got != "Plan the work.\n" {
		t.Errorf("command content = %q", got)
	}
	if got := readFile(t, filepath.Join(root, ".cursor", "skills", "brainstorming", "references", "notes.md")); got != "notes" {
		t.Errorf("skill file = %q", got)
	}
	if pathExists(filepath.Join(root, ".cursor", "skills", "brainstorming", ".git")) {
		t.Error(".git should not be copied")
	}

	cfg := readConfig(t, filepath.Join(root, ".cursor", "mcp.json"))
	servers, ok := cfg["mcpServers"].(map[string]any)
	if !ok || len(servers) != 2 {
		t.Fatalf("mcpServers = %v", cfg["mcpServers"])
	}
	pw := servers["playwright"].(map[string]any)
	if pw["command"] != "npx" || pw["type"] != nil || pw["env"] != nil {
		t.Errorf("playwright = %v", pw)
	}
	zeta := servers["zeta"].(map[string]any)
	if zeta["url"] != "https://mcp.example.com/sse" || zeta["command"] != nil {
		t.Errorf("zeta = %v", zeta)
	}

	wantFiles := []string{
		".cursor/commands/plan.md",
		".cursor/rules/security-reviewer.mdc",
		".cursor/skills/brainstorming",
	}
	if strings.Join(res.Files, ",") != strings.Join(wantFiles, ",") {
		t.Errorf("Files = %v, want %v", res.Files, wantFiles)
	}
	if res.ServerConfig != ".cursor/mcp.json" {
		t.Errorf("ServerConfig = %q", res.ServerConfig)
	}
	if strings.Join(res.Servers, ",") != "playwright,zeta" {
		t.Errorf("Servers = %v", res.Servers)
	}
}

func TestWrite_ServersSortedOnFreshConfig(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("cursor")
	b := testBundle(t)
	b.Servers["alpha"] = convert.ServerDescriptor{Command: "a"}

	if _, err := s.Write(root, b); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	content := readFile(t, filepath.Join(root, ".cursor", "mcp.json"))
	a, p, z := strings.Index(content, `"alpha"`), strings.Index(content, `"playwright"`), strings.Index(content, `"zeta"`)
	if !(a < p && p < z) {
		t.Errorf("expected sorted server keys:\n%s", content)
	}
}

func TestWrite_MergePreservesConfig(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, ".cursor", "mcp.json")
	existing := `{
  // user servers
  "mcpServers": {
    "mine": {"command": "my-server"},
    "playwright": {"command": "old"}
  },
  "other": true
}`
	if err := writeFileAtomic(configPath, existing); err != nil {
		t.Fatal(err)
	}

	s, _ := ByName("cursor")
	if _, err := s.Write(root, testBundle(t)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	content := readFile(t, configPath)
	if !strings.Contains(content, "// user servers") {
		t.Errorf("comment lost:\n%s", content)
	}
	cfg := readConfig(t, configPath)
	if cfg["other"] != true {
		t.Errorf("unrelated key lost: %v", cfg)
	}
	servers := cfg["mcpServers"].(map[string]any)
	if _, ok := servers["mine"]; !ok {
		t.Error("existing server removed")
	}
	if servers["playwright"].(map[string]any)["command"] != "npx" {
		t.Errorf("playwright not replaced: %v", servers["playwright"])
	}
}

func TestWrite_NoServersLeavesConfigAlone(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("cursor")
	b := testBundle(t)
	b.Servers = nil

	res, err := s.Write(root, b)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if pathExists(filepath.Join(root, ".cursor", "mcp.json")) {
		t.Error("mcp.json should not be created without servers")
	}
	if res.ServerConfig != "" || len(res.Servers) != 0 {
		t.Errorf("unexpected server record: %+v", res)
	}
}

func TestWrite_OpenCodeServers(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("opencode")
	b := &convert.Bundle{Servers: map[string]convert.ServerDescriptor{
		"local":  {Type: "local", Command: "npx", Args: []string{"-y", "srv"}, Env: map[string]string{"K": "v"}},
		"remote": {Type: "remote", URL: "https://x", Headers: map[string]string{"A": "b"}},
	}}

	if _, err := s.Write(root, b); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	cfg := readConfig(t, filepath.Join(root, "opencode.json"))
	mcp := cfg["mcp"].(map[string]any)

	local := mcp["local"].(map[string]any)
	if local["type"] != "local" {
		t.Errorf("local type = %v", local["type"])
	}
	cmd, _ := local["command"].([]any)
	if len(cmd) != 3 || cmd[0] != "npx" || cmd[2] != "srv" {
		t.Errorf("local command = %v", local["command"])
	}
	if env := local["environment"].(map[string]any); env["K"] != "v" {
		t.Errorf("environment = %v", env)
	}
	if _, ok := local["args"]; ok {
		t.Error("args should be folded into command")
	}

	remote := mcp["remote"].(map[string]any)
	if remote["type"] != "remote" || remote["url"] != "https://x" {
		t.Errorf("remote = %v", remote)
	}
}

func TestWrite_OpenCodePrefersJSONC(t *testing.T) {
	root := t.TempDir()
	if err := writeFileAtomic(filepath.Join(root, "opencode.jsonc"), "{\n  // keep\n  \"theme\": \"dark\",\n}\n"); err != nil {
		t.Fatal(err)
	}
	s, _ := ByName("opencode")
	b := &convert.Bundle{Servers: map[string]convert.ServerDescriptor{"x": {Type: "local", Command: "x"}}}

	res, err := s.Write(root, b)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if res.ServerConfig != "opencode.jsonc" {
		t.Errorf("ServerConfig = %q", res.ServerConfig)
	}
	if pathExists(filepath.Join(root, "opencode.json")) {
		t.Error("opencode.json should not be created when opencode.jsonc exists")
	}
	if !strings.Contains(readFile(t, filepath.Join(root, "opencode.jsonc")), "// keep") {
		t.Error("comment lost")
	}
}

func TestWrite_CopilotLayout(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("github-copilot")
	b := testBundle(t)

	if _, err := s.Write(root, b); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	for _, rel := range []string{
		".github/agents/security-reviewer.agent.md",
		".github/prompts/plan.prompt.md",
		".github/skills/brainstorming/SKILL.md",
		".vscode/mcp.json",
	} {
		if !pathExists(filepath.Join(root, filepath.FromSlash(rel))) {
			t.Errorf("expected %s", rel)
		}
	}
	cfg := readConfig(t, filepath.Join(root, ".vscode", "mcp.json"))
	if _, ok := cfg["servers"].(map[string]any)["playwright"]; !ok {
		t.Errorf("servers = %v", cfg["servers"])
	}
}

func TestWrite_AggregatesErrors(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("cursor")
	b := testBundle(t)
	b.Skills = append(b.Skills,
		convert.SkillDir{Name: "missing-a", SourceDir: filepath.Join(root, "nope-a")},
		convert.SkillDir{Name: "missing-b", SourceDir: filepath.Join(root, "nope-b")},
	)

	res, err := s.Write(root, b)
	if err == nil {
		t.Fatal("expected error for missing skill sources")
	}
	if !strings.Contains(err.Error(), "missing-a") || !strings.Contains(err.Error(), "missing-b") {
		t.Errorf("both failures should be reported: %v", err)
	}
	if len(res.Files) != 3 {
		t.Errorf("successful artifacts should still be recorded: %v", res.Files)
	}
}

func TestWrite_SkillDirReplaced(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, ".cursor", "skills", "brainstorming", "old.md")
	if err := writeFileAtomic(stale, "old"); err != nil {
		t.Fatal(err)
	}

	s, _ := ByName("cursor")
	if _, err := s.Write(root, testBundle(t)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if pathExists(stale) {
		t.Error("stale file in skill dir should be removed")
	}
}

func TestPlan(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("opencode")
	b := testBundle(t)
	b.Skills[0].Name = "Brain Storming"

	arts := s.Plan(root, b)
	if len(arts) != 4 {
		t.Fatalf("expected 4 artifacts, got %d", len(arts))
	}
	want := []struct {
		kind ArtifactKind
		path string
	}{
		{ArtifactRule, ".opencode/agents/security-reviewer.md"},
		{ArtifactCommand, ".opencode/commands/plan.md"},
		{ArtifactSkill, ".opencode/skills/brain-storming"},
		{ArtifactServers, "opencode.json"},
	}
	for i, w := range want {
		if arts[i].Kind != w.kind || arts[i].Path != w.path {
			t.Errorf("artifact[%d] = %s %s, want %s %s", i, arts[i].Kind, arts[i].Path, w.kind, w.path)
		}
	}
	if pathExists(filepath.Join(root, ".opencode")) {
		t.Error("Plan must not write")
	}
}

func TestWrite_CollidingSkillNames(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	for _, name := range []string{"one", "two"} {
		p := filepath.Join(src, name, "SKILL.md")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, _ := ByName("cursor")
	b := &convert.Bundle{
		Target: "cursor",
		Skills: []convert.SkillDir{
			{Name: "My Skill", SourceDir: filepath.Join(src, "one")},
			{Name: "my-skill", SourceDir: filepath.Join(src, "two")},
		},
	}

	res, err := s.Write(root, b)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	want := []string{".cursor/skills/my-skill", ".cursor/skills/my-skill-2"}
	if len(res.Files) != 2 || res.Files[0] != want[0] || res.Files[1] != want[1] {
		t.Errorf("Files = %v, want %v", res.Files, want)
	}
	if got := readFile(t, filepath.Join(root, ".cursor", "skills", "my-skill", "SKILL.md")); got != "one" {
		t.Errorf("my-skill holds %q, want one", got)
	}
	if got := readFile(t, filepath.Join(root, ".cursor", "skills", "my-skill-2", "SKILL.md")); got != "two" {
		t.Errorf("my-skill-2 holds %q, want two", got)
	}
}

// --- Clean ---

func TestClean(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, ".cursor", "mcp.json")
	if err := writeFileAtomic(configPath, `{"mcpServers": {"mine": {"command": "m"}}}`); err != nil {
		t.Fatal(err)
	}

	s, _ := ByName("cursor")
	res, err := s.Write(root, testBundle(t))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if err := s.Clean(root, res); err != nil {
		t.Fatalf("Clean() error: %v", err)
	}

	for _, rel := range []string{".cursor/rules", ".cursor/commands", ".cursor/skills"} {
		if pathExists(filepath.Join(root, filepath.FromSlash(rel))) {
			t.Errorf("%s should be pruned", rel)
		}
	}
	servers := readConfig(t, configPath)["mcpServers"].(map[string]any)
	if len(servers) != 1 || servers["mine"] == nil {
		t.Errorf("only converted servers should be removed: %v", servers)
	}
	if !pathExists(root) {
		t.Error("root must survive")
	}
}

func TestClean_Idempotent(t *testing.T) {
	root := t.TempDir()
	s, _ := ByName("cursor")
	prev := &WriteResult{
		Files:        []string{".cursor/rules/gone.mdc"},
		ServerConfig: ".cursor/mcp.json",
		Servers:      []string{"gone"},
	}
	if err := s.Clean(root, prev); err != nil {
		t.Errorf("Clean() of missing files should succeed: %v", err)
	}
	if err := s.Clean(root, nil); err != nil {
		t.Errorf("Clean(nil) error: %v", err)
	}
}

func TestClean_RefusesOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	victim := filepath.Join(parent, "victim.txt")
	if err := writeFileAtomic(victim, "x"); err != nil {
		t.Fatal(err)
	}

	s, _ := ByName("cursor")
	err := s.Clean(root, &WriteResult{Files: []string{"../victim.txt"}})
	if err == nil {
		t.Error("expected error for path outside root")
	}
	if !pathExists(victim) {
		t.Error("file outside root was removed")
	}
}

// --- Detection ---

func TestDetectInFolder(t *testing.T) {
	root := t.TempDir()
	if len(DetectInFolder(root)) != 0 {
		t.Error("empty folder should detect nothing")
	}
	if err := os.MkdirAll(filepath.Join(root, ".cursor"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "opencode.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Names(DetectInFolder(root))
	if strings.Join(got, ",") != "cursor,opencode" {
		t.Errorf("detected = %v", got)
	}
}
