package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/barysiuk/duckport/internal/core/frontmatter"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/tailscale/hujson"
)

const (
	manifestPath   = ".claude-plugin/plugin.json"
	mcpConfigPath  = ".mcp.json"
	hooksPath      = "hooks/hooks.json"
	skillFileName  = "SKILL.md"
	defaultAgents  = "agents"
	defaultCmds    = "commands"
	defaultSkills  = "skills"
	commandNSSplit = ":"
)

// manifest mirrors .claude-plugin/plugin.json. Component locations may be a
// single path or a list; hooks and mcpServers may be a path or inline.
type manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Agents      json.RawMessage `json:"agents"`
	Commands    json.RawMessage `json:"commands"`
	Skills      json.RawMessage `json:"skills"`
	Hooks       json.RawMessage `json:"hooks"`
	MCPServers  json.RawMessage `json:"mcpServers"`
}

// Load reads the plugin rooted at root. The manifest is optional; without
// it the plugin is named after its directory. Components are discovered in
// lexical path order so repeated loads yield identical plugins.
func Load(root string) (*Plugin, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving plugin path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("accessing plugin path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugin path must be a directory: %s", absRoot)
	}

	fsys := os.DirFS(absRoot)

	m, err := readManifest(fsys)
	if err != nil {
		return nil, err
	}

	p := &Plugin{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Root:        absRoot,
	}
	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}

	agentDirs, err := componentDirs(defaultAgents, m.Agents)
	if err != nil {
		return nil, fmt.Errorf("manifest agents: %w", err)
	}
	if p.Agents, err = loadAgents(fsys, absRoot, agentDirs); err != nil {
		return nil, err
	}

	cmdDirs, err := componentDirs(defaultCmds, m.Commands)
	if err != nil {
		return nil, fmt.Errorf("manifest commands: %w", err)
	}
	if p.Commands, err = loadCommands(fsys, absRoot, cmdDirs); err != nil {
		return nil, err
	}

	skillDirs, err := componentDirs(defaultSkills, m.Skills)
	if err != nil {
		return nil, fmt.Errorf("manifest skills: %w", err)
	}
	if p.Skills, err = loadSkills(fsys, absRoot, skillDirs); err != nil {
		return nil, err
	}

	if p.Hooks, err = loadHooks(fsys, m.Hooks); err != nil {
		return nil, err
	}
	if p.MCPServers, err = loadMCPServers(fsys, m.MCPServers); err != nil {
		return nil, err
	}

	return p, nil
}

func readManifest(fsys fs.FS) (*manifest, error) {
	data, err := readJSONC(fsys, manifestPath)
	if err != nil {
		return nil, err
	}
	var m manifest
	if data == nil {
		return &m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifestPath, err)
	}
	return &m, nil
}

// readJSONC reads a JSON-with-comments file and returns standard JSON.
// A missing file yields nil, nil.
func readJSONC(fsys fs.FS, name string) ([]byte, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return std, nil
}

// componentDirs returns the default directory plus any custom locations
// from the manifest, deduplicated and relative to the plugin root.
func componentDirs(def string, raw json.RawMessage) ([]string, error) {
	dirs := []string{def}
	if len(raw) == 0 || string(raw) == "null" {
		return dirs, nil
	}

	var custom []string
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		custom = []string{single}
	} else if err := json.Unmarshal(raw, &custom); err != nil {
		return nil, errors.New("expected a path or list of paths")
	}

	seen := map[string]bool{def: true}
	for _, c := range custom {
		rel, err := cleanRel(c)
		if err != nil {
			return nil, err
		}
		if !seen[rel] {
			seen[rel] = true
			dirs = append(dirs, rel)
		}
	}
	return dirs, nil
}

// cleanRel turns "./custom/agents" into "custom/agents" and rejects paths
// that leave the plugin root.
func cleanRel(p string) (string, error) {
	rel := path.Clean(strings.TrimPrefix(filepath.ToSlash(p), "./"))
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", fmt.Errorf("path %q must stay inside the plugin root", p)
	}
	return rel, nil
}

// globFiles returns the files matching pattern under each dir, sorted.
func globFiles(fsys fs.FS, dirs []string, pattern string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, dir := range dirs {
		matches, err := doublestar.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func parseFile(fsys fs.FS, name string) (*frontmatter.Document, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return frontmatter.Parse(raw, name)
}

func loadAgents(fsys fs.FS, root string, dirs []string) ([]Agent, error) {
	files, err := globFiles(fsys, dirs, "**/*.md")
	if err != nil {
		return nil, err
	}

	agents := make([]Agent, 0, len(files))
	for _, f := range files {
		doc, err := parseFile(fsys, f)
		if err != nil {
			return nil, err
		}
		name := doc.String("name")
		if name == "" {
			name = strings.TrimSuffix(path.Base(f), ".md")
		}
		description, descriptionSet := doc.Lookup("description")
		agents = append(agents, Agent{
			Name:           name,
			Description:    description,
			DescriptionSet: descriptionSet,
			Capabilities:   doc.Strings("capabilities"),
			Model:          doc.String("model"),
			Body:           doc.Body,
			SourcePath:     filepath.Join(root, filepath.FromSlash(f)),
		})
	}
	return agents, nil
}

func loadCommands(fsys fs.FS, root string, dirs []string) ([]Command, error) {
	var commands []Command
	for _, dir := range dirs {
		files, err := globFiles(fsys, []string{dir}, "**/*.md")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			doc, err := parseFile(fsys, f)
			if err != nil {
				return nil, err
			}
			name := doc.String("name")
			if name == "" {
				name = commandName(dir, f)
			}
			commands = append(commands, Command{
				Name:         name,
				Description:  doc.String("description"),
				ArgumentHint: doc.String("argument-hint"),
				AllowedTools: doc.Strings("allowed-tools"),
				Model:        doc.String("model"),
				Body:         doc.Body,
				SourcePath:   filepath.Join(root, filepath.FromSlash(f)),
			})
		}
	}
	return commands, nil
}

// commandName derives "workflows:plan" from "commands/workflows/plan.md".
func commandName(dir, file string) string {
	rel := strings.TrimPrefix(file, dir+"/")
	rel = strings.TrimSuffix(rel, ".md")
	return strings.ReplaceAll(rel, "/", commandNSSplit)
}

func loadSkills(fsys fs.FS, root string, dirs []string) ([]Skill, error) {
	files, err := globFiles(fsys, dirs, "*/"+skillFileName)
	if err != nil {
		return nil, err
	}

	skills := make([]Skill, 0, len(files))
	for _, f := range files {
		doc, err := parseFile(fsys, f)
		if err != nil {
			return nil, err
		}
		dir := path.Dir(f)
		name := doc.String("name")
		if name == "" {
			name = path.Base(dir)
		}
		skills = append(skills, Skill{
			Name:        name,
			Description: doc.String("description"),
			SourceDir:   filepath.Join(root, filepath.FromSlash(dir)),
		})
	}
	return skills, nil
}

// loadHooks reads hook definitions from the manifest (inline object or
// path) or from hooks/hooks.json. Both {"hooks": {...}} and a bare event map
// are accepted.
func loadHooks(fsys fs.FS, inline json.RawMessage) (map[string]json.RawMessage, error) {
	data, source, err := inlineOrFile(fsys, inline, hooksPath)
	if err != nil || data == nil {
		return nil, err
	}

	var wrapper struct {
		Hooks map[string]json.RawMessage `json:"hooks"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Hooks != nil {
		return wrapper.Hooks, nil
	}

	hooks := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &hooks); err != nil {
		return nil, fmt.Errorf("parsing hooks in %s: %w", source, err)
	}
	// A wrapper with an explicitly empty or null "hooks" key is still a
	// declared, empty hook set.
	if raw, ok := hooks["hooks"]; ok && len(hooks) == 1 {
		var inner map[string]json.RawMessage
		if json.Unmarshal(raw, &inner) == nil {
			if inner == nil {
				inner = make(map[string]json.RawMessage)
			}
			return inner, nil
		}
	}
	return hooks, nil
}

// loadMCPServers reads servers from the manifest (inline object or path) or
// from .mcp.json. Both {"mcpServers": {...}} and a bare server map are
// accepted.
func loadMCPServers(fsys fs.FS, inline json.RawMessage) (map[string]MCPServer, error) {
	data, source, err := inlineOrFile(fsys, inline, mcpConfigPath)
	if err != nil || data == nil {
		return nil, err
	}

	var wrapper struct {
		MCPServers map[string]MCPServer `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.MCPServers != nil {
		return wrapper.MCPServers, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing MCP servers in %s: %w", source, err)
	}
	if _, ok := probe["mcpServers"]; ok {
		// Declared but null or empty.
		return map[string]MCPServer{}, nil
	}

	servers := make(map[string]MCPServer, len(probe))
	for name, raw := range probe {
		var s MCPServer
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parsing MCP server %q in %s: %w", name, source, err)
		}
		servers[name] = s
	}
	return servers, nil
}

// inlineOrFile resolves a manifest value that is either an inline JSON
// object or a path to a JSON file. With no manifest value the default file
// is read if present.
func inlineOrFile(fsys fs.FS, inline json.RawMessage, defaultPath string) ([]byte, string, error) {
	if len(inline) > 0 && string(inline) != "null" {
		var p string
		if err := json.Unmarshal(inline, &p); err != nil {
			return inline, manifestPath, nil
		}
		rel, err := cleanRel(p)
		if err != nil {
			return nil, "", err
		}
		data, err := readJSONC(fsys, rel)
		if err != nil {
			return nil, "", err
		}
		if data == nil {
			return nil, "", fmt.Errorf("%s referenced by %s not found", rel, manifestPath)
		}
		return data, rel, nil
	}

	data, err := readJSONC(fsys, defaultPath)
	return data, defaultPath, err
}
