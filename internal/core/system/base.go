package system

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/barysiuk/duckport/internal/core/naming"
	"github.com/barysiuk/duckport/internal/core/plugin"
	"github.com/hashicorp/go-multierror"
	"github.com/tailscale/hujson"
)

// ArtifactKind classifies a planned output.
type ArtifactKind string

const (
	ArtifactRule    ArtifactKind = "rule"
	ArtifactCommand ArtifactKind = "command"
	ArtifactSkill   ArtifactKind = "skill"
	ArtifactServers ArtifactKind = "servers"
)

// Artifact is one output a bundle produces. Path is relative to the output
// root and uses forward slashes.
type Artifact struct {
	Kind      ArtifactKind
	Name      string
	Path      string
	Content   string   // rules and commands
	SourceDir string   // skills
	Servers   []string // server config: entry names, sorted
}

// WriteResult records what a Write produced so that a later run can remove
// it again. Files holds root-relative document paths and skill directories.
type WriteResult struct {
	Files        []string `json:"files"`
	ServerConfig string   `json:"serverConfig,omitempty"`
	Servers      []string `json:"servers,omitempty"`
}

// serverRenderer turns a descriptor into the JSON value stored in the
// target's server config.
type serverRenderer func(convert.ServerDescriptor) any

// BaseSystem provides the layout-driven writer shared by all targets.
// Individual systems embed this and set their own layout.
type BaseSystem struct {
	profile       *convert.Profile
	configSignals []string // project files indicating active use

	rulesDir    string
	ruleExt     string
	commandsDir string
	commandExt  string
	skillsDir   string

	// MCP config
	mcpConfigPath    string // project-relative MCP config file
	mcpConfigPathAlt string // alternative config path checked first
	mcpConfigKey     string // JSON key in config (e.g., "mcpServers")
	mcpConfigFormat  string // "jsonc" or "" (strict JSON)
	renderServer     serverRenderer
}

func (b *BaseSystem) Name() string               { return b.profile.Name }
func (b *BaseSystem) DisplayName() string        { return b.profile.DisplayName }
func (b *BaseSystem) Profile() *convert.Profile  { return b.profile }
func (b *BaseSystem) DetectionSignals() []string { return b.configSignals }
func (b *BaseSystem) MCPConfigKey() string       { return b.mcpConfigKey }
func (b *BaseSystem) SkillsDir() string          { return b.skillsDir }
func (b *BaseSystem) RulesDir() string           { return b.rulesDir }
func (b *BaseSystem) CommandsDir() string        { return b.commandsDir }
func (b *BaseSystem) MCPConfigPath() string      { return b.mcpConfigPath }
func (b *BaseSystem) MCPConfigPathAlt() string   { return b.mcpConfigPathAlt }

// Convert builds the bundle for this target.
func (b *BaseSystem) Convert(p *plugin.Plugin, opts convert.Options) *convert.Bundle {
	return convert.Convert(p, b.profile, opts)
}

func (b *BaseSystem) IsActiveInFolder(folderPath string) bool {
	for _, sig := range b.configSignals {
		if pathExists(filepath.Join(folderPath, sig)) {
			return true
		}
	}
	return false
}

// Plan lists the artifacts Write would produce, without touching disk
// beyond checking which server config file already exists.
func (b *BaseSystem) Plan(root string, bundle *convert.Bundle) []Artifact {
	var out []Artifact
	for _, d := range bundle.Rules {
		out = append(out, Artifact{
			Kind:    ArtifactRule,
			Name:    d.Name,
			Path:    joinRel(b.rulesDir, d.Name+b.ruleExt),
			Content: d.Content,
		})
	}
	for _, d := range bundle.Commands {
		out = append(out, Artifact{
			Kind:    ArtifactCommand,
			Name:    d.Name,
			Path:    joinRel(b.commandsDir, d.Name+b.commandExt),
			Content: d.Content,
		})
	}
	dirs := naming.NewSet()
	for _, s := range bundle.Skills {
		dir := s.Dir
		if dir == "" {
			dir = naming.Normalize(s.Name)
		}
		dir = dirs.Unique(dir)
		out = append(out, Artifact{
			Kind:      ArtifactSkill,
			Name:      s.Name,
			Path:      joinRel(b.skillsDir, dir),
			SourceDir: s.SourceDir,
		})
	}
	if bundle.Servers != nil && b.mcpConfigPath != "" {
		out = append(out, Artifact{
			Kind:    ArtifactServers,
			Path:    b.ResolveMCPConfigPathRel(root),
			Servers: sortedKeys(bundle.Servers),
		})
	}
	return out
}

// Write lays the bundle out under root. Every artifact is attempted; the
// failures are returned together.
func (b *BaseSystem) Write(root string, bundle *convert.Bundle) (*WriteResult, error) {
	res := &WriteResult{}
	var result *multierror.Error

	for _, a := range b.Plan(root, bundle) {
		abs := filepath.Join(root, filepath.FromSlash(a.Path))
		switch a.Kind {
		case ArtifactRule, ArtifactCommand:
			if err := writeFileAtomic(abs, withTrailingNewline(a.Content)); err != nil {
				result = multierror.Append(result, fmt.Errorf("writing %s %s: %w", a.Kind, a.Name, err))
				continue
			}
			res.Files = append(res.Files, a.Path)
		case ArtifactSkill:
			if err := replaceDirectory(a.SourceDir, abs); err != nil {
				result = multierror.Append(result, fmt.Errorf("copying skill %s: %w", a.Name, err))
				continue
			}
			res.Files = append(res.Files, a.Path)
		case ArtifactServers:
			if err := b.mergeServers(abs, bundle.Servers); err != nil {
				result = multierror.Append(result, fmt.Errorf("writing MCP config %s: %w", a.Path, err))
				continue
			}
			res.ServerConfig = a.Path
			res.Servers = a.Servers
		}
	}

	sort.Strings(res.Files)
	return res, result.ErrorOrNil()
}

// Clean removes everything a previous Write recorded. Missing files are not
// an error.
func (b *BaseSystem) Clean(root string, prev *WriteResult) error {
	if prev == nil {
		return nil
	}
	var result *multierror.Error

	for _, rel := range prev.Files {
		if err := removeRecorded(root, rel); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if prev.ServerConfig != "" && len(prev.Servers) > 0 {
		if err := b.removeServers(filepath.Join(root, filepath.FromSlash(prev.ServerConfig)), prev.Servers); err != nil {
			result = multierror.Append(result, fmt.Errorf("cleaning MCP config %s: %w", prev.ServerConfig, err))
		}
	}
	return result.ErrorOrNil()
}

// removeRecorded deletes one recorded path and prunes the directories left
// empty above it, stopping at root.
func removeRecorded(root, rel string) error {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if !isWithin(root, abs) {
		return fmt.Errorf("refusing to remove %s: outside output root", rel)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	for dir := filepath.Dir(abs); isWithin(root, dir) && dir != filepath.Clean(root); dir = filepath.Dir(dir) {
		if !cleanupEmptyDir(dir) {
			break
		}
	}
	return nil
}

// --- MCP config ---

// mergeServers patches each server into the config file, preserving other
// keys and comments. Entries are patched in sorted name order.
func (b *BaseSystem) mergeServers(configPath string, servers map[string]convert.ServerDescriptor) error {
	content, err := readConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}

	root, err := parseJSONC(content)
	if err != nil {
		return err
	}

	for _, name := range sortedKeys(servers) {
		value, err := json.Marshal(b.render(servers[name]))
		if err != nil {
			return fmt.Errorf("encoding server %q: %w", name, err)
		}
		entryPtr := "/" + jsonPointerEscape(b.mcpConfigKey) + "/" + jsonPointerEscape(name)
		if err := b.patchEntry(root, entryPtr, string(value)); err != nil {
			return err
		}
	}

	return writeFileAtomic(configPath, string(b.finalizeConfig(root)))
}

// removeServers deletes the named entries from the config file. A missing
// file or entry is not an error.
func (b *BaseSystem) removeServers(configPath string, names []string) error {
	content, err := readConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if content == "" {
		return nil
	}

	root, err := parseJSONC(content)
	if err != nil {
		return err
	}

	changed := false
	for _, name := range names {
		entryPtr := "/" + jsonPointerEscape(b.mcpConfigKey) + "/" + jsonPointerEscape(name)
		if root.Find(entryPtr) == nil {
			continue
		}
		patch := fmt.Sprintf(`[{"op":"remove","path":%q}]`, entryPtr)
		if err := root.Patch([]byte(patch)); err != nil {
			return fmt.Errorf("removing MCP entry %q: %w", name, err)
		}
		changed = true
	}
	if !changed {
		return nil
	}

	return writeFileAtomic(configPath, string(b.finalizeConfig(root)))
}

func (b *BaseSystem) render(d convert.ServerDescriptor) any {
	if b.renderServer != nil {
		return b.renderServer(d)
	}
	return d
}

// patchEntry ensures the top-level key exists and adds or replaces entryPtr.
func (b *BaseSystem) patchEntry(root *hujson.Value, entryPtr, valueJSON string) error {
	topKeyPtr := "/" + jsonPointerEscape(b.mcpConfigKey)
	if root.Find(topKeyPtr) == nil {
		topKeyPatch := fmt.Sprintf(`[{"op":"add","path":%q,"value":{}}]`, topKeyPtr)
		if err := root.Patch([]byte(topKeyPatch)); err != nil {
			return fmt.Errorf("creating config key %q: %w", b.mcpConfigKey, err)
		}
	}

	op := "add"
	if root.Find(entryPtr) != nil {
		op = "replace"
	}
	patch := fmt.Sprintf(`[{"op":%q,"path":%q,"value":%s}]`, op, entryPtr, valueJSON)
	if err := root.Patch([]byte(patch)); err != nil {
		return fmt.Errorf("writing MCP entry: %w", err)
	}
	return nil
}

// ResolveMCPConfigPathRel returns the project-relative config path,
// checking for the alternative path on disk first.
func (b *BaseSystem) ResolveMCPConfigPathRel(projectDir string) string {
	if b.mcpConfigPath == "" {
		return ""
	}
	if b.mcpConfigPathAlt != "" {
		if _, err := os.Stat(filepath.Join(projectDir, b.mcpConfigPathAlt)); err == nil {
			return b.mcpConfigPathAlt
		}
	}
	return b.mcpConfigPath
}

// finalizeConfig formats the JSONC AST and produces final output bytes.
func (b *BaseSystem) finalizeConfig(root *hujson.Value) []byte {
	root.Format()
	removeTrailingCommas(root)

	if b.mcpConfigFormat != "jsonc" {
		root.Standardize()
	}

	return root.Pack()
}
