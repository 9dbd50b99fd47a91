// Package plugin holds the canonical in-memory form of a Claude Code plugin
// and the loader that builds it from the plugin's on-disk layout.
package plugin

import "encoding/json"

// Plugin is a loaded Claude Code plugin. It is treated as immutable once
// loaded.
type Plugin struct {
	Name        string
	Version     string
	Description string
	Root        string

	Agents   []Agent
	Commands []Command
	Skills   []Skill

	// Hooks maps an event name to its opaque trigger definitions.
	// nil means the plugin declares no hooks file at all.
	Hooks map[string]json.RawMessage

	// MCPServers is nil when the plugin declares no servers.
	MCPServers map[string]MCPServer
}

// Agent is a subagent definition (agents/*.md).
type Agent struct {
	Name        string
	Description string
	// DescriptionSet marks an explicit description, so that `description: ""`
	// stays distinct from a missing field.
	DescriptionSet bool
	Capabilities   []string
	Model          string
	Body           string
	SourcePath     string
}

// Command is a slash command (commands/**/*.md). Name may carry a namespace
// such as "workflows:plan".
type Command struct {
	Name         string
	Description  string
	ArgumentHint string
	AllowedTools []string
	Model        string
	Body         string
	SourcePath   string
}

// Skill is a skill directory containing SKILL.md. Its content is copied, not
// converted.
type Skill struct {
	Name        string
	Description string
	SourceDir   string
}

// MCPServer is one entry of the plugin's MCP server mapping. A server is
// either local (Command set) or remote (URL set).
type MCPServer struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// IsLocal reports whether the server is launched as a local process.
func (s MCPServer) IsLocal() bool { return s.Command != "" }

// IsRemote reports whether the server is reached over the network.
func (s MCPServer) IsRemote() bool { return s.Command == "" && s.URL != "" }

// HasHooks reports whether at least one hook event is declared.
func (p *Plugin) HasHooks() bool { return len(p.Hooks) > 0 }
