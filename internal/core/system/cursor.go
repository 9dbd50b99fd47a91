package system

import "github.com/barysiuk/duckport/internal/core/convert"

// Cursor implements the System interface for the Cursor editor.
type Cursor struct {
	BaseSystem
}

// NewCursor creates a configured Cursor system.
func NewCursor() *Cursor {
	return &Cursor{BaseSystem{
		profile:         convert.Cursor,
		configSignals:   []string{".cursor"},
		rulesDir:        ".cursor/rules",
		ruleExt:         ".mdc",
		commandsDir:     ".cursor/commands",
		commandExt:      ".md",
		skillsDir:       ".cursor/skills",
		mcpConfigPath:   ".cursor/mcp.json",
		mcpConfigKey:    "mcpServers",
		mcpConfigFormat: "jsonc",
	}}
}

// Cursor infers the transport, so descriptors are written as-is:
// { "command": "...", "args": [...], "env": {...} } or { "url": "..." }.

func init() { Register(NewCursor()) }
