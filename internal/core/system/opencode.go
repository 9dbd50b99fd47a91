package system

import "github.com/barysiuk/duckport/internal/core/convert"

// OpenCode implements the System interface for the OpenCode AI coding tool.
type OpenCode struct {
	BaseSystem
}

// NewOpenCode creates a configured OpenCode system.
func NewOpenCode() *OpenCode {
	return &OpenCode{BaseSystem{
		profile:          convert.OpenCode,
		configSignals:    []string{"opencode.json", "opencode.jsonc", ".opencode"},
		rulesDir:         ".opencode/agents",
		ruleExt:          ".md",
		commandsDir:      ".opencode/commands",
		commandExt:       ".md",
		skillsDir:        ".opencode/skills",
		mcpConfigPath:    "opencode.json",
		mcpConfigPathAlt: "opencode.jsonc",
		mcpConfigKey:     "mcp",
		mcpConfigFormat:  "jsonc",
		renderServer:     renderOpenCodeServer,
	}}
}

// openCodeServer is OpenCode's MCP entry. Local servers carry the command
// and its arguments as one array.
type openCodeServer struct {
	Type        string            `json:"type,omitempty"`
	Command     []string          `json:"command,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

func renderOpenCodeServer(d convert.ServerDescriptor) any {
	if d.IsLocal() {
		// OpenCode: { "type": "local", "command": ["npx", "-y", ...] }
		return openCodeServer{
			Type:        d.Type,
			Command:     append([]string{d.Command}, d.Args...),
			Environment: d.Env,
		}
	}
	// OpenCode: { "type": "remote", "url": "..." }
	return openCodeServer{Type: d.Type, URL: d.URL, Headers: d.Headers}
}

func init() { Register(NewOpenCode()) }
