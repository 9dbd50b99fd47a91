package system

import "github.com/barysiuk/duckport/internal/core/convert"

// GitHubCopilot implements the System interface for GitHub Copilot.
type GitHubCopilot struct {
	BaseSystem
}

// NewGitHubCopilot creates a configured GitHub Copilot system. Agents land
// in .github/agents, commands become prompt files and MCP servers go to the
// VS Code workspace config.
func NewGitHubCopilot() *GitHubCopilot {
	return &GitHubCopilot{BaseSystem{
		profile:         convert.Copilot,
		configSignals:   []string{".github/copilot-instructions.md", ".github/agents", ".github/prompts"},
		rulesDir:        ".github/agents",
		ruleExt:         ".agent.md",
		commandsDir:     ".github/prompts",
		commandExt:      ".prompt.md",
		skillsDir:       ".github/skills",
		mcpConfigPath:   ".vscode/mcp.json",
		mcpConfigKey:    "servers",
		mcpConfigFormat: "jsonc",
	}}
}

func init() { Register(NewGitHubCopilot()) }
