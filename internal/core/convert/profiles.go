package convert

import (
	"strings"

	"github.com/barysiuk/duckport/internal/core/frontmatter"
)

const sourceDir = "claude"

// Cursor converts agents to .mdc rules that never auto-apply and commands
// to plain Markdown.
var Cursor = &Profile{
	Name:           "cursor",
	DisplayName:    "Cursor",
	SourceDir:      sourceDir,
	TargetDir:      "cursor",
	InvocationNoun: "skill",
	RuleConcept:    "rule",
	RuleFields: func(rc RuleContext) frontmatter.Fields {
		return frontmatter.Fields{
			{Key: "description", Value: rc.Description},
			{Key: "globs", Value: ""},
			{Key: "alwaysApply", Value: false},
		}
	},
	CommandStyle: CommandPlain,
	Unsupported: []Unsupported{
		{Feature: FeatureHooks, Action: Warn},
	},
}

// OpenCode converts agents to OpenCode agents whose mode, temperature and
// permissions come from Options.
var OpenCode = &Profile{
	Name:             "opencode",
	DisplayName:      "OpenCode",
	SourceDir:        sourceDir,
	TargetDir:        "opencode",
	InvocationNoun:   "subagent",
	RuleConcept:      "agent",
	RuleFields:       openCodeAgentFields,
	CommandStyle:     CommandFrontmatter,
	LocalServerType:  "local",
	RemoteServerType: "remote",
	Unsupported: []Unsupported{
		{Feature: FeatureHooks, Action: Warn},
	},
}

// Copilot converts agents to GitHub Copilot custom agents and commands to
// prompt files.
var Copilot = &Profile{
	Name:           "github-copilot",
	DisplayName:    "GitHub Copilot",
	SourceDir:      sourceDir,
	TargetDir:      "github",
	InvocationNoun: "agent",
	RuleConcept:    "agent",
	RuleFields: func(rc RuleContext) frontmatter.Fields {
		return frontmatter.Fields{
			{Key: "description", Value: rc.Description},
			{Key: "name", Value: rc.Name},
		}
	},
	CommandStyle:     CommandFrontmatter,
	ArgumentHintKey:  "argument-hint",
	LocalServerType:  "stdio",
	RemoteServerType: "http",
	KeepRemoteType:   true,
	Unsupported: []Unsupported{
		{Feature: FeatureHooks, Action: Warn},
	},
}

// Profiles returns every built-in profile.
func Profiles() []*Profile {
	return []*Profile{Cursor, OpenCode, Copilot}
}

var broadPermissions = map[string]string{
	"edit":     "allow",
	"bash":     "allow",
	"webfetch": "allow",
}

func openCodeAgentFields(rc RuleContext) frontmatter.Fields {
	fields := frontmatter.Fields{
		{Key: "description", Value: rc.Description},
		{Key: "mode", Value: string(rc.Options.agentMode())},
	}
	if rc.Options.InferTemperature {
		fields = append(fields, frontmatter.Field{Key: "temperature", Value: InferTemperature(rc.Agent.Name, rc.Agent.Description)})
	}
	if rc.Options.Permissions == PermissionsBroad {
		fields = append(fields, frontmatter.Field{Key: "permission", Value: broadPermissions})
	}
	return fields
}

var temperatureBands = []struct {
	temp     float64
	keywords []string
}{
	{0.1, []string{"review", "audit", "security", "sentinel", "oracle", "lint", "verification", "guardian"}},
	{0.2, []string{"plan", "architecture", "strategist", "analysis", "research"}},
	{0.3, []string{"doc", "readme", "changelog", "editor", "writer"}},
	{0.6, []string{"brainstorm", "creative", "ideate", "design", "concept"}},
}

// InferTemperature guesses a sampling temperature from an agent's name and
// description. Precise roles get low values, creative roles higher ones.
func InferTemperature(name, description string) float64 {
	sample := strings.ToLower(name + " " + description)
	for _, band := range temperatureBands {
		for _, kw := range band.keywords {
			if strings.Contains(sample, kw) {
				return band.temp
			}
		}
	}
	return 0.3
}
