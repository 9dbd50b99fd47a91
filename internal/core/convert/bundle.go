package convert

// Bundle is the in-memory result of converting one plugin for one target.
// Writers decide where each part lands on disk.
type Bundle struct {
	Target   string
	Rules    []Document
	Commands []Document
	Skills   []SkillDir

	// Servers is nil when the plugin declares no servers (or an empty
	// mapping), in which case the target's server config is left untouched.
	Servers map[string]ServerDescriptor
}

// Document is a rendered text artifact: a rule/agent file or a command file.
type Document struct {
	Name    string
	Content string
}

// SkillDir is a skill directory copied verbatim. Dir is the output
// directory name, unique within the bundle.
type SkillDir struct {
	Name      string
	Dir       string
	SourceDir string
}

// ServerDescriptor is a target-neutral MCP server entry. Exactly one of
// Command and URL is set for well-formed input; neither is set for a
// malformed source entry.
type ServerDescriptor struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// IsLocal reports whether the descriptor launches a local process.
func (d ServerDescriptor) IsLocal() bool { return d.Command != "" }

// IsRemote reports whether the descriptor points at a URL.
func (d ServerDescriptor) IsRemote() bool { return d.URL != "" }

// RuleNames returns the rule document names in order.
func (b *Bundle) RuleNames() []string { return documentNames(b.Rules) }

// CommandNames returns the command document names in order.
func (b *Bundle) CommandNames() []string { return documentNames(b.Commands) }

func documentNames(docs []Document) []string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names
}
