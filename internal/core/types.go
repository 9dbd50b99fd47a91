// Package core provides the business logic for duckport: resolving a plugin
// source, converting it for each requested target, writing the results and
// keeping the generated-file manifest. It has zero UI dependencies and is
// independently testable.
package core

import "github.com/barysiuk/duckport/internal/core/system"

// ParsedSource represents a parsed plugin source string.
type ParsedSource struct {
	Type      SourceType
	Host      string // Hostname (e.g. "github.com", "gitlab.com", "git.internal.co")
	Owner     string // Repository owner
	Repo      string // Repository name
	CloneURL  string // Full git clone URL
	Ref       string // Git ref (branch/tag) if specified
	SubPath   string // Path within repo to the plugin root
	LocalPath string // Absolute path for local sources
}

// SourceType indicates the kind of plugin source.
type SourceType string

const (
	SourceTypeLocal  SourceType = "local"
	SourceTypeGitHub SourceType = "github"
	SourceTypeGitLab SourceType = "gitlab"
	SourceTypeGit    SourceType = "git"
)

// IsRemote reports whether the source has to be cloned.
func (s *ParsedSource) IsRemote() bool { return s.Type != SourceTypeLocal }

// String returns a short display form of the source.
func (s *ParsedSource) String() string {
	if !s.IsRemote() {
		return s.LocalPath
	}
	out := s.CloneURL
	if s.Owner != "" && s.Repo != "" {
		out = s.Owner + "/" + s.Repo
	}
	if s.SubPath != "" {
		out += "/" + s.SubPath
	}
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// Manifest represents the duckport.lock.json file that records what each
// target's last conversion generated in an output root.
type Manifest struct {
	LockVersion int             `json:"lockVersion"`
	Targets     []ManifestEntry `json:"targets"`
}

// ManifestEntry is the record of one target's output.
type ManifestEntry struct {
	Target  string `json:"target"`
	Plugin  string `json:"plugin"`
	Version string `json:"version,omitempty"`
	Source  string `json:"source,omitempty"`
	system.WriteResult
}

// ConvertSettings are the resolved settings for one conversion run.
type ConvertSettings struct {
	Targets          []string
	OutDir           string
	AgentMode        string
	InferTemperature bool
	Permissions      string
	DryRun           bool
}

// TargetResult is the outcome of converting and writing one target.
type TargetResult struct {
	Target    string
	Display   string
	Rules     int
	Commands  int
	Skills    int
	Servers   int
	Artifacts []system.Artifact // populated on dry runs
	Removed   []string          // stale files removed
}

// ConvertResult is the outcome of a whole conversion run.
type ConvertResult struct {
	Plugin  string
	Version string
	OutDir  string
	Targets []TargetResult
}
