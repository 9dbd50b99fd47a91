package convert

import (
	"github.com/barysiuk/duckport/internal/core/frontmatter"
	"github.com/barysiuk/duckport/internal/core/plugin"
	"github.com/barysiuk/duckport/internal/core/rewrite"
)

// CommandStyle selects how command metadata is rendered.
type CommandStyle int

const (
	// CommandPlain renders the description as an HTML comment and the
	// argument hint as an "## Arguments" section. No front-matter.
	CommandPlain CommandStyle = iota
	// CommandFrontmatter renders the description (and the argument hint,
	// when ArgumentHintKey is set) as front-matter.
	CommandFrontmatter
)

// RuleContext is what a profile sees when building rule front-matter.
type RuleContext struct {
	Agent       plugin.Agent
	Name        string // unique, normalized output name
	Description string // source description or the generated fallback
	Options     Options
}

// Profile is the transformation table for one target tool.
type Profile struct {
	Name        string
	DisplayName string

	// SourceDir and TargetDir are the bare hidden-directory names used by
	// the storage path rewrite.
	SourceDir string
	TargetDir string

	// InvocationNoun is what an agent invocation is rewritten to call.
	InvocationNoun string
	// RuleConcept is what an @-reference to an agent becomes.
	RuleConcept string

	// RuleFields returns the ordered front-matter of a rule document.
	RuleFields func(RuleContext) frontmatter.Fields

	CommandStyle    CommandStyle
	ArgumentHintKey string

	// LocalServerType and RemoteServerType are written as the descriptor
	// type; empty leaves the type out. With KeepRemoteType a remote
	// server's own type (e.g. "sse") wins over RemoteServerType.
	LocalServerType  string
	RemoteServerType string
	KeepRemoteType   bool

	Unsupported []Unsupported
}

// Rewriter returns the body rewrite pipeline for the profile.
func (p *Profile) Rewriter() rewrite.Pipeline {
	return rewrite.Standard(rewrite.Config{
		SourceDir:      p.SourceDir,
		TargetDir:      p.TargetDir,
		InvocationNoun: p.InvocationNoun,
		Concept:        p.RuleConcept,
	})
}

// Supports reports whether the profile can represent f.
func (p *Profile) Supports(f Feature) bool {
	for _, u := range p.Unsupported {
		if u.Feature == f {
			return false
		}
	}
	return true
}
