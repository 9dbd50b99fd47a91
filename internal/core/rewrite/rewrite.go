// Package rewrite translates Claude-specific idioms embedded in agent and
// command bodies into the idioms of a target tool.
//
// Each Rule is a single regular-expression substitution over the whole
// body. A Pipeline applies its rules once each, in order; the order matters
// because later rules see the output of earlier ones.
package rewrite

import (
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Rule is one named text-to-text rewrite.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Pipeline is an ordered list of rules.
type Pipeline []Rule

// Apply runs every rule once, in order.
func (p Pipeline) Apply(body string) string {
	for _, r := range p {
		body = r.Apply(body)
	}
	return body
}

// Names returns the rule names in application order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, r := range p {
		names[i] = r.Name
	}
	return names
}

// Config parameterizes the standard pipeline for one target.
type Config struct {
	// SourceDir and TargetDir are the bare hidden-directory names, e.g.
	// "claude" and "cursor".
	SourceDir string
	TargetDir string
	// InvocationNoun names what an agent invocation becomes ("skill").
	InvocationNoun string
	// Concept names what an @-reference becomes ("rule").
	Concept string
}

// Standard returns the four rewrites in their required order.
func Standard(cfg Config) Pipeline {
	return Pipeline{
		InvocationCalls(cfg.InvocationNoun),
		SlashCommands(),
		StoragePaths(cfg.SourceDir, cfg.TargetDir),
		EntityRefs(cfg.Concept),
	}
}

// replaceFunc runs re over s. regexp2 only fails on a match timeout and no
// timeout is configured, so s is returned unchanged in that case.
//
// regexp2 matches over runes and would turn invalid UTF-8 into U+FFFD, so
// such bodies skip the pattern rules and keep their bytes.
func replaceFunc(re *regexp2.Regexp, s string, fn regexp2.MatchEvaluator) string {
	if !utf8.ValidString(s) {
		return s
	}
	out, err := re.ReplaceFunc(s, fn, -1, -1)
	if err != nil {
		return s
	}
	return out
}

func group(m regexp2.Match, n int) string {
	g := m.GroupByNumber(n)
	if g == nil {
		return ""
	}
	return g.String()
}
