package rewrite

import (
	"strings"

	"github.com/barysiuk/duckport/internal/core/naming"
	"github.com/dlclark/regexp2"
)

// invocationPattern matches "Task agent-name(args)" lines, keeping any
// leading bullet and indentation in group 1.
var invocationPattern = regexp2.MustCompile(
	`^(\s*-?\s*)Task\s+([a-z][a-z0-9-]*)\(([^)]+)\)`,
	regexp2.Multiline,
)

// InvocationCalls rewrites agent invocation calls into a plain instruction
// to use the named noun ("skill", "subagent", ...).
func InvocationCalls(noun string) Rule {
	return Rule{
		Name: "invocation-calls",
		Apply: func(body string) string {
			return replaceFunc(invocationPattern, body, func(m regexp2.Match) string {
				prefix := group(m, 1)
				name := naming.Normalize(group(m, 2))
				args := strings.TrimSpace(group(m, 3))
				return prefix + "Use the " + name + " " + noun + " to: " + args
			})
		},
	}
}

// slashPattern matches "/name" or "/ns:name" tokens that are not part of a
// longer word or a scheme ("http://"), ending at whitespace, punctuation or
// end of input.
var slashPattern = regexp2.MustCompile(
	`(?<![:A-Za-z0-9_])/([A-Za-z][A-Za-z0-9_:-]*?)(?=[\s,."')\]}`+"`"+`]|$)`,
	regexp2.None,
)

// reservedDirs are single-segment paths that are far more likely to be real
// filesystem roots than command names.
var reservedDirs = map[string]bool{
	"dev":  true,
	"tmp":  true,
	"etc":  true,
	"usr":  true,
	"var":  true,
	"bin":  true,
	"home": true,
}

// SlashCommands flattens namespaced slash-command references:
// "/workflows:work" becomes "/work". Paths and reserved directory names are
// left untouched.
func SlashCommands() Rule {
	return Rule{
		Name: "slash-commands",
		Apply: func(body string) string {
			return replaceFunc(slashPattern, body, func(m regexp2.Match) string {
				name := group(m, 1)
				if strings.Contains(name, "/") || reservedDirs[name] {
					return m.String()
				}
				return "/" + naming.Flatten(name)
			})
		},
	}
}

// StoragePaths rewrites the source tool's hidden directory ("~/.claude/",
// ".claude/") to the target's.
func StoragePaths(from, to string) Rule {
	homeFrom, homeTo := "~/."+from+"/", "~/."+to+"/"
	relFrom, relTo := "."+from+"/", "."+to+"/"
	return Rule{
		Name: "storage-paths",
		Apply: func(body string) string {
			if from == to {
				return body
			}
			body = strings.ReplaceAll(body, homeFrom, homeTo)
			return strings.ReplaceAll(body, relFrom, relTo)
		},
	}
}

// Case folding is spelled out as ASCII classes: regexp2.IgnoreCase folds
// with unicode.ToLower, which would let "İ" match "i".
var entityPattern = regexp2.MustCompile(
	`@([A-Za-z][A-Za-z0-9-]*-(?:`+foldASCII("agent|reviewer|researcher|analyst|specialist|oracle|sentinel|guardian|strategist")+`))`,
	regexp2.None,
)

// foldASCII turns each lowercase letter of pattern into a two-case class,
// "ab" becoming "[aA][bB]".
func foldASCII(pattern string) string {
	var sb strings.Builder
	for _, r := range pattern {
		if r >= 'a' && r <= 'z' {
			sb.WriteString("[" + string(r) + string(r-'a'+'A') + "]")
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// EntityRefs rewrites "@security-sentinel" style mentions into
// "the security-sentinel <concept>".
func EntityRefs(concept string) Rule {
	return Rule{
		Name: "entity-refs",
		Apply: func(body string) string {
			return replaceFunc(entityPattern, body, func(m regexp2.Match) string {
				return "the " + naming.Normalize(group(m, 1)) + " " + concept
			})
		},
	}
}
