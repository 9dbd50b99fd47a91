package convert

import (
	"strings"

	"github.com/barysiuk/duckport/internal/core/frontmatter"
	"github.com/barysiuk/duckport/internal/core/naming"
	"github.com/barysiuk/duckport/internal/core/plugin"
	"github.com/barysiuk/duckport/internal/core/rewrite"
)

// assembler builds the documents of one conversion. It owns the naming sets,
// so it must not be shared between conversions.
type assembler struct {
	profile  *Profile
	opts     Options
	rewriter rewrite.Pipeline
	rules    *naming.Set
	commands *naming.Set
	skills   *naming.Set
}

func newAssembler(profile *Profile, opts Options) *assembler {
	return &assembler{
		profile:  profile,
		opts:     opts,
		rewriter: profile.Rewriter(),
		rules:    naming.NewSet(),
		commands: naming.NewSet(),
		skills:   naming.NewSet(),
	}
}

func (a *assembler) rule(agent plugin.Agent) Document {
	name := a.rules.Unique(naming.Normalize(agent.Name))

	description := agent.Description
	if description == "" && !agent.DescriptionSet {
		description = "Converted from Claude agent " + agent.Name
	}

	body := a.rewriter.Apply(strings.TrimSpace(agent.Body))
	if len(agent.Capabilities) > 0 {
		var sb strings.Builder
		sb.WriteString("## Capabilities\n")
		for _, c := range agent.Capabilities {
			sb.WriteString("- " + c + "\n")
		}
		body = strings.TrimSpace(sb.String() + "\n" + body)
	}
	if body == "" {
		body = "Instructions converted from the " + agent.Name + " agent."
	}

	fields := a.profile.RuleFields(RuleContext{
		Agent:       agent,
		Name:        name,
		Description: description,
		Options:     a.opts,
	})
	return Document{Name: name, Content: frontmatter.MustFormat(fields, body)}
}

func (a *assembler) command(cmd plugin.Command) Document {
	name := a.commands.Unique(naming.Flatten(cmd.Name))

	var sections []string
	var fields frontmatter.Fields

	switch a.profile.CommandStyle {
	case CommandFrontmatter:
		if cmd.Description != "" {
			fields = append(fields, frontmatter.Field{Key: "description", Value: cmd.Description})
		}
		if cmd.ArgumentHint != "" {
			if a.profile.ArgumentHintKey != "" {
				fields = append(fields, frontmatter.Field{Key: a.profile.ArgumentHintKey, Value: cmd.ArgumentHint})
			} else {
				sections = append(sections, "## Arguments\n"+cmd.ArgumentHint)
			}
		}
	default:
		if cmd.Description != "" {
			sections = append(sections, "<!-- "+cmd.Description+" -->")
		}
		if cmd.ArgumentHint != "" {
			sections = append(sections, "## Arguments\n"+cmd.ArgumentHint)
		}
	}

	if body := a.rewriter.Apply(strings.TrimSpace(cmd.Body)); body != "" {
		sections = append(sections, body)
	}

	content := strings.TrimSpace(strings.Join(sections, "\n\n"))
	return Document{Name: name, Content: frontmatter.MustFormat(fields, content)}
}

// skillDir picks a directory name no other skill uses and claims it in the
// command namespace so no flattened command shadows it.
func (a *assembler) skillDir(skill plugin.Skill) string {
	dir := a.skills.Unique(naming.Normalize(skill.Name))
	a.commands.Reserve(dir)
	return dir
}
