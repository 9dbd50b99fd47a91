// Package convert turns a loaded Claude Code plugin into the in-memory
// bundle of one target tool. Conversion is pure: it reads nothing from disk,
// keeps no state between calls and always succeeds. Features the target
// cannot express are dropped, with a warning where the profile asks for one.
package convert

import "github.com/barysiuk/duckport/internal/core/plugin"

// Convert builds the bundle for profile. Agents become rules, skills pass
// through and reserve their names, commands are flattened and deduplicated
// against both, and servers are mapped to the target's descriptor shape.
func Convert(p *plugin.Plugin, profile *Profile, opts Options) *Bundle {
	skipped := applyPolicy(p, profile, opts)
	a := newAssembler(profile, opts)

	b := &Bundle{
		Target:   profile.Name,
		Rules:    make([]Document, 0, len(p.Agents)),
		Commands: make([]Document, 0, len(p.Commands)),
		Skills:   make([]SkillDir, 0, len(p.Skills)),
	}

	for _, agent := range p.Agents {
		b.Rules = append(b.Rules, a.rule(agent))
	}

	if !skipped[FeatureSkills] {
		for _, s := range p.Skills {
			b.Skills = append(b.Skills, SkillDir{
				Name:      s.Name,
				Dir:       a.skillDir(s),
				SourceDir: s.SourceDir,
			})
		}
	}

	if !skipped[FeatureCommands] {
		for _, cmd := range p.Commands {
			b.Commands = append(b.Commands, a.command(cmd))
		}
	}

	if !skipped[FeatureMCPServers] {
		b.Servers = MapServers(p.MCPServers, profile)
	}

	return b
}
