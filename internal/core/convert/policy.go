package convert

import (
	"fmt"
	"strings"

	"github.com/barysiuk/duckport/internal/core/plugin"
	"github.com/sirupsen/logrus"
)

// Feature is a source capability a target may be unable to express.
type Feature string

const (
	FeatureHooks      Feature = "hooks"
	FeatureMCPServers Feature = "mcp-servers"
	FeatureCommands   Feature = "commands"
	FeatureSkills     Feature = "skills"
)

// Action is what the policy does with an unsupported feature.
type Action int

const (
	// Omit drops the feature silently.
	Omit Action = iota
	// Warn drops the feature and logs one warning.
	Warn
)

// Unsupported declares one feature a target cannot represent.
type Unsupported struct {
	Feature Feature
	Action  Action
}

func (f Feature) label() string {
	switch f {
	case FeatureMCPServers:
		return "MCP servers"
	default:
		return string(f)
	}
}

func (f Feature) presentIn(p *plugin.Plugin) bool {
	switch f {
	case FeatureHooks:
		return p.HasHooks()
	case FeatureMCPServers:
		return len(p.MCPServers) > 0
	case FeatureCommands:
		return len(p.Commands) > 0
	case FeatureSkills:
		return len(p.Skills) > 0
	}
	return false
}

// warningText is the single line logged for a dropped feature.
func warningText(display string, f Feature) string {
	label := f.label()
	return fmt.Sprintf("%s does not support %s. %s were skipped during conversion.",
		display, label, strings.ToUpper(label[:1])+label[1:])
}

// applyPolicy returns the set of features to leave out of the bundle and
// logs one warning per present feature whose action is Warn.
func applyPolicy(p *plugin.Plugin, profile *Profile, opts Options) map[Feature]bool {
	skipped := make(map[Feature]bool)
	for _, u := range profile.Unsupported {
		skipped[u.Feature] = true
		if u.Action != Warn || !u.Feature.presentIn(p) {
			continue
		}
		opts.log().WithFields(logrus.Fields{
			"target":  profile.Name,
			"feature": string(u.Feature),
		}).Warn(warningText(profile.DisplayName, u.Feature))
	}
	return skipped
}
