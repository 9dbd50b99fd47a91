package convert

import (
	"fmt"

	"github.com/barysiuk/duckport/internal/logger"
	"github.com/sirupsen/logrus"
)

// AgentMode is the OpenCode agent mode written into converted agents.
type AgentMode string

const (
	AgentModePrimary  AgentMode = "primary"
	AgentModeSubagent AgentMode = "subagent"
	AgentModeAll      AgentMode = "all"
)

// Permissions controls the permission block written into OpenCode agents.
type Permissions string

const (
	PermissionsNone  Permissions = "none"
	PermissionsBroad Permissions = "broad"
)

// Options is the per-run conversion configuration. Only target profiles
// interpret AgentMode, InferTemperature and Permissions.
type Options struct {
	AgentMode        AgentMode
	InferTemperature bool
	Permissions      Permissions

	// Logger receives downgrade warnings. Defaults to logger.L.
	Logger logrus.FieldLogger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		AgentMode:   AgentModeSubagent,
		Permissions: PermissionsNone,
	}
}

// ParseAgentMode validates an agent mode string. Empty means subagent.
func ParseAgentMode(s string) (AgentMode, error) {
	switch m := AgentMode(s); m {
	case "":
		return AgentModeSubagent, nil
	case AgentModePrimary, AgentModeSubagent, AgentModeAll:
		return m, nil
	default:
		return "", fmt.Errorf("invalid agent mode %q (want primary, subagent or all)", s)
	}
}

// ParsePermissions validates a permissions string. Empty means none.
func ParsePermissions(s string) (Permissions, error) {
	switch p := Permissions(s); p {
	case "":
		return PermissionsNone, nil
	case PermissionsNone, PermissionsBroad:
		return p, nil
	default:
		return "", fmt.Errorf("invalid permissions %q (want none or broad)", s)
	}
}

// Validate checks the enumerated fields.
func (o Options) Validate() error {
	if _, err := ParseAgentMode(string(o.AgentMode)); err != nil {
		return err
	}
	_, err := ParsePermissions(string(o.Permissions))
	return err
}

func (o Options) agentMode() AgentMode {
	if o.AgentMode == "" {
		return AgentModeSubagent
	}
	return o.AgentMode
}

func (o Options) log() logrus.FieldLogger {
	if o.Logger == nil {
		return logger.L
	}
	return o.Logger
}
