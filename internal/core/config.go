package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/barysiuk/duckport/internal/core/system"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".duckport"
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "DUCKPORT"
)

// Config keys.
const (
	KeyTargets          = "targets"
	KeyOut              = "out"
	KeyAgentMode        = "agent_mode"
	KeyInferTemperature = "infer_temperature"
	KeyPermissions      = "permissions"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
)

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"to":                KeyTargets,
	"out":               KeyOut,
	"agent-mode":        KeyAgentMode,
	"infer-temperature": KeyInferTemperature,
	"permissions":       KeyPermissions,
	"log-level":         KeyLogLevel,
	"log-format":        KeyLogFormat,
}

// ConfigManager resolves duckport settings from flags, DUCKPORT_*
// environment variables, the config file and built-in defaults, in that
// order of precedence.
type ConfigManager struct {
	configDir  string
	configFile string // explicit --config path; overrides configDir
	v          *viper.Viper
}

// NewConfigManager creates a ConfigManager using the default config path (~/.duckport/).
func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return NewConfigManagerWithDir(filepath.Join(home, configDirName)), nil
}

// NewConfigManagerWithDir creates a ConfigManager using a custom config directory.
// Useful for testing.
func NewConfigManagerWithDir(dir string) *ConfigManager {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyTargets, system.Names(system.All()))
	v.SetDefault(KeyOut, ".")
	v.SetDefault(KeyAgentMode, string(convert.AgentModeSubagent))
	v.SetDefault(KeyInferTemperature, false)
	v.SetDefault(KeyPermissions, string(convert.PermissionsNone))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	return &ConfigManager{configDir: dir, v: v}
}

// ConfigDir returns the configuration directory path.
func (cm *ConfigManager) ConfigDir() string {
	return cm.configDir
}

// ConfigPath returns the full path to the config file.
func (cm *ConfigManager) ConfigPath() string {
	if cm.configFile != "" {
		return cm.configFile
	}
	return filepath.Join(cm.configDir, configFileName+"."+configFileType)
}

// SetConfigFile points the manager at an explicit config file. Unlike the
// default location, an explicit file must exist.
func (cm *ConfigManager) SetConfigFile(path string) {
	cm.configFile = path
}

// BindFlags binds the known flags present in fs to their config keys.
func (cm *ConfigManager) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := cm.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file. A missing file at the default location is
// not an error.
func (cm *ConfigManager) Load() error {
	if cm.configFile != "" {
		cm.v.SetConfigFile(cm.configFile)
	} else {
		cm.v.SetConfigName(configFileName)
		cm.v.SetConfigType(configFileType)
		cm.v.AddConfigPath(cm.configDir)
	}

	if err := cm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cm.configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", cm.ConfigPath(), err)
	}
	return nil
}

// Settings returns the validated conversion settings. DryRun is a per-run
// choice and is left false.
func (cm *ConfigManager) Settings() (ConvertSettings, error) {
	targets := splitList(cm.v.GetStringSlice(KeyTargets))
	if len(targets) == 0 {
		return ConvertSettings{}, errors.New("no targets configured")
	}
	if _, err := system.ByNames(targets); err != nil {
		return ConvertSettings{}, err
	}

	mode, err := convert.ParseAgentMode(cm.v.GetString(KeyAgentMode))
	if err != nil {
		return ConvertSettings{}, err
	}
	perms, err := convert.ParsePermissions(cm.v.GetString(KeyPermissions))
	if err != nil {
		return ConvertSettings{}, err
	}

	return ConvertSettings{
		Targets:          targets,
		OutDir:           cm.v.GetString(KeyOut),
		AgentMode:        string(mode),
		InferTemperature: cm.v.GetBool(KeyInferTemperature),
		Permissions:      string(perms),
	}, nil
}

// LogLevel returns the configured log level.
func (cm *ConfigManager) LogLevel() string { return cm.v.GetString(KeyLogLevel) }

// LogFormat returns the configured log format ("text" or "json").
func (cm *ConfigManager) LogFormat() string { return cm.v.GetString(KeyLogFormat) }

// splitList flattens comma-separated items. Environment values arrive as a
// single "a,b" string.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
