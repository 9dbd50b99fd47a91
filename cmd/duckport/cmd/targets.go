package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/barysiuk/duckport/internal/core/system"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// layout is the on-disk layout every built-in system exposes.
type layout interface {
	RulesDir() string
	CommandsDir() string
	SkillsDir() string
	MCPConfigPath() string
	MCPConfigPathAlt() string
	MCPConfigKey() string
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported targets",
	Long: `List every target duckport converts for, with the directories it writes
and the plugin features it skips. Targets already configured in the current
directory are marked active.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		active := make(map[string]bool)
		for _, s := range system.DetectInFolder(cwd) {
			active[s.Name()] = true
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
			Headers("TARGET", "NAME", "RULES", "COMMANDS", "SKILLS", "MCP CONFIG", "SKIPS", "ACTIVE").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tableHeaderStyle
				}
				return tableCellStyle
			})

		for _, s := range system.All() {
			var rules, commands, skills, mcp string
			if l, ok := s.(layout); ok {
				rules, commands, skills, mcp = l.RulesDir(), l.CommandsDir(), l.SkillsDir(), mcpConfigCell(l)
			}
			var skips []string
			for _, u := range s.Profile().Unsupported {
				skips = append(skips, string(u.Feature))
			}
			mark := ""
			if active[s.Name()] {
				mark = "yes (" + foundSignal(s, cwd) + ")"
			}
			t.Row(s.DisplayName(), s.Name(), rules, commands, skills, mcp, strings.Join(skips, ", "), mark)
		}

		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

// mcpConfigCell renders the server config file, alternative first since it
// wins when present, followed by the key servers live under.
func mcpConfigCell(l layout) string {
	if l.MCPConfigPath() == "" {
		return ""
	}
	cell := l.MCPConfigPath()
	if alt := l.MCPConfigPathAlt(); alt != "" {
		cell = alt + " or " + cell
	}
	return cell + " (" + l.MCPConfigKey() + ")"
}

// foundSignal returns the first detection signal present in dir.
func foundSignal(s system.System, dir string) string {
	for _, sig := range s.DetectionSignals() {
		if _, err := os.Stat(filepath.Join(dir, sig)); err == nil {
			return sig
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
