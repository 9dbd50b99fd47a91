package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove previously converted output",
	Long: `Remove every file and MCP server entry recorded in duckport.lock.json for
the given targets, or for all recorded targets when --to is not set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		settings, err := d.config.Settings()
		if err != nil {
			return err
		}

		var targets []string
		if cmd.Flags().Changed("to") {
			targets = settings.Targets
		}

		results, err := d.orch.Clean(cmd.Context(), settings.OutDir, targets)
		out := cmd.OutOrStdout()
		if len(results) == 0 && err == nil {
			fmt.Fprintln(out, mutedStyle.Render("Nothing to clean in "+settings.OutDir))
			return nil
		}
		for _, tr := range results {
			fmt.Fprintf(out, "%s %s: removed %s\n", successStyle.Render("✓"), tr.Display, countLabel(len(tr.Removed), "path"))
		}
		return err
	},
}

func init() {
	cleanCmd.Flags().StringSlice("to", nil, "Targets to clean (default: all recorded)")
	cleanCmd.Flags().StringP("out", "o", ".", "Output root directory")

	rootCmd.AddCommand(cleanCmd)
}
