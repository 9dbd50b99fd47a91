package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/barysiuk/duckport/internal/core"
	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/barysiuk/duckport/internal/core/plugin"
	"github.com/barysiuk/duckport/internal/core/system"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const defaultPreviewWidth = 100

var previewCmd = &cobra.Command{
	Use:   "preview <source>",
	Short: "Render converted documents without writing them",
	Long: `Convert a plugin for one target in memory and print the resulting rules
and commands, rendered as Markdown.

Examples:
  duckport preview ./my-plugin --target opencode
  duckport preview ./my-plugin --kind command --name plan --raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		settings, err := d.config.Settings()
		if err != nil {
			return err
		}

		targetName, _ := cmd.Flags().GetString("target")
		kind, _ := cmd.Flags().GetString("kind")
		name, _ := cmd.Flags().GetString("name")
		raw, _ := cmd.Flags().GetBool("raw")

		switch kind {
		case "", string(system.ArtifactRule), string(system.ArtifactCommand):
		default:
			return fmt.Errorf("invalid kind %q (want rule or command)", kind)
		}

		targets, err := system.ByNames([]string{targetName})
		if err != nil {
			return err
		}
		sys := targets[0]

		src, err := core.ParseSource(args[0])
		if err != nil {
			return err
		}
		root, cleanup, err := core.ResolveSource(cmd.Context(), src)
		defer cleanup()
		if err != nil {
			return fmt.Errorf("resolving source: %w", err)
		}
		p, err := plugin.Load(root)
		if err != nil {
			return fmt.Errorf("loading plugin: %w", err)
		}

		mode, _ := convert.ParseAgentMode(settings.AgentMode)
		perms, _ := convert.ParsePermissions(settings.Permissions)
		bundle := sys.Convert(p, convert.Options{
			AgentMode:        mode,
			InferTemperature: settings.InferTemperature,
			Permissions:      perms,
		})

		var docs []system.Artifact
		for _, a := range sys.Plan(settings.OutDir, bundle) {
			if a.Kind != system.ArtifactRule && a.Kind != system.ArtifactCommand {
				continue
			}
			if kind != "" && string(a.Kind) != kind {
				continue
			}
			if name != "" && a.Name != name {
				continue
			}
			docs = append(docs, a)
		}
		if len(docs) == 0 {
			return fmt.Errorf("no matching documents for %s", sys.DisplayName())
		}

		var renderer *glamour.TermRenderer
		if !raw {
			renderer, err = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(previewWidth()),
			)
			if err != nil {
				return fmt.Errorf("creating renderer: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		for i, a := range docs {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, titleStyle.Render("── "+a.Path+" ──"))
			if renderer == nil {
				fmt.Fprintln(out, a.Content)
				continue
			}
			rendered, err := renderer.Render(a.Content)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", a.Path, err)
			}
			fmt.Fprint(out, rendered)
		}
		return nil
	},
}

// previewWidth honors $COLUMNS when set.
func previewWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return defaultPreviewWidth
}

func init() {
	previewCmd.Flags().StringP("target", "t", "cursor", "Target to preview")
	previewCmd.Flags().String("kind", "", "Only show rule or command documents")
	previewCmd.Flags().String("name", "", "Only show the document with this name")
	previewCmd.Flags().Bool("raw", false, "Print the documents without Markdown rendering")
	addConversionFlags(previewCmd)

	rootCmd.AddCommand(previewCmd)
}
