package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/barysiuk/duckport/internal/core"
	"github.com/barysiuk/duckport/internal/logger"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <source>",
	Short: "Convert a plugin for one or more targets",
	Long: `Convert a Claude Code plugin and write the result for each target.

Examples:
  duckport convert ./my-plugin --to cursor
  duckport convert EveryInc/compound-engineering-plugin --to cursor,opencode --out ~/code/app
  duckport convert https://github.com/acme/plugins/tree/main/plugins/review --dry-run

Files written by a previous run that the new run no longer produces are
removed. Re-run with --watch to convert again whenever a local plugin changes.`,
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
		settings.DryRun, _ = cmd.Flags().GetBool("dry-run")
		watch, _ := cmd.Flags().GetBool("watch")

		out := cmd.OutOrStdout()
		run := func(ctx context.Context) error {
			res, err := d.orch.Convert(ctx, args[0], settings)
			if res != nil {
				printConvertResult(out, res, settings.DryRun)
			}
			return err
		}

		if !watch {
			return run(cmd.Context())
		}
		return watchAndConvert(cmd.Context(), out, args[0], settings, run)
	},
}

func init() {
	convertCmd.Flags().StringSlice("to", nil, "Targets to convert for (default: all)")
	convertCmd.Flags().StringP("out", "o", ".", "Output root directory")
	addConversionFlags(convertCmd)
	convertCmd.Flags().Bool("dry-run", false, "Show what would be written without touching disk")
	convertCmd.Flags().Bool("watch", false, "Convert again whenever the local plugin changes")

	rootCmd.AddCommand(convertCmd)
}

func watchAndConvert(ctx context.Context, out io.Writer, source string, settings core.ConvertSettings, run func(context.Context) error) error {
	src, err := core.ParseSource(source)
	if err != nil {
		return err
	}
	if src.IsRemote() {
		return errors.New("--watch needs a local plugin directory")
	}
	if settings.DryRun {
		return errors.New("--watch cannot be combined with --dry-run")
	}

	opts := core.DefaultWatchOptions()
	if outAbs, err := filepath.Abs(settings.OutDir); err == nil {
		opts.IgnoreDirs = append(opts.IgnoreDirs, outAbs)
	}

	if err := run(ctx); err != nil {
		fmt.Fprintln(out, errorStyle.Render("Conversion failed: "+err.Error()))
	}
	fmt.Fprintln(out, mutedStyle.Render("Watching "+src.LocalPath+" for changes. Press Ctrl+C to stop."))

	return core.Watch(ctx, src.LocalPath, opts, func(ctx context.Context, ev core.FileEvent) {
		fmt.Fprintln(out, mutedStyle.Render("Change detected: "+ev.Path))
		if err := run(ctx); err != nil {
			logger.G(ctx).WithError(err).Error("conversion failed")
		}
	})
}

func printConvertResult(w io.Writer, res *core.ConvertResult, dryRun bool) {
	title := res.Plugin
	if res.Version != "" {
		title += " " + res.Version
	}
	if dryRun {
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Dry run:"), title)
	} else {
		fmt.Fprintf(w, "%s %s → %s\n", titleStyle.Render("Converted"), title, res.OutDir)
	}

	for _, tr := range res.Targets {
		fmt.Fprintf(w, "%s %s: %s\n", successStyle.Render("✓"), tr.Display, targetSummary(tr))
		for _, a := range tr.Artifacts {
			detail := a.Path
			if len(a.Servers) > 0 {
				detail += " (" + strings.Join(a.Servers, ", ") + ")"
			}
			fmt.Fprintf(w, "    %-8s %s\n", a.Kind, detail)
		}
		for _, rel := range tr.Removed {
			fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render("removed"), rel)
		}
	}
}
