package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/barysiuk/duckport/internal/core/plugin"
	"github.com/barysiuk/duckport/internal/core/system"
	"github.com/barysiuk/duckport/internal/logger"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Orchestrator coordinates source resolution, conversion, writing and the
// output manifest. It lives in the core package so it can import the
// plugin, convert and system sub-packages without circular dependencies.
type Orchestrator struct{}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// Convert is the main entry point.
// 1. Parse and resolve the source (cloning remote sources)
// 2. Load the plugin
// 3. Convert for every requested target concurrently
// 4. Write each target in order, or plan only on dry runs
// 5. Remove stale files from the previous run and update the manifest
func (o *Orchestrator) Convert(ctx context.Context, source string, settings ConvertSettings) (*ConvertResult, error) {
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	root, cleanup, err := ResolveSource(ctx, src)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("resolving source: %w", err)
	}

	p, err := plugin.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading plugin: %w", err)
	}
	return o.ConvertPlugin(ctx, p, src.String(), settings)
}

// ConvertPlugin converts an already loaded plugin. source is recorded in the
// manifest.
func (o *Orchestrator) ConvertPlugin(ctx context.Context, p *plugin.Plugin, source string, settings ConvertSettings) (*ConvertResult, error) {
	systems, err := system.ByNames(settings.Targets)
	if err != nil {
		return nil, err
	}
	if len(systems) == 0 {
		return nil, errors.New("no targets selected")
	}
	opts, err := settings.options()
	if err != nil {
		return nil, err
	}

	log := logger.G(ctx).WithField("plugin", p.Name)
	opts.Logger = log

	bundles, err := convertAll(ctx, p, systems, opts)
	if err != nil {
		return nil, err
	}

	result := &ConvertResult{
		Plugin:  p.Name,
		Version: p.Version,
		OutDir:  settings.OutDir,
	}

	if settings.DryRun {
		for i, s := range systems {
			tr := newTargetResult(s, bundles[i])
			tr.Artifacts = s.Plan(settings.OutDir, bundles[i])
			result.Targets = append(result.Targets, tr)
		}
		return result, nil
	}

	manifest, err := ReadManifest(settings.OutDir)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = &Manifest{}
	}

	var errs *multierror.Error
	for i, s := range systems {
		tr := newTargetResult(s, bundles[i])

		res, err := s.Write(settings.OutDir, bundles[i])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("writing %s: %w", s.DisplayName(), err))
		}

		var prev *system.WriteResult
		if e, ok := manifest.Entry(s.Name()); ok {
			prev = &e.WriteResult
			if e.Plugin != p.Name {
				log.WithField("target", s.Name()).Warnf("replacing output of plugin %q", e.Plugin)
			}
		}
		if err == nil {
			if stale := Stale(prev, res); stale != nil {
				if cerr := s.Clean(settings.OutDir, stale); cerr != nil {
					errs = multierror.Append(errs, fmt.Errorf("removing stale %s output: %w", s.DisplayName(), cerr))
				}
				tr.Removed = stale.Files
			}
		} else if prev != nil {
			// Partial write: keep the old records so a later run can still clean them.
			res = merged(prev, res)
		}

		manifest.Upsert(ManifestEntry{
			Target:      s.Name(),
			Plugin:      p.Name,
			Version:     p.Version,
			Source:      source,
			WriteResult: *res,
		})
		log.WithField("target", s.Name()).Debugf("wrote %d files", len(res.Files))
		result.Targets = append(result.Targets, tr)
	}

	if err := WriteManifest(settings.OutDir, manifest); err != nil {
		errs = multierror.Append(errs, err)
	}
	return result, errs.ErrorOrNil()
}

// Clean removes the recorded output of the given targets, or of every
// recorded target when targets is empty.
func (o *Orchestrator) Clean(ctx context.Context, outDir string, targets []string) ([]TargetResult, error) {
	manifest, err := ReadManifest(outDir)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, nil
	}

	if len(targets) == 0 {
		for _, e := range manifest.Targets {
			targets = append(targets, e.Target)
		}
	}

	var results []TargetResult
	var errs *multierror.Error
	for _, name := range targets {
		entry, ok := manifest.Entry(name)
		if !ok {
			continue
		}
		s, ok := system.ByName(name)
		if !ok {
			logger.G(ctx).WithField("target", name).Warn("manifest names an unknown target; leaving its files")
			continue
		}
		if err := s.Clean(outDir, &entry.WriteResult); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cleaning %s: %w", s.DisplayName(), err))
			continue
		}
		results = append(results, TargetResult{
			Target:  s.Name(),
			Display: s.DisplayName(),
			Removed: entry.Files,
		})
		manifest.Remove(name)
	}

	if err := WriteManifest(outDir, manifest); err != nil {
		errs = multierror.Append(errs, err)
	}
	return results, errs.ErrorOrNil()
}

// convertAll runs each target's conversion in its own goroutine. Results
// are returned in the order of systems.
func convertAll(ctx context.Context, p *plugin.Plugin, systems []system.System, opts convert.Options) ([]*convert.Bundle, error) {
	bundles := make([]*convert.Bundle, len(systems))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range systems {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bundles[i] = s.Convert(p, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundles, nil
}

func (s ConvertSettings) options() (convert.Options, error) {
	mode, err := convert.ParseAgentMode(s.AgentMode)
	if err != nil {
		return convert.Options{}, err
	}
	perms, err := convert.ParsePermissions(s.Permissions)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		AgentMode:        mode,
		InferTemperature: s.InferTemperature,
		Permissions:      perms,
	}, nil
}

func newTargetResult(s system.System, b *convert.Bundle) TargetResult {
	return TargetResult{
		Target:   s.Name(),
		Display:  s.DisplayName(),
		Rules:    len(b.Rules),
		Commands: len(b.Commands),
		Skills:   len(b.Skills),
		Servers:  len(b.Servers),
	}
}

// merged unions two write results, used when a failed write must not drop
// the records of the previous run.
func merged(prev, cur *system.WriteResult) *system.WriteResult {
	out := &system.WriteResult{
		Files:        append([]string(nil), prev.Files...),
		ServerConfig: prev.ServerConfig,
		Servers:      append([]string(nil), prev.Servers...),
	}
	if cur == nil {
		return out
	}
	for _, f := range cur.Files {
		if !slices.Contains(out.Files, f) {
			out.Files = append(out.Files, f)
		}
	}
	if cur.ServerConfig != "" {
		out.ServerConfig = cur.ServerConfig
		for _, s := range cur.Servers {
			if !slices.Contains(out.Servers, s) {
				out.Servers = append(out.Servers, s)
			}
		}
	}
	sort.Strings(out.Files)
	return out
}
