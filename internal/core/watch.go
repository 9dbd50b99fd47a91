package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barysiuk/duckport/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is how long the tree must stay quiet before OnChange runs.
	Debounce time.Duration
	// IgnoreDirs are directory base names or absolute paths whose events
	// are dropped. The output root belongs here when it sits inside the
	// watched tree.
	IgnoreDirs []string
}

// DefaultWatchOptions returns the options used by `convert --watch`.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:   300 * time.Millisecond,
		IgnoreDirs: []string{".git", "node_modules"},
	}
}

// FileEvent is a file system change inside the watched tree.
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Watch calls onChange once per burst of changes under dir until ctx is
// canceled. onChange runs on a single goroutine, never concurrently with
// itself.
func Watch(ctx context.Context, dir string, opts WatchOptions, onChange func(context.Context, FileEvent)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	log := logger.G(ctx).WithField("dir", dir)

	if err := addTree(watcher, dir, opts.IgnoreDirs); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	events := make(chan FileEvent)
	debounced := make(chan FileEvent)
	go debounceFileEvents(ctx, events, debounced, opts.Debounce)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ignored(event.Name, opts.IgnoreDirs) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addTree(watcher, event.Name, opts.IgnoreDirs); err != nil {
							log.WithError(err).Warn("failed to watch new directory")
						}
					}
				}
				select {
				case events <- FileEvent{Path: event.Name, Op: event.Op, Time: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Error("error watching files")
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("watching for changes")
	for {
		select {
		case event := <-debounced:
			log.WithFields(map[string]any{
				"file":      event.Path,
				"operation": event.Op.String(),
			}).Debug("change detected")
			onChange(ctx, event)
		case <-ctx.Done():
			return nil
		}
	}
}

// debounceFileEvents forwards the last event of each burst once input has
// been quiet for delay. A plugin is converted as a whole, so bursts are not
// split per path.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending FileEvent
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stop()
				return
			}
			pending = event
			stop()
			timer = time.NewTimer(delay)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			select {
			case output <- pending:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			stop()
			return
		}
	}
}

func addTree(w *fsnotify.Watcher, root string, ignore []string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path, ignore) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// ignored reports whether path lies in an ignored directory. Entries with a
// separator are matched as path prefixes, others as any path segment.
func ignored(path string, ignore []string) bool {
	for _, dir := range ignore {
		if strings.ContainsRune(dir, filepath.Separator) {
			if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
				return true
			}
			continue
		}
		for _, seg := range strings.Split(path, string(filepath.Separator)) {
			if seg == dir {
				return true
			}
		}
	}
	return false
}
