// Package system defines the target tools duckport converts plugins for.
//
// A System pairs a conversion profile with the on-disk layout of one tool
// (Cursor, OpenCode, GitHub Copilot). Convert builds the in-memory bundle;
// Write lays it out under an output root. Systems are self-contained Go
// structs registered at init time.
package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/barysiuk/duckport/internal/core/plugin"
)

// ErrUnknownTarget is returned by ByNames for an unregistered name.
var ErrUnknownTarget = errors.New("unknown target")

// System defines how a target tool receives a converted plugin.
type System interface {
	// Identity
	Name() string        // machine name: "opencode", "cursor"
	DisplayName() string // human name: "OpenCode", "Cursor"

	// Conversion
	Profile() *convert.Profile
	Convert(p *plugin.Plugin, opts convert.Options) *convert.Bundle

	// Output
	Plan(root string, b *convert.Bundle) []Artifact
	Write(root string, b *convert.Bundle) (*WriteResult, error)
	Clean(root string, prev *WriteResult) error

	// Detection
	IsActiveInFolder(folderPath string) bool // has config artifacts in this folder
	DetectionSignals() []string              // config files/dirs indicating active use
}

// --- Registry ---

var systems []System

// Register adds a system to the global registry.
func Register(s System) { systems = append(systems, s) }

// All returns all registered systems.
func All() []System { return systems }

// ByName returns the system with the given machine name, if registered.
func ByName(name string) (System, bool) {
	for _, s := range systems {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// ByNames resolves a list of target names to System values.
// Returns an error wrapping ErrUnknownTarget if any name is unknown.
func ByNames(names []string) ([]System, error) {
	result := make([]System, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if seen[name] {
			continue
		}
		seen[name] = true

		s, ok := ByName(name)
		if !ok {
			return nil, fmt.Errorf("%w %q; available: %s",
				ErrUnknownTarget, name, strings.Join(Names(systems), ", "))
		}
		result = append(result, s)
	}
	return result, nil
}

// DetectInFolder returns systems with config artifacts in the given folder.
func DetectInFolder(path string) []System {
	var detected []System
	for _, s := range systems {
		if s.IsActiveInFolder(path) {
			detected = append(detected, s)
		}
	}
	return detected
}

// Names returns the machine names of the given systems.
func Names(systems []System) []string {
	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.Name()
	}
	return names
}

// DisplayNames returns the display names of the given systems.
func DisplayNames(systems []System) []string {
	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.DisplayName()
	}
	return names
}
