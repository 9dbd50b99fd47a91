// Package naming turns free-form agent, command and skill names into slugs
// that are safe as file names, and keeps them unique within one conversion.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// Fallback is returned for names that normalize to nothing.
const Fallback = "item"

var (
	pathSepRun   = regexp.MustCompile(`[\\/]+`)
	colonOrSpace = regexp.MustCompile(`[:\s]+`)
	invalidRun   = regexp.MustCompile(`[^a-z0-9_-]+`)
	hyphenRun    = regexp.MustCompile(`-+`)
)

// Normalize converts raw into a lowercase slug of [a-z0-9_-].
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Fallback
	}
	s = strings.ToLower(s)
	s = pathSepRun.ReplaceAllString(s, "-")
	s = colonOrSpace.ReplaceAllString(s, "-")
	s = invalidRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Flatten drops the namespace of a command name and normalizes the rest:
// "workflows:plan" becomes "plan". Collisions across namespaces are left to
// Set.Unique.
func Flatten(name string) string {
	parts := strings.Split(name, ":")
	return Normalize(parts[len(parts)-1])
}

// Set tracks the names handed out within one namespace of one conversion.
// The zero value is not usable; call NewSet.
type Set struct {
	used map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{used: make(map[string]struct{})}
}

// Has reports whether name is taken.
func (s *Set) Has(name string) bool {
	_, ok := s.used[name]
	return ok
}

// Reserve marks name as taken without deriving a new one.
func (s *Set) Reserve(name string) {
	s.used[name] = struct{}{}
}

// Len returns the number of taken names.
func (s *Set) Len() int { return len(s.used) }

// Unique returns base if it is free, otherwise the first free of base-2,
// base-3, ... The returned name is reserved.
func (s *Set) Unique(base string) string {
	if !s.Has(base) {
		s.Reserve(base)
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !s.Has(candidate) {
			s.Reserve(candidate)
			return candidate
		}
	}
}
