package core

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ownerRepoPattern matches "owner/repo" format (2 segments, no protocol).
var ownerRepoPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// ownerRepoPathPattern matches "owner/repo/path/to/plugin" format (3+ segments).
var ownerRepoPathPattern = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+)/(.+)$`)

// ParseSource parses a plugin source string into a structured ParsedSource.
//
// Supported formats:
//   - "owner/repo"                       → GitHub repo, plugin at the root
//   - "owner/repo/plugins/my-plugin"     → GitHub repo with subpath
//   - "./local/path" or "/abs/path"      → Local directory
//   - "git@host:owner/repo.git"          → SSH git URL
//   - "https://github.com/owner/repo"    → HTTPS git URL
//   - "https://host/owner/repo/tree/main/plugins/x" → ref and subpath
//   - "file:///path/to/repo"            → local git repository, cloned
func ParseSource(input string) (*ParsedSource, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty source")
	}

	if isLocalPath(input) {
		return parseLocalSource(input)
	}

	if strings.HasPrefix(input, "git@") {
		return parseSSHSource(input)
	}

	if strings.HasPrefix(input, "file://") {
		return &ParsedSource{Type: SourceTypeGit, CloneURL: input}, nil
	}

	if strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "http://") {
		return parseHTTPSource(input)
	}

	if m := ownerRepoPathPattern.FindStringSubmatch(input); m != nil {
		return githubSource(m[1], m[2], strings.Trim(m[3], "/")), nil
	}

	if ownerRepoPattern.MatchString(input) {
		segments := strings.SplitN(input, "/", 2)
		return githubSource(segments[0], segments[1], ""), nil
	}

	return nil, fmt.Errorf("unrecognized source format: %q", input)
}

func githubSource(owner, repo, subPath string) *ParsedSource {
	repo = strings.TrimSuffix(repo, ".git")
	return &ParsedSource{
		Type:     SourceTypeGitHub,
		Host:     "github.com",
		Owner:    owner,
		Repo:     repo,
		CloneURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, repo),
		SubPath:  subPath,
	}
}

func isLocalPath(input string) bool {
	return input == "." || input == ".." ||
		strings.HasPrefix(input, "./") ||
		strings.HasPrefix(input, "../") ||
		strings.HasPrefix(input, "/") ||
		strings.HasPrefix(input, "~/")
}

func parseLocalSource(input string) (*ParsedSource, error) {
	absPath, err := filepath.Abs(expandHome(input))
	if err != nil {
		return nil, fmt.Errorf("resolving local path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("local path not found: %s", absPath)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path is not a directory: %s", absPath)
	}

	return &ParsedSource{
		Type:      SourceTypeLocal,
		LocalPath: absPath,
	}, nil
}

func hostType(host string) SourceType {
	switch {
	case strings.Contains(host, "github.com"):
		return SourceTypeGitHub
	case strings.Contains(host, "gitlab.com"):
		return SourceTypeGitLab
	default:
		return SourceTypeGit
	}
}

func parseSSHSource(input string) (*ParsedSource, error) {
	// git@github.com:owner/repo.git
	parts := strings.SplitN(input, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid SSH URL: %q", input)
	}

	host := strings.TrimPrefix(parts[0], "git@")
	result := &ParsedSource{
		Type:     hostType(host),
		Host:     host,
		CloneURL: input,
	}

	segments := strings.SplitN(strings.TrimSuffix(parts[1], ".git"), "/", 2)
	if len(segments) == 2 {
		result.Owner = segments[0]
		result.Repo = segments[1]
	}
	return result, nil
}

func parseHTTPSource(input string) (*ParsedSource, error) {
	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	result := &ParsedSource{
		Type: hostType(u.Host),
		Host: u.Host,
	}

	// Path segments: /owner/repo[/tree/<ref>/<subpath>]
	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(pathParts) < 2 {
		result.CloneURL = input
		return result, nil
	}

	result.Owner = pathParts[0]
	result.Repo = strings.TrimSuffix(pathParts[1], ".git")
	result.CloneURL = fmt.Sprintf("https://%s/%s/%s.git", u.Host, result.Owner, result.Repo)

	if len(pathParts) >= 4 && pathParts[2] == "tree" {
		result.Ref = pathParts[3]
		if len(pathParts) > 4 {
			result.SubPath = strings.Join(pathParts[4:], "/")
		}
	}
	return result, nil
}

// expandHome expands a leading ~ to the home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}
