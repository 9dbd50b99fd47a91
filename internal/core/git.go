package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/barysiuk/duckport/internal/logger"
)

const cloneTimeout = 60 * time.Second

// CloneErrorKind classifies why a git clone failed.
type CloneErrorKind int

const (
	CloneErrUnknown CloneErrorKind = iota
	CloneErrAuth
	CloneErrRepoNotFound
	CloneErrRefNotFound
	CloneErrNetwork
	CloneErrSSHKey
	CloneErrHostKey
	CloneErrTimeout
)

func (k CloneErrorKind) String() string {
	switch k {
	case CloneErrAuth:
		return "authentication required"
	case CloneErrRepoNotFound:
		return "repository not found"
	case CloneErrRefNotFound:
		return "ref not found"
	case CloneErrNetwork:
		return "network error"
	case CloneErrSSHKey:
		return "ssh key rejected"
	case CloneErrHostKey:
		return "ssh host key not trusted"
	case CloneErrTimeout:
		return "timed out"
	default:
		return "unknown error"
	}
}

// CloneError is returned when fetching a remote plugin source fails. Callers
// find it with errors.As and show Hints to the user.
type CloneError struct {
	Kind   CloneErrorKind
	URL    string
	Ref    string
	Output string
	Hints  []string
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("cloning %s: %s: %s", e.URL, e.Kind, e.reason())
}

func (e *CloneError) reason() string {
	for _, line := range strings.Split(e.Output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "Cloning into") {
			return line
		}
	}
	return "git exited with an error"
}

// outputPatterns maps lowercase fragments of git output to an error kind.
// The first matching group wins, so more specific groups come first.
var outputPatterns = []struct {
	kind      CloneErrorKind
	fragments []string
}{
	{CloneErrTimeout, []string{"timed out after"}},
	{CloneErrSSHKey, []string{"permission denied (publickey)", "no such identity", "load key"}},
	{CloneErrHostKey, []string{"host key verification failed", "known_hosts"}},
	{CloneErrRefNotFound, []string{"remote branch", "not found in upstream"}},
	{CloneErrAuth, []string{
		"could not read username", "could not read password",
		"authentication failed", "invalid credentials",
		"error: 401", "error: 403",
	}},
	{CloneErrRepoNotFound, []string{
		"repository not found", "does not appear to be a git repository",
		"project not found", "error: 404",
	}},
	{CloneErrNetwork, []string{
		"could not resolve host", "connection refused", "connection timed out",
		"network is unreachable", "no route to host",
	}},
}

func classifyOutput(output string) CloneErrorKind {
	lower := strings.ToLower(output)
	for _, group := range outputPatterns {
		for _, frag := range group.fragments {
			if strings.Contains(lower, frag) {
				return group.kind
			}
		}
	}
	return CloneErrUnknown
}

func newCloneError(url, ref, output string) *CloneError {
	kind := classifyOutput(output)
	return &CloneError{
		Kind:   kind,
		URL:    url,
		Ref:    ref,
		Output: strings.TrimSpace(output),
		Hints:  cloneHints(kind, url, ref),
	}
}

func cloneHints(kind CloneErrorKind, url, ref string) []string {
	switch kind {
	case CloneErrAuth:
		hints := []string{"Authenticate git for this host, e.g. `gh auth login` or a credential helper"}
		if alt := httpsToSSH(url); alt != "" {
			hints = append(hints, "Or convert from the SSH URL: duckport convert "+alt)
		}
		return hints
	case CloneErrSSHKey:
		hints := []string{"Check that an SSH key is loaded: `ssh-add -l`"}
		if alt := sshToHTTPS(url); alt != "" {
			hints = append(hints, "Or convert from the HTTPS URL: duckport convert "+alt)
		}
		return hints
	case CloneErrHostKey:
		return []string{"Connect once with `ssh -T` to the host and accept its key"}
	case CloneErrRepoNotFound:
		return []string{"Check the owner and repository name; private repositories need credentials"}
	case CloneErrRefNotFound:
		return []string{fmt.Sprintf("Check that the branch or tag %q exists", ref)}
	case CloneErrNetwork:
		return []string{"Check the host name and your network or proxy settings"}
	case CloneErrTimeout:
		return []string{fmt.Sprintf("The clone did not finish within %s; retry or convert from a local checkout", cloneTimeout)}
	default:
		return []string{"Run the clone by hand to see the full git output: " + cloneCommand(url, ref)}
	}
}

// httpsToSSH rewrites a GitHub/GitLab HTTPS clone URL to its SSH form.
func httpsToSSH(url string) string {
	for _, host := range []string{"github.com", "gitlab.com"} {
		if rest, ok := strings.CutPrefix(url, "https://"+host+"/"); ok {
			if !strings.HasSuffix(rest, ".git") {
				rest += ".git"
			}
			return "git@" + host + ":" + rest
		}
	}
	return ""
}

// sshToHTTPS rewrites a GitHub/GitLab SSH clone URL to its HTTPS form.
func sshToHTTPS(url string) string {
	rest, ok := strings.CutPrefix(url, "git@")
	if !ok {
		return ""
	}
	host, path, ok := strings.Cut(rest, ":")
	if !ok || (host != "github.com" && host != "gitlab.com") {
		return ""
	}
	return "https://" + host + "/" + path
}

func cloneArgs(url, ref string) []string {
	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	return append(args, url)
}

func cloneCommand(url, ref string) string {
	return "git " + strings.Join(cloneArgs(url, ref), " ")
}

// cloneRepo shallow-clones url into a fresh temp directory.
func cloneRepo(ctx context.Context, url, ref string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "duckport-clone-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append(cloneArgs(url, ref), tmpDir)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	logger.G(ctx).WithField("url", url).Debug("cloning plugin source")
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		out := string(output)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out = fmt.Sprintf("timed out after %s\n%s", cloneTimeout, out)
		} else if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newCloneError(url, ref, out)
	}
	return tmpDir, nil
}

// ResolveSource returns the plugin root directory for src. Remote sources are
// cloned; the returned cleanup removes the clone and must always be called.
func ResolveSource(ctx context.Context, src *ParsedSource) (string, func(), error) {
	noop := func() {}
	if !src.IsRemote() {
		return src.LocalPath, noop, nil
	}

	dir, err := cloneRepo(ctx, src.CloneURL, src.Ref)
	if err != nil {
		return "", noop, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	if src.SubPath == "" {
		return dir, cleanup, nil
	}
	sub := filepath.Clean(filepath.FromSlash(src.SubPath))
	if sub == ".." || strings.HasPrefix(sub, ".."+string(filepath.Separator)) || filepath.IsAbs(sub) {
		cleanup()
		return "", noop, fmt.Errorf("subpath %q leaves the repository", src.SubPath)
	}
	root := filepath.Join(dir, sub)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		cleanup()
		return "", noop, fmt.Errorf("subpath %q not found in %s", src.SubPath, src.String())
	}
	return root, cleanup, nil
}
