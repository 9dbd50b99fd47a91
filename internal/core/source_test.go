package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSource_Remote(t *testing.T) {
	tests := []struct {
		input    string
		typ      SourceType
		host     string
		owner    string
		repo     string
		cloneURL string
		ref      string
		subPath  string
	}{
		{
			input: "EveryInc/compound-engineering-plugin", typ: SourceTypeGitHub, host: "github.com",
			owner: "EveryInc", repo: "compound-engineering-plugin",
			cloneURL: "https://github.com/EveryInc/compound-engineering-plugin.git",
		},
		{
			input: "EveryInc/marketplace/plugins/compound-engineering", typ: SourceTypeGitHub, host: "github.com",
			owner: "EveryInc", repo: "marketplace",
			cloneURL: "https://github.com/EveryInc/marketplace.git",
			subPath:  "plugins/compound-engineering",
		},
		{
			input: "git@github.com:acme/plugins.git", typ: SourceTypeGitHub, host: "github.com",
			owner: "acme", repo: "plugins", cloneURL: "git@github.com:acme/plugins.git",
		},
		{
			input: "git@gitlab.com:team/tools.git", typ: SourceTypeGitLab, host: "gitlab.com",
			owner: "team", repo: "tools", cloneURL: "git@gitlab.com:team/tools.git",
		},
		{
			input: "https://github.com/acme/plugins", typ: SourceTypeGitHub, host: "github.com",
			owner: "acme", repo: "plugins", cloneURL: "https://github.com/acme/plugins.git",
		},
		{
			input: "https://git.internal.co/acme/plugins/tree/v2/plugins/review", typ: SourceTypeGit, host: "git.internal.co",
			owner: "acme", repo: "plugins", cloneURL: "https://git.internal.co/acme/plugins.git",
			ref: "v2", subPath: "plugins/review",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			src, err := ParseSource(tt.input)
			if err != nil {
				t.Fatalf("ParseSource() error: %v", err)
			}
			if src.Type != tt.typ {
				t.Errorf("Type = %q, want %q", src.Type, tt.typ)
			}
			if src.Host != tt.host {
				t.Errorf("Host = %q, want %q", src.Host, tt.host)
			}
			if src.Owner != tt.owner || src.Repo != tt.repo {
				t.Errorf("Owner/Repo = %q/%q, want %q/%q", src.Owner, src.Repo, tt.owner, tt.repo)
			}
			if src.CloneURL != tt.cloneURL {
				t.Errorf("CloneURL = %q, want %q", src.CloneURL, tt.cloneURL)
			}
			if src.Ref != tt.ref {
				t.Errorf("Ref = %q, want %q", src.Ref, tt.ref)
			}
			if src.SubPath != tt.subPath {
				t.Errorf("SubPath = %q, want %q", src.SubPath, tt.subPath)
			}
			if !src.IsRemote() {
				t.Error("expected remote source")
			}
		})
	}
}

func TestParseSource_LocalPath(t *testing.T) {
	dir := t.TempDir()

	src, err := ParseSource(dir)
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if src.Type != SourceTypeLocal {
		t.Errorf("Type = %q, want %q", src.Type, SourceTypeLocal)
	}
	if src.LocalPath != dir {
		t.Errorf("LocalPath = %q, want %q", src.LocalPath, dir)
	}
	if src.IsRemote() || src.String() != dir {
		t.Errorf("local source = %+v", src)
	}
}

func TestParseSource_LocalRelativePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "my-plugin"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	src, err := ParseSource("./my-plugin")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(dir, "my-plugin"))
	got, _ := filepath.EvalSymlinks(src.LocalPath)
	if got != want {
		t.Errorf("LocalPath = %q, want %q", got, want)
	}
}

func TestParseSource_LocalErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plugin.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ParseSource(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
	if _, err := ParseSource(file); err == nil {
		t.Error("expected error for file path")
	}
}

func TestParseSource_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "just-a-name", "git@github.com"} {
		if _, err := ParseSource(input); err == nil {
			t.Errorf("ParseSource(%q) expected error", input)
		}
	}
}

func TestParseSource_FileURL(t *testing.T) {
	src, err := ParseSource("file:///srv/git/plugins.git")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if src.Type != SourceTypeGit || !src.IsRemote() {
		t.Errorf("source = %+v", src)
	}
	if src.CloneURL != "file:///srv/git/plugins.git" || src.String() != src.CloneURL {
		t.Errorf("CloneURL = %q, String() = %q", src.CloneURL, src.String())
	}
}

func TestParsedSource_String(t *testing.T) {
	src, err := ParseSource("https://github.com/acme/plugins/tree/main/plugins/review")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if got := src.String(); got != "acme/plugins/plugins/review@main" {
		t.Errorf("String() = %q", got)
	}
}
