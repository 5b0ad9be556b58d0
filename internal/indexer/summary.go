package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Summary describes the environment the assistant runs in.
type Summary struct {
	OS          string
	Arch        string
	Shell       string
	WorkDir     string
	ProjectType string
	Git         *GitStatus // nil outside a git repository
}

// Describe gathers the summary for dir.
func Describe(ctx context.Context, dir string) Summary {
	s := Summary{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		Shell:       os.Getenv("SHELL"),
		WorkDir:     dir,
		ProjectType: DetectProjectType(dir),
	}
	if s.Shell == "" {
		s.Shell = "/bin/sh"
		if runtime.GOOS == "windows" {
			s.Shell = "cmd"
		}
	}
	if DetectGit(ctx, dir).IsGit {
		st := GetGitStatus(ctx, dir)
		s.Git = &st
	}
	return s
}

// String renders the summary as a short block for the system prompt.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "os: %s/%s\n", s.OS, s.Arch)
	fmt.Fprintf(&b, "shell: %s\n", s.Shell)
	fmt.Fprintf(&b, "working directory: %s\n", s.WorkDir)
	fmt.Fprintf(&b, "project type: %s\n", s.ProjectType)
	if s.Git != nil {
		fmt.Fprintf(&b, "git: branch %s, %s\n", s.Git.Branch, s.Git.Status)
	} else {
		b.WriteString("git: not a repository\n")
	}
	return b.String()
}

// CachedSummary computes the summary once per process and directory.
type CachedSummary struct {
	dir  string
	once sync.Once
	text string
}

// NewCachedSummary creates a lazily computed summary of dir.
func NewCachedSummary(dir string) *CachedSummary {
	return &CachedSummary{dir: dir}
}

// String returns the rendered summary.
func (c *CachedSummary) String(ctx context.Context) string {
	c.once.Do(func() { c.text = Describe(ctx, c.dir).String() })
	return c.text
}

// DetectProjectType detects the project type from manifest files.
func DetectProjectType(dir string) string {
	manifests := []struct{ file, kind string }{
		{"go.mod", "go"},
		{"package.json", "node"},
		{"pyproject.toml", "python"},
		{"requirements.txt", "python"},
		{"setup.py", "python"},
		{"Cargo.toml", "rust"},
		{"Gemfile", "ruby"},
		{"pom.xml", "java"},
	}
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(dir, m.file)); err == nil {
			return m.kind
		}
	}
	return "unknown"
}
