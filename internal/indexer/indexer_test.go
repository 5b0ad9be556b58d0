package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestWalkerHonorsGitignore(t *testing.T) {
	dir := writeTree(t, map[string]string{
		".gitignore":        "*.log\nsecret/\n",
		"main.go":           "package main\n",
		"debug.log":         "noise",
		"secret/key.txt":    "k",
		"node_modules/x.js": "x",
		"pkg/.gitignore":    "gen.go\n",
		"pkg/gen.go":        "package pkg\n",
		"pkg/real.go":       "package pkg\n",
		"image.png":         "\x89PNG",
	})

	var got []string
	for _, f := range NewWalker(dir).Walk() {
		got = append(got, f.Path)
	}
	want := []string{"main.go", "pkg/real.go"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Walk() = %v, want %v", got, want)
	}
}

func TestDeclarationsGo(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go": `package a

const Limit = 3

var _ = Limit

type Server struct{ n int }

type Handler interface{ Serve() }

func New(n int, name string) *Server { return &Server{n: n} }

func (s *Server) Run(ctx any) (err error) { return nil }
`,
	})
	got := Declarations(filepath.Join(dir, "a.go"))
	want := []string{
		"const Limit",
		"type Server struct",
		"type Handler interface",
		"func New(n int, name string) *Server",
		"func (*Server) Run(ctx any) (err error)",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Declarations() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestDeclarationsOtherLanguages(t *testing.T) {
	tests := []struct {
		name string
		file string
		src  string
		want []string
	}{
		{"python", "m.py", "import os\n\nclass Foo:\n    def bar(self):\n        pass\n\ndef main():\n    pass\n", []string{"class Foo", "def bar(self)", "def main()"}},
		{"javascript", "m.js", "export function run() {\n}\nconst x = 1\nclass Box {\n}\n", []string{"export function run()", "class Box"}},
		{"unknown extension", "notes.md", "# def not code\n", nil},
		{"broken go", "b.go", "package b\nfunc (\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeTree(t, map[string]string{tt.file: tt.src})
			got := Declarations(filepath.Join(dir, tt.file))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Declarations() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepoMapCachesUntilInvalidated(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.go": "package a\n\nfunc Alpha() {}\n"})
	m := NewRepoMap(dir, nil)
	ctx := context.Background()

	first := m.String(ctx)
	if !strings.Contains(first, "a.go\n  func Alpha()") {
		t.Fatalf("map missing declaration:\n%s", first)
	}

	os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\n\nfunc Beta() {}\n"), 0644)
	if got := m.String(ctx); got != first {
		t.Errorf("map changed before Invalidate:\n%s", got)
	}
	m.Invalidate()
	if got := m.String(ctx); !strings.Contains(got, "func Beta()") {
		t.Errorf("map not rebuilt after Invalidate:\n%s", got)
	}
}

func TestSearchIndex(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go":       "package a\n\n// the widget factory\nfunc Make() {}\n",
		"b.txt":      "nothing here\nanother widget line\n",
		"c.go":       "package c\n",
		".gitignore": "skip/\n",
		"skip/d.go":  "// widget hidden\n",
	})
	idx := NewSearchIndex(dir, nil)
	defer idx.Close()

	hits, err := idx.Search(context.Background(), "widget", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	got := map[string]bool{}
	for _, h := range hits {
		got[h.String()] = true
	}
	for _, want := range []string{"a.go:3: // the widget factory", "b.txt:2: another widget line"} {
		if !got[want] {
			t.Errorf("missing hit %q in %v", want, hits)
		}
	}
	if len(hits) != 2 {
		t.Errorf("hits = %v, want 2", hits)
	}

	os.WriteFile(filepath.Join(dir, "c.go"), []byte("package c\n// widget added\n"), 0644)
	idx.Invalidate()
	hits, err = idx.Search(context.Background(), "widget", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("after Invalidate hits = %v, want 3", hits)
	}
}

func TestSearchIndexLimitAndEmpty(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "foo\nfoo\nfoo\n"})
	idx := NewSearchIndex(dir, nil)
	defer idx.Close()

	hits, err := idx.Search(context.Background(), "foo", 2)
	if err != nil || len(hits) != 2 {
		t.Errorf("Search(limit 2) = %v, %v", hits, err)
	}
	if _, err := idx.Search(context.Background(), "  ", 2); err == nil {
		t.Error("empty query should fail")
	}
	hits, err = idx.Search(context.Background(), "absent", 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("Search(absent) = %v, %v", hits, err)
	}
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

func TestFileWatcherInvalidates(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.go": "package a\n"})
	target := &countingInvalidator{}
	fw, err := NewFileWatcher(dir, nil, target)
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.Start(); err != nil {
		t.Fatal(err)
	}
	defer fw.Stop()

	if err := os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\n"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for target.n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if target.n.Load() == 0 {
		t.Error("watcher never invalidated target")
	}
}

func TestDetectProjectType(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"go", map[string]string{"go.mod": "module x\n"}, "go"},
		{"node", map[string]string{"package.json": "{}"}, "node"},
		{"python", map[string]string{"requirements.txt": ""}, "python"},
		{"unknown", map[string]string{"README": ""}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectProjectType(writeTree(t, tt.files)); got != tt.want {
				t.Errorf("DetectProjectType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{OS: "linux", Arch: "amd64", Shell: "/bin/bash", WorkDir: "/w", ProjectType: "go"}
	got := s.String()
	for _, want := range []string{"os: linux/amd64", "shell: /bin/bash", "working directory: /w", "git: not a repository"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q:\n%s", want, got)
		}
	}
}
