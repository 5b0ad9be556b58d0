package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestContextSetAddDrop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "pkg/b.go", "package b\n")

	cs := NewContextSet(dir, 0)
	added, errs := cs.Add("a.go", "pkg/b.go", "a.go", "missing.go", "../outside.txt")
	if len(added) != 2 {
		t.Errorf("added = %v, want 2 files", added)
	}
	if len(errs) != 2 {
		t.Errorf("errs = %v, want 2 errors", errs)
	}
	if got := cs.Files(); len(got) != 2 || got[0] != "a.go" || got[1] != "pkg/b.go" {
		t.Errorf("Files() = %v", got)
	}

	dropped, missing := cs.Drop("a.go", "nope.go")
	if len(dropped) != 1 || dropped[0] != "a.go" {
		t.Errorf("dropped = %v", dropped)
	}
	if len(missing) != 1 || missing[0] != "nope.go" {
		t.Errorf("missing = %v", missing)
	}
	if cs.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cs.Len())
	}
}

func TestContextSetAbsolutePathInsideRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.txt", "x")
	cs := NewContextSet(dir, 0)
	added, errs := cs.Add(filepath.Join(dir, "x.txt"))
	if len(errs) != 0 || len(added) != 1 || added[0] != "x.txt" {
		t.Errorf("Add(abs) = %v, %v", added, errs)
	}
}

func TestContextSetSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "bin.dat", "\x00\x01\x02\xff")
	writeFile(t, dir, "big.txt", strings.Repeat("z", 100))
	writeFile(t, dir, "gone.txt", "soon deleted")

	cs := NewContextSet(dir, 10)
	cs.Add("a.txt", "bin.dat", "big.txt", "gone.txt")
	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	snap := cs.Snapshot()
	for _, want := range []string{
		"<file path=\"a.txt\">\nalpha\n</file>",
		"(binary file, content omitted)",
		"[TRUNCATED at 10 bytes]",
		"(file no longer exists)",
	} {
		if !strings.Contains(snap, want) {
			t.Errorf("Snapshot() missing %q:\n%s", want, snap)
		}
	}
}

func TestContextSetSnapshotWithholdsOutsideLinks(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "secret.txt", "TOP SECRET")
	writeFile(t, dir, "inner.txt", "inner")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "inner.txt"), filepath.Join(dir, "local.txt")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		trust   bool
		want    string
		wantNot string
	}{
		{name: "untrusted link is withheld", want: "(resolves outside the working directory, content omitted)", wantNot: "TOP SECRET"},
		{name: "trusted link is shown", trust: true, want: "TOP SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewContextSet(dir, 0)
			if _, errs := cs.Add("link.txt", "local.txt"); len(errs) != 0 {
				t.Fatalf("Add errs = %v", errs)
			}
			if tt.trust {
				cs.Trust("link.txt")
			}
			snap := cs.Snapshot()
			if !strings.Contains(snap, tt.want) {
				t.Errorf("Snapshot() missing %q:\n%s", tt.want, snap)
			}
			if tt.wantNot != "" && strings.Contains(snap, tt.wantNot) {
				t.Errorf("Snapshot() leaked %q:\n%s", tt.wantNot, snap)
			}
			if !strings.Contains(snap, "<file path=\"local.txt\">\ninner\n</file>") {
				t.Errorf("link inside the root should be shown:\n%s", snap)
			}
		})
	}
}

func TestContextSetDropForgetsTrust(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "secret.txt", "TOP SECRET")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	cs := NewContextSet(dir, 0)
	cs.Add("link.txt")
	cs.Trust("link.txt")
	cs.Drop("link.txt")
	cs.Add("link.txt")
	if snap := cs.Snapshot(); strings.Contains(snap, "TOP SECRET") {
		t.Errorf("re-added link kept its old approval:\n%s", snap)
	}
}

func TestContextSetEmptySnapshot(t *testing.T) {
	if got := NewContextSet(t.TempDir(), 0).Snapshot(); got != "" {
		t.Errorf("Snapshot() = %q, want empty", got)
	}
}

func TestIsBinaryToleratesCutRune(t *testing.T) {
	data := []byte(strings.Repeat("a", 7999) + "é" + "tail")
	if isBinary(data) {
		t.Error("text with a rune across the sniff boundary reported as binary")
	}
}

func TestNewInfo(t *testing.T) {
	a := NewInfo("/repo")
	b := NewInfo("/repo/")
	if a.ID == b.ID {
		t.Error("session IDs should be unique")
	}
	if a.RepoHash != b.RepoHash {
		t.Error("RepoHash should ignore trailing separators")
	}
	if len(a.RepoHash) != 12 {
		t.Errorf("RepoHash length = %d, want 12", len(a.RepoHash))
	}
}
