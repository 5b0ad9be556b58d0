package editing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/filesystem"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		initial  *string
		old      string
		new      string
		want     string
		wantKind protocol.FailureKind
		created  bool
		same     bool
	}{
		{name: "single match", initial: str("a\nfoo\nb\n"), old: "foo", new: "bar", want: "a\nbar\nb\n"},
		{name: "no match", initial: str("a\n"), old: "zzz", new: "y", want: "a\n", wantKind: protocol.FailNoMatch},
		{name: "ambiguous", initial: str("x\nx\n"), old: "x", new: "y", want: "x\nx\n", wantKind: protocol.FailAmbiguousMatch},
		{name: "append on empty old", initial: str("a\n"), old: "", new: "b\n", want: "a\nb\n"},
		{name: "identical texts", initial: str("keep\n"), old: "keep", new: "keep", want: "keep\n", same: true},
		{name: "create missing with empty old", initial: nil, old: "", new: "fresh\n", want: "fresh\n", created: true},
		{name: "missing with non-empty old", initial: nil, old: "x", new: "y", wantKind: protocol.FailFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			abs := filepath.Join(dir, "sub", "f.txt")
			if tt.initial != nil {
				os.MkdirAll(filepath.Dir(abs), 0755)
				if err := os.WriteFile(abs, []byte(*tt.initial), 0644); err != nil {
					t.Fatal(err)
				}
			}
			res, err := Apply(filesystem.NewOSFileSystem(), abs, "sub/f.txt", tt.old, tt.new)
			if tt.wantKind != protocol.FailNone {
				if filesystem.KindOf(err) != tt.wantKind {
					t.Fatalf("Apply() error = %v, want %s", err, tt.wantKind)
				}
			} else if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if res.Created != tt.created || res.Unchanged != tt.same {
				t.Errorf("Apply() = %+v", res)
			}
			got, readErr := os.ReadFile(abs)
			if tt.initial == nil && tt.wantKind != protocol.FailNone {
				if readErr == nil {
					t.Error("failed edit created a file")
				}
				return
			}
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyTwiceFailsWithNoMatch(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "m.py")
	os.WriteFile(abs, []byte("def foo(): pass"), 0644)
	fsys := filesystem.NewOSFileSystem()

	if _, err := Apply(fsys, abs, "m.py", "def foo(): pass", "def foo(): return 1"); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	_, err := Apply(fsys, abs, "m.py", "def foo(): pass", "def foo(): return 1")
	if filesystem.KindOf(err) != protocol.FailNoMatch {
		t.Fatalf("second Apply() error = %v, want NoMatch", err)
	}
	if !strings.Contains(err.Error(), "def foo(): pass") {
		t.Errorf("NoMatch should echo the searched text: %q", err.Error())
	}
}

func TestApplyWhitespaceHint(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "h.go")
	os.WriteFile(abs, []byte("func f() {\n\treturn 1\n}\n"), 0644)
	_, err := Apply(filesystem.NewOSFileSystem(), abs, "h.go", "    return 1", "    return 2")
	if err == nil || !strings.Contains(err.Error(), "hint:") {
		t.Errorf("expected whitespace hint, got %v", err)
	}
	got, _ := os.ReadFile(abs)
	if !strings.Contains(string(got), "\treturn 1") {
		t.Error("indentation must never be applied automatically")
	}
}

func TestResultBody(t *testing.T) {
	if got := (Result{Line: 3}).Body("a.go"); got != "replaced 1 occurrence in a.go at line 3" {
		t.Errorf("Body() = %q", got)
	}
	if got := (Result{Created: true}).Body("a.go"); got != "created a.go" {
		t.Errorf("Body() = %q", got)
	}
}

func str(s string) *string { return &s }
