// Package editing applies exact old/new text replacements to files.
package editing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/ChamsBouzaiene/nanocoder/internal/patch"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/filesystem"
)

// Result describes a successful edit.
type Result struct {
	Created   bool
	Unchanged bool
	Line      int // 1-based line where the replacement starts
}

// Body renders the result for the model.
func (r Result) Body(rel string) string {
	switch {
	case r.Created:
		return fmt.Sprintf("created %s", rel)
	case r.Unchanged:
		return fmt.Sprintf("%s unchanged: old and new text are identical", rel)
	default:
		return fmt.Sprintf("replaced 1 occurrence in %s at line %d", rel, r.Line)
	}
}

// Apply replaces the single occurrence of oldText in abs with newText and
// persists the file only when the replacement succeeds. A missing file is
// created when oldText is empty.
func Apply(fsys filesystem.FileSystem, abs, rel, oldText, newText string) (Result, error) {
	data, err := fsys.ReadFile(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if oldText != "" {
			return Result{}, filesystem.ReadError(rel, err)
		}
		if err := fsys.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return Result{}, filesystem.WriteError(rel, err)
		}
		if err := fsys.WriteFile(abs, []byte(newText), 0644); err != nil {
			return Result{}, filesystem.WriteError(rel, err)
		}
		return Result{Created: true, Line: 1}, nil
	case err != nil:
		return Result{}, filesystem.ReadError(rel, err)
	}

	content := string(data)
	updated, err := patch.Replace(content, oldText, newText)
	if err != nil {
		return Result{}, classify(rel, err)
	}

	line := 1
	if oldText == "" {
		line = countLines(content) + 1
	} else if offs := patch.Occurrences(content, oldText); len(offs) > 0 {
		line = countLines(content[:offs[0]]) + 1
	}
	if updated == content {
		return Result{Unchanged: true, Line: line}, nil
	}

	perm := os.FileMode(0644)
	if info, err := fsys.Stat(abs); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fsys.WriteFile(abs, []byte(updated), perm); err != nil {
		return Result{}, filesystem.WriteError(rel, err)
	}
	return Result{Line: line}, nil
}

func countLines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}

func classify(rel string, err error) error {
	var nm *patch.NoMatchError
	if errors.As(err, &nm) {
		cause := "old text not found:\n" + nm.Old
		if nm.WhitespaceOnly {
			cause += "\nhint: the text matches when whitespace is ignored; the file is indented with " + nm.Indentation
		}
		return &filesystem.OpError{Path: rel, Kind: protocol.FailNoMatch, Cause: cause, Err: err}
	}
	var am *patch.AmbiguousMatchError
	if errors.As(err, &am) {
		return &filesystem.OpError{Path: rel, Kind: protocol.FailAmbiguousMatch, Cause: am.Error(), Err: err}
	}
	return &filesystem.OpError{Path: rel, Kind: protocol.FailIO, Cause: err.Error(), Err: err}
}
