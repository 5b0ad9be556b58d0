package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/ChamsBouzaiene/nanocoder/internal/patch"
)

// WriteResult describes a completed write.
type WriteResult struct {
	Created bool
	Bytes   int
}

// Write creates or replaces abs with content, creating parent directories.
// With validate set, Go, JSON and YAML content must parse; otherwise the
// file is left untouched and an InvalidContent error is returned.
func Write(fsys FileSystem, abs, rel, content string, validate bool) (WriteResult, error) {
	if validate {
		if err := patch.Validate(rel, content); err != nil {
			cause := err.Error()
			var ice *patch.InvalidContentError
			if errors.As(err, &ice) {
				cause = "not valid " + ice.Lang + ": " + ice.Cause
			}
			return WriteResult{}, &OpError{Path: rel, Kind: protocol.FailInvalidContent, Cause: cause, Err: err}
		}
	}

	res := WriteResult{Bytes: len(content)}
	perm := os.FileMode(0644)
	info, err := fsys.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return WriteResult{}, &OpError{Path: rel, Kind: protocol.FailIO, Cause: "is a directory"}
		}
		perm = info.Mode().Perm()
	case errors.Is(err, fs.ErrNotExist):
		res.Created = true
	default:
		return WriteResult{}, WriteError(rel, err)
	}

	if err := fsys.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return WriteResult{}, WriteError(rel, err)
	}
	if err := fsys.WriteFile(abs, []byte(content), perm); err != nil {
		return WriteResult{}, WriteError(rel, err)
	}
	return res, nil
}
