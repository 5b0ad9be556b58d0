package session

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ContextSet is the list of files whose current contents accompany every
// model call. Paths are stored relative to the working directory, in the
// order they were added.
type ContextSet struct {
	root     string
	maxBytes int64
	files    []string
	trusted  map[string]bool // cleared to resolve outside root
}

// NewContextSet creates an empty set rooted at root. Each file is cut to
// maxBytes when rendered (<= 0 means no limit).
func NewContextSet(root string, maxBytes int64) *ContextSet {
	return &ContextSet{root: root, maxBytes: maxBytes}
}

// Add appends files that exist and are not already present. It returns the
// paths it added and one error per path it refused.
func (c *ContextSet) Add(paths ...string) ([]string, []error) {
	var added []string
	var errs []error
	for _, p := range paths {
		rel, err := c.rel(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		info, err := os.Stat(filepath.Join(c.root, rel))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: no such file", rel))
			continue
		}
		if info.IsDir() {
			errs = append(errs, fmt.Errorf("%s: is a directory", rel))
			continue
		}
		if c.Contains(rel) {
			continue
		}
		c.files = append(c.files, rel)
		added = append(added, rel)
	}
	return added, errs
}

// Drop removes files from the set, returning the ones that were present and
// the ones that were not.
func (c *ContextSet) Drop(paths ...string) (dropped, missing []string) {
	for _, p := range paths {
		rel, err := c.rel(p)
		if err != nil || !c.Contains(rel) {
			missing = append(missing, p)
			continue
		}
		delete(c.trusted, rel)
		kept := c.files[:0]
		for _, f := range c.files {
			if f != rel {
				kept = append(kept, f)
			}
		}
		c.files = kept
		dropped = append(dropped, rel)
	}
	return dropped, missing
}

// Contains reports whether rel is in the set.
func (c *ContextSet) Contains(rel string) bool {
	for _, f := range c.files {
		if f == rel {
			return true
		}
	}
	return false
}

// Files returns the paths in insertion order.
func (c *ContextSet) Files() []string {
	return append([]string(nil), c.files...)
}

// Len is the number of files in the set.
func (c *ContextSet) Len() int { return len(c.files) }

// Clear empties the set.
func (c *ContextSet) Clear() {
	c.files = nil
	c.trusted = nil
}

// Trust marks files of the set whose symbolic links the operator approved.
// Snapshot withholds the content of any other file that resolves outside
// the root.
func (c *ContextSet) Trust(paths ...string) {
	for _, p := range paths {
		rel, err := c.rel(p)
		if err != nil || !c.Contains(rel) {
			continue
		}
		if c.trusted == nil {
			c.trusted = make(map[string]bool)
		}
		c.trusted[rel] = true
	}
}

// escapes reports whether rel resolves to a location outside the root.
func (c *ContextSet) escapes(rel string) bool {
	root, err := filepath.EvalSymlinks(c.root)
	if err != nil {
		root = c.root
	}
	target, err := filepath.EvalSymlinks(filepath.Join(c.root, rel))
	if err != nil {
		return false
	}
	r, err := filepath.Rel(root, target)
	return err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator))
}

// Snapshot renders the current content of every file. Files that vanished or
// hold binary data are listed with a note instead of content.
func (c *ContextSet) Snapshot() string {
	if len(c.files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Files in context (current contents):\n")
	for _, rel := range c.files {
		if !c.trusted[rel] && c.escapes(rel) {
			fmt.Fprintf(&b, "\n<file path=%q>\n(resolves outside the working directory, content omitted)\n</file>\n", rel)
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.root, rel))
		switch {
		case err != nil:
			fmt.Fprintf(&b, "\n<file path=%q>\n(file no longer exists)\n</file>\n", rel)
			continue
		case isBinary(data):
			fmt.Fprintf(&b, "\n<file path=%q>\n(binary file, content omitted)\n</file>\n", rel)
			continue
		}
		note := ""
		if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
			data = data[:c.maxBytes]
			note = fmt.Sprintf("[TRUNCATED at %d bytes]\n", c.maxBytes)
		}
		text := string(data)
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		fmt.Fprintf(&b, "\n<file path=%q>\n%s%s</file>\n", rel, text, note)
	}
	return b.String()
}

func (c *ContextSet) rel(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(c.root, p)
	}
	rel, err := filepath.Rel(c.root, filepath.Clean(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: outside the working directory", p)
	}
	return filepath.ToSlash(rel), nil
}

func isBinary(data []byte) bool {
	head := data
	cut := len(head) > 8000
	if cut {
		head = head[:8000]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	valid := utf8.Valid(head)
	// a multi-byte rune split by the cut is not binary content
	for trim := 1; cut && !valid && trim < utf8.UTFMax; trim++ {
		valid = utf8.Valid(head[:len(head)-trim])
	}
	return !valid
}
