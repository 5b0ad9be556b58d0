// Package workspace implements the requests that act on the session rather
// than on file contents: the context-file set and git commits.
package workspace

import (
	"fmt"
	"strings"
)

// ContextFiles is the session's set of files shown to the model on every call.
type ContextFiles interface {
	Add(paths ...string) ([]string, []error)
	Drop(paths ...string) (dropped, missing []string)
	Trust(paths ...string)
}

// AddContext adds paths to the set. It fails only when nothing was added
// and at least one path was refused.
func AddContext(cs ContextFiles, paths []string) (string, bool) {
	added, errs := cs.Add(paths...)
	var b strings.Builder
	if len(added) > 0 {
		fmt.Fprintf(&b, "added to context: %s", strings.Join(added, ", "))
	} else if len(errs) == 0 {
		b.WriteString("already in context: " + strings.Join(paths, ", "))
	}
	for _, err := range errs {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(err.Error())
	}
	return b.String(), len(added) > 0 || len(errs) == 0
}

// DropContext removes paths from the set, reporting the ones not present.
func DropContext(cs ContextFiles, paths []string) (string, bool) {
	dropped, missing := cs.Drop(paths...)
	var b strings.Builder
	if len(dropped) > 0 {
		fmt.Fprintf(&b, "dropped from context: %s", strings.Join(dropped, ", "))
	}
	for _, p := range missing {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: not in context", p)
	}
	return b.String(), len(dropped) > 0
}
