package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// Confirmer asks the operator to approve an action. An error (including
// end of input) counts as a decline.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// DeclineAll refuses every confirmation.
var DeclineAll Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })

// resolved is a request target located relative to the working directory.
type resolved struct {
	abs     string
	rel     string // slash-separated when inside the working directory
	reasons []string
}

func (r resolved) display() string {
	if r.rel != "" {
		return r.rel
	}
	return r.abs
}

// resolve locates target and records why touching it needs approval.
func (e *Executor) resolve(target string, write bool) resolved {
	root := e.cfg.WorkDir
	abs := filepath.Clean(target)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, target)
	}
	r := resolved{abs: abs}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		r.reasons = append(r.reasons, "outside the working directory")
		return r
	}
	r.rel = filepath.ToSlash(rel)

	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := e.fs.Lstat(cur)
		if err != nil {
			break
		}
		if info.Mode()&os.ModeSymlink != 0 {
			r.reasons = append(r.reasons, "traverses a symbolic link")
			break
		}
	}

	if write && e.protected(r.rel) {
		r.reasons = append(r.reasons, "protected path")
	}
	return r
}

// protected reports whether rel or one of its parents matches a protected
// pattern. Patterns are compared per path element and may use globs.
func (e *Executor) protected(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, pattern := range e.cfg.Protected() {
		pattern = strings.Trim(filepath.ToSlash(pattern), "/")
		if pattern == "" {
			continue
		}
		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return true
		}
		for _, p := range parts {
			if ok, _ := filepath.Match(pattern, p); ok {
				return true
			}
		}
	}
	return false
}

// approve asks the operator when the target needs it. It returns a failure
// result when the action must not proceed.
func (e *Executor) approve(ctx context.Context, req protocol.ToolRequest, verb string, r resolved) *protocol.ToolResult {
	if len(r.reasons) == 0 {
		return nil
	}
	prompt := fmt.Sprintf("%s %s (%s)?", verb, r.display(), strings.Join(r.reasons, ", "))
	return e.ask(ctx, req, prompt)
}

func (e *Executor) ask(ctx context.Context, req protocol.ToolRequest, prompt string) *protocol.ToolResult {
	ok, err := e.confirm.Confirm(ctx, prompt)
	if ctx.Err() != nil {
		res := protocol.Failed(req, protocol.FailCancelled, "cancelled while waiting for confirmation")
		return &res
	}
	if err != nil || !ok {
		res := protocol.Failed(req, protocol.FailDeclined, "declined by operator")
		return &res
	}
	return nil
}
