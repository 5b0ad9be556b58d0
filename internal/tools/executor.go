// Package tools executes parsed tool requests against the working
// directory, one result per request, strictly in order.
package tools

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/ChamsBouzaiene/nanocoder/internal/indexer"
	"github.com/ChamsBouzaiene/nanocoder/internal/sandbox"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/editing"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/execution"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/filesystem"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/search"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/workspace"
	"github.com/docker/go-units"
	"github.com/google/uuid"
)

// Journal records before-images so a batch can be undone.
type Journal interface {
	Record(ctx context.Context, batchID, path string) error
}

// Deps are the collaborators of an Executor. Nil fields get defaults: the
// OS filesystem, a host shell runner and a confirmer that declines.
type Deps struct {
	FS         filesystem.FileSystem
	Runner     sandbox.Runner
	Confirmer  Confirmer
	Journal    Journal
	Searcher   search.Searcher
	Context    workspace.ContextFiles
	Invalidate []indexer.Invalidator
}

// Executor runs tool requests for one session.
type Executor struct {
	cfg     config.Config
	reg     *Registry
	fs      filesystem.FileSystem
	runner  sandbox.Runner
	confirm Confirmer
	deps    Deps
}

// NewExecutor creates an executor bound to cfg.WorkDir.
func NewExecutor(cfg config.Config, deps Deps) (*Executor, error) {
	reg, err := NewRegistry(Specs)
	if err != nil {
		return nil, err
	}
	e := &Executor{cfg: cfg.WithWorkDir(cfg.WorkDir), reg: reg, deps: deps}
	e.fs = deps.FS
	if e.fs == nil {
		e.fs = filesystem.NewOSFileSystem()
	}
	e.runner = deps.Runner
	if e.runner == nil {
		e.runner = sandbox.NewHostRunner(sandbox.OptionsFrom(cfg))
	}
	e.confirm = deps.Confirmer
	if e.confirm == nil {
		e.confirm = DeclineAll
	}
	return e, nil
}

// batch is the state shared by the requests of one Execute call.
type batch struct {
	id        string
	changed   []string
	seen      map[string]bool
	committed bool
}

func (b *batch) markChanged(rel string) {
	if rel == "" || b.seen[rel] {
		return
	}
	b.seen[rel] = true
	b.changed = append(b.changed, rel)
}

// Execute runs reqs in order and returns exactly one result per request.
// Once ctx is cancelled the remaining requests report Cancelled.
func (e *Executor) Execute(ctx context.Context, reqs []protocol.ToolRequest) protocol.Batch {
	b := &batch{id: uuid.NewString(), seen: map[string]bool{}}
	out := protocol.Batch{ID: b.id, Results: make([]protocol.ToolResult, 0, len(reqs))}

	for _, req := range reqs {
		var res protocol.ToolResult
		if ctx.Err() != nil {
			res = protocol.Failed(req, protocol.FailCancelled, "not executed: operation cancelled")
		} else {
			res = e.executeOne(ctx, b, req)
		}
		log.Printf("tool batch=%s kind=%s outcome=%s failure=%s", b.id[:8], req.Kind, res.Outcome, res.Failure)
		out.Results = append(out.Results, res)
	}

	if e.cfg.AutoCommit && len(b.changed) > 0 && !b.committed && ctx.Err() == nil {
		body, err := workspace.Commit(ctx, e.cfg.WorkDir, b.changed, e.cfg.CommitMessage)
		if err != nil {
			out.AutoCommit = "auto-commit failed: " + err.Error()
		} else {
			out.AutoCommit = body
		}
		log.Printf("auto-commit batch=%s result=%q", b.id[:8], out.AutoCommit)
	}

	out.Changed = append([]string(nil), b.changed...)
	if len(out.Changed) > 0 {
		e.invalidate()
	}
	return out
}

func (e *Executor) invalidate() {
	for _, inv := range e.deps.Invalidate {
		inv.Invalidate()
	}
}

func (e *Executor) executeOne(ctx context.Context, b *batch, req protocol.ToolRequest) protocol.ToolResult {
	if err := e.reg.Validate(req); err != nil {
		return protocol.Failed(req, protocol.FailInvalidRequest, err.Error())
	}

	switch req.Kind {
	case protocol.KindReadFile:
		return e.readFile(ctx, req)
	case protocol.KindWriteFile:
		return e.writeFile(ctx, b, req)
	case protocol.KindEditFile:
		return e.editFile(ctx, b, req)
	case protocol.KindRunShell:
		return e.runShell(ctx, req)
	case protocol.KindSearchCode:
		return e.searchCode(ctx, req)
	case protocol.KindAddContext, protocol.KindDropContext:
		return e.contextFiles(ctx, req)
	case protocol.KindCommit:
		return e.commit(ctx, b, req)
	}
	return protocol.Failed(req, protocol.FailInvalidRequest, fmt.Sprintf("unknown request kind %q", req.Kind))
}

func fileFailure(req protocol.ToolRequest, err error) protocol.ToolResult {
	return protocol.Failed(req, filesystem.KindOf(err), err.Error())
}

func (e *Executor) readFile(ctx context.Context, req protocol.ToolRequest) protocol.ToolResult {
	r := e.resolve(req.Target, false)
	if res := e.approve(ctx, req, "Read", r); res != nil {
		return *res
	}
	c, err := filesystem.Read(e.fs, r.abs, r.display(), e.cfg.MaxReadBytes)
	if err != nil {
		return fileFailure(req, err)
	}
	return protocol.Succeeded(req, c.Body())
}

// journaled records a before-image at the first write that reaches the
// disk, so operations that fail beforehand leave no trace in the journal.
type journaled struct {
	filesystem.FileSystem
	record func()
}

func (j *journaled) WriteFile(name string, data []byte, perm os.FileMode) error {
	if j.record != nil {
		j.record()
		j.record = nil
	}
	return j.FileSystem.WriteFile(name, data, perm)
}

func (e *Executor) recording(ctx context.Context, b *batch, r resolved) filesystem.FileSystem {
	if e.deps.Journal == nil {
		return e.fs
	}
	return &journaled{FileSystem: e.fs, record: func() {
		if err := e.deps.Journal.Record(ctx, b.id, r.abs); err != nil {
			log.Printf("WARNING: undo journal: %v", err)
		}
	}}
}

func (e *Executor) writeFile(ctx context.Context, b *batch, req protocol.ToolRequest) protocol.ToolResult {
	r := e.resolve(req.Target, true)
	if res := e.approve(ctx, req, "Write", r); res != nil {
		return *res
	}
	content := req.Field(protocol.FieldContent)
	res, err := filesystem.Write(e.recording(ctx, b, r), r.abs, r.display(), content, e.cfg.ValidateSyntax)
	if err != nil {
		return fileFailure(req, err)
	}
	b.markChanged(r.rel)

	verb := "overwrote"
	if res.Created {
		verb = "created"
	}
	return protocol.Succeeded(req, fmt.Sprintf("%s %s (%s)", verb, r.display(), units.HumanSize(float64(res.Bytes))))
}

func (e *Executor) editFile(ctx context.Context, b *batch, req protocol.ToolRequest) protocol.ToolResult {
	r := e.resolve(req.Target, true)
	if res := e.approve(ctx, req, "Edit", r); res != nil {
		return *res
	}
	res, err := editing.Apply(e.recording(ctx, b, r), r.abs, r.display(), req.Field(protocol.FieldOldText), req.Field(protocol.FieldNewText))
	if err != nil {
		return fileFailure(req, err)
	}
	if !res.Unchanged {
		b.markChanged(r.rel)
	}
	return protocol.Succeeded(req, res.Body(r.display()))
}

func (e *Executor) runShell(ctx context.Context, req protocol.ToolRequest) protocol.ToolResult {
	switch e.cfg.ShellPolicy {
	case config.ShellDeny:
		return protocol.Failed(req, protocol.FailDeclined, "denied by policy")
	case config.ShellConfirm:
		if res := e.ask(ctx, req, fmt.Sprintf("Run shell command: %s", req.Target)); res != nil {
			return *res
		}
	}

	out := execution.Run(ctx, e.runner, e.cfg.WorkDir, req.Target, e.cfg.ShellTimeout, e.cfg.MaxOutputBytes)
	// commands may touch files behind the index
	e.invalidate()
	if out.Kind != protocol.FailNone {
		return protocol.Failed(req, out.Kind, out.Body)
	}
	return protocol.Succeeded(req, out.Body)
}

func (e *Executor) searchCode(ctx context.Context, req protocol.ToolRequest) protocol.ToolResult {
	if e.deps.Searcher == nil {
		return protocol.Failed(req, protocol.FailIO, "search index unavailable")
	}
	body, err := search.Code(ctx, e.deps.Searcher, req.Field(protocol.FieldQuery), e.cfg.SearchResults)
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Failed(req, protocol.FailCancelled, "search cancelled")
		}
		return protocol.Failed(req, protocol.FailIO, "search failed: "+err.Error())
	}
	return protocol.Succeeded(req, body)
}

func (e *Executor) contextFiles(ctx context.Context, req protocol.ToolRequest) protocol.ToolResult {
	if e.deps.Context == nil {
		return protocol.Failed(req, protocol.FailIO, "context files are not available in this session")
	}
	paths := protocol.SplitPaths(req.Field(protocol.FieldPaths))
	if req.Kind == protocol.KindDropContext {
		body, ok := workspace.DropContext(e.deps.Context, paths)
		if !ok {
			return protocol.Failed(req, protocol.FailFileNotFound, body)
		}
		return protocol.Succeeded(req, body)
	}

	var allowed, trusted, declined []string
	for _, p := range paths {
		r := e.resolve(p, false)
		// paths outside the root are refused by the set itself
		if r.rel != "" && len(r.reasons) > 0 {
			if res := e.approve(ctx, req, "Add to context", r); res != nil {
				if res.Failure == protocol.FailCancelled {
					return *res
				}
				declined = append(declined, r.display())
				continue
			}
			trusted = append(trusted, p)
		}
		allowed = append(allowed, p)
	}
	if len(allowed) == 0 && len(declined) > 0 {
		return protocol.Failed(req, protocol.FailDeclined, "declined by operator")
	}

	body, ok := workspace.AddContext(e.deps.Context, allowed)
	e.deps.Context.Trust(trusted...)
	for _, d := range declined {
		body += fmt.Sprintf("\n%s: declined by operator", d)
	}
	if !ok {
		return protocol.Failed(req, protocol.FailFileNotFound, body)
	}
	return protocol.Succeeded(req, body)
}

func (e *Executor) commit(ctx context.Context, b *batch, req protocol.ToolRequest) protocol.ToolResult {
	msg := req.Field(protocol.FieldMessage)
	if msg == "" {
		msg = e.cfg.CommitMessage
	}
	body, err := workspace.Commit(ctx, e.cfg.WorkDir, b.changed, msg)
	if err != nil {
		return protocol.Failed(req, protocol.FailIO, err.Error())
	}
	b.committed = true
	return protocol.Succeeded(req, body)
}
