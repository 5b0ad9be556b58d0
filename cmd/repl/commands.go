package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine"
	"github.com/ChamsBouzaiene/nanocoder/internal/journal"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools/execution"
)

const helpText = `Commands:
  /add <paths>   add files to the context set
  /drop <paths>  remove files from the context set
  /clear         start a new conversation and empty the context set
  /undo          restore the files changed by the last tool batch
  /help          show this help
  /exit          quit
  !<command>     run a shell command and optionally share its output
Anything else is sent to the model.`

// repl reads operator lines and dispatches them.
type repl struct {
	env *runtimeEnv
	c   *console
}

// handle processes one input line. It reports whether the session is over.
func (r *repl) handle(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, "/"):
		return r.command(ctx, line)
	case strings.HasPrefix(line, "!"):
		r.shell(ctx, strings.TrimSpace(line[1:]))
		return false
	}
	return r.submit(ctx, line)
}

func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	switch name {
	case "/add":
		r.add(args)
	case "/drop":
		r.drop(args)
	case "/clear":
		r.env.Context.Clear()
		if err := r.env.newLoop(); err != nil {
			fmt.Fprintf(r.c.out, "failed to reset the conversation: %v\n", err)
			return true
		}
		fmt.Fprintln(r.c.out, "Conversation and context set cleared.")
	case "/undo":
		r.undo(ctx)
	case "/help":
		fmt.Fprintln(r.c.out, helpText)
	case "/exit", "/quit":
		r.env.Loop.Stop(ctx)
		return true
	default:
		fmt.Fprintf(r.c.out, "unknown command %s (try /help)\n", name)
	}
	return false
}

func (r *repl) add(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.c.out, "usage: /add <paths>")
		return
	}
	added, errs := r.env.Context.Add(args...)
	// the operator typed these paths, no further confirmation
	r.env.Context.Trust(added...)
	for _, p := range added {
		fmt.Fprintf(r.c.out, "Added %s to the context set\n", p)
	}
	for _, err := range errs {
		fmt.Fprintf(r.c.out, "Not added: %v\n", err)
	}
}

func (r *repl) drop(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.c.out, "usage: /drop <paths>")
		return
	}
	dropped, missing := r.env.Context.Drop(args...)
	for _, p := range dropped {
		fmt.Fprintf(r.c.out, "Dropped %s from the context set\n", p)
	}
	for _, p := range missing {
		fmt.Fprintf(r.c.out, "%s is not in the context set\n", p)
	}
}

func (r *repl) undo(ctx context.Context) {
	if r.env.Journal == nil {
		fmt.Fprintln(r.c.out, "undo is not available (journal could not be opened)")
		return
	}
	b, err := r.env.Journal.Undo(ctx)
	switch {
	case errors.Is(err, journal.ErrEmpty):
		fmt.Fprintln(r.c.out, "Nothing to undo.")
		return
	case err != nil:
		fmt.Fprintf(r.c.out, "undo failed: %v\n", err)
		return
	}
	for _, e := range b.Entries {
		verb := "Restored"
		if !e.Existed {
			verb = "Removed"
		}
		fmt.Fprintf(r.c.out, "%s %s\n", verb, e.Path)
	}
}

// shell runs an operator command and offers its output to the model.
func (r *repl) shell(ctx context.Context, command string) {
	if command == "" {
		fmt.Fprintln(r.c.out, "usage: !<command>")
		return
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := r.env.Runner.RunShell(ctx, r.env.Config.WorkDir, command, r.env.Config.ShellTimeout)
	if err != nil && res.Output == "" {
		fmt.Fprintf(r.c.out, "command failed: %v\n", err)
		return
	}
	output := strings.TrimRight(res.Output, "\n")
	if output != "" {
		fmt.Fprintln(r.c.out, output)
	}
	fmt.Fprintf(r.c.out, "(exit code %d)\n", res.Code)
	if output == "" || !r.c.interactive {
		return
	}

	answer, err := r.c.readLine("Add the output to the conversation? [t]runcated, [f]ull, [N]o: ")
	if err != nil {
		fmt.Fprintln(r.c.out)
		return
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "t":
		output = execution.TruncateLines(output)
	case "f":
	default:
		return
	}
	note := fmt.Sprintf("Output of `%s` (exit code %d):\n%s", command, res.Code, output)
	if err := r.env.Loop.AddNote(note); err != nil {
		fmt.Fprintf(r.c.out, "could not add the output: %v\n", err)
		return
	}
	fmt.Fprintln(r.c.out, "Output added; it goes out with your next message.")
}

// submit runs the agent loop for one message. An interrupt cancels the
// call in flight.
func (r *repl) submit(ctx context.Context, line string) bool {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := r.env.Loop.Submit(ctx, line)
	var budget *engine.LoopBudgetError
	switch {
	case err == nil, errors.As(err, &budget):
		return false
	case r.env.Loop.State().Terminal():
		return true
	default:
		fmt.Fprintf(r.c.out, "error: %v\n", err)
		return false
	}
}
