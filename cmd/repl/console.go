package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine"
	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"golang.org/x/term"
)

const defaultWidth = 80

// console is the operator's terminal: one line reader shared by the
// prompt and by confirmations, and the writer everything is rendered to.
type console struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	width       int
}

func newConsole(in *os.File, out *os.File) *console {
	c := &console{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: term.IsTerminal(int(in.Fd())),
		width:       defaultWidth,
	}
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		c.width = w
	}
	return c
}

// readLine prints prompt and returns the next input line without its
// newline. io.EOF is returned once input is exhausted.
func (c *console) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a yes/no question. Only "y" or "yes" approve; EOF and a
// non-terminal stdin decline.
func (c *console) Confirm(_ context.Context, prompt string) (bool, error) {
	if !c.interactive {
		fmt.Fprintf(c.out, "%s? declined (stdin is not a terminal)\n", prompt)
		return false, nil
	}
	answer, err := c.readLine(prompt + "? [y/N] ")
	if err != nil {
		fmt.Fprintln(c.out)
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (c *console) rule() {
	fmt.Fprintln(c.out, strings.Repeat("─", c.width))
}

// renderHook prints the session as it happens.
type renderHook struct {
	engine.NopHook
	c *console
}

func (h renderHook) OnAfterModel(_ context.Context, _ engine.ChatResponse, segs []protocol.Segment) {
	if prose := strings.TrimSpace(protocol.Prose(segs)); prose != "" {
		fmt.Fprintln(h.c.out, prose)
	}
}

func (h renderHook) OnToolRequest(_ context.Context, req protocol.ToolRequest) {
	fmt.Fprintf(h.c.out, "> %s\n", req.Label())
}

func (h renderHook) OnToolResult(_ context.Context, res protocol.ToolResult) {
	if res.OK() {
		fmt.Fprintf(h.c.out, "  %s\n", res.Header())
		return
	}
	first := res.Body
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	fmt.Fprintf(h.c.out, "  %s: %s\n", res.Header(), first)
}

func (h renderHook) OnBatchDone(_ context.Context, b protocol.Batch) {
	if b.AutoCommit != "" {
		fmt.Fprintf(h.c.out, "  %s\n", b.AutoCommit)
	}
}

func (h renderHook) OnRetryAttempt(_ context.Context, attempt, maxAttempts int, delay time.Duration, err error) {
	fmt.Fprintf(h.c.out, "model call failed (%v), retry %d/%d in %s\n", err, attempt, maxAttempts, delay.Round(time.Millisecond))
}

func (h renderHook) OnLoopBudget(_ context.Context, err *engine.LoopBudgetError) {
	fmt.Fprintf(h.c.out, "%v; send a message to continue\n", err)
}

func (h renderHook) OnFatal(_ context.Context, err error) {
	fmt.Fprintf(h.c.out, "fatal: %v\n", err)
}
