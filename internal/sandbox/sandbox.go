// Package sandbox runs shell commands for the session. Isolation is limited
// to the working directory, a timeout, and killing the whole process group;
// the confirmation gate in front of it lives in the tool executor.
package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

// Result captures the combined output of a command.
type Result struct {
	Output    string
	Code      int
	TimedOut  bool
	Cancelled bool
	Truncated bool // output exceeded the runner's byte cap
	Duration  time.Duration
}

// Runner runs one command string through the host interpreter.
type Runner interface {
	// RunShell runs command in dir. A cancelled ctx or an elapsed timeout
	// terminates the command; the partial output is still returned.
	RunShell(ctx context.Context, dir, command string, timeout time.Duration) (Result, error)
}

// HostRunner runs commands directly on the host machine.
type HostRunner struct {
	opts Options
}

// NewHostRunner creates a host runner with the given options.
func NewHostRunner(opts Options) *HostRunner {
	return &HostRunner{opts: opts.withDefaults()}
}

// cappedBuffer keeps at most limit bytes and records whether more arrived.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int64
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.limit - int64(len(b.buf))
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if int64(len(p)) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// classify fills the exit status fields. A non-zero exit is reported through
// Code, not as an error.
func classify(res *Result, parent, cctx context.Context, waitErr error) {
	switch {
	case parent.Err() != nil:
		res.Cancelled = true
		res.Code = -1
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.Code = -1
	case waitErr != nil:
		res.Code = 1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
		}
	}
}
