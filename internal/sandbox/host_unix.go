//go:build !windows
// +build !windows

package sandbox

import (
	"context"
	"os/exec"
	"syscall"
	"time"
)

// RunShell runs command through the shell in dir with a timeout.
// - ctx: base context; cancelling it kills the command
// - dir: working directory
// - command: passed verbatim to "sh -c"
// - timeout: optional timeout (<=0 uses the runner default)
func (r *HostRunner) RunShell(ctx context.Context, dir, command string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(r.opts.Shell, "-c", command)
	cmd.Dir = dir
	cmd.Env = r.opts.environ()
	// Create a new process group so we can kill all child processes on cancel
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	out := &cappedBuffer{limit: r.opts.MaxOutput}
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{Code: -1}, err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			// Kill the entire process group (negative PID)
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := Result{
		Output:    out.String(),
		Truncated: out.Truncated(),
		Duration:  time.Since(start),
	}
	classify(&res, ctx, cctx, waitErr)
	if res.TimedOut || res.Cancelled {
		return res, cctx.Err()
	}
	return res, nil
}
