//go:build windows
// +build windows

package sandbox

import (
	"context"
	"os/exec"
	"time"
)

// RunShell runs command through "cmd /C" in dir with a timeout.
func (r *HostRunner) RunShell(ctx context.Context, dir, command string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(r.opts.Shell, "/C", command)
	cmd.Dir = dir
	cmd.Env = r.opts.environ()

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
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
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
