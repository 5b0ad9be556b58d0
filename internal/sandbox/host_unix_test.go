//go:build !windows
// +build !windows

package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHostRunnerRunShell(t *testing.T) {
	tests := []struct {
		name       string
		command    string
		wantCode   int
		wantOutput string
	}{
		{"echo", "echo hello", 0, "hello\n"},
		{"combined output", "echo out; echo err 1>&2", 0, "out\nerr\n"},
		{"non-zero exit", "echo failing; exit 3", 3, "failing\n"},
		{"multiline", "printf 'line1\\nline2\\nline3\\n'", 0, "line1\nline2\nline3\n"},
	}

	r := NewHostRunner(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.RunShell(context.Background(), t.TempDir(), tt.command, 5*time.Second)
			if err != nil {
				t.Fatalf("RunShell() error = %v", err)
			}
			if res.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", res.Code, tt.wantCode)
			}
			if res.Output != tt.wantOutput {
				t.Errorf("Output = %q, want %q", res.Output, tt.wantOutput)
			}
		})
	}
}

func TestHostRunnerRunsInDir(t *testing.T) {
	dir := t.TempDir()
	res, err := NewHostRunner(Options{}).RunShell(context.Background(), dir, "pwd -P", 5*time.Second)
	if err != nil {
		t.Fatalf("RunShell() error = %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Output), lastElem(dir)) {
		t.Errorf("pwd = %q, want suffix %q", res.Output, lastElem(dir))
	}
}

func lastElem(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

func TestHostRunnerTimeout(t *testing.T) {
	start := time.Now()
	res, err := NewHostRunner(Options{}).RunShell(context.Background(), t.TempDir(), "echo started; sleep 10", 200*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("runner did not kill the command promptly")
	}
	if !strings.Contains(res.Output, "started") {
		t.Errorf("partial output lost: %q", res.Output)
	}
}

func TestHostRunnerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	res, err := NewHostRunner(Options{}).RunShell(ctx, t.TempDir(), "sleep 10", 30*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want canceled", err)
	}
	if !res.Cancelled || res.TimedOut {
		t.Errorf("Cancelled=%v TimedOut=%v, want true/false", res.Cancelled, res.TimedOut)
	}
}

func TestHostRunnerOutputCap(t *testing.T) {
	res, err := NewHostRunner(Options{MaxOutput: 10}).RunShell(context.Background(), t.TempDir(), "echo 0123456789abcdef", 5*time.Second)
	if err != nil {
		t.Fatalf("RunShell() error = %v", err)
	}
	if res.Output != "0123456789" || !res.Truncated {
		t.Errorf("Output = %q Truncated = %v", res.Output, res.Truncated)
	}
}
