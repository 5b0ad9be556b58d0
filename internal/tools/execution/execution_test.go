package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/ChamsBouzaiene/nanocoder/internal/sandbox"
)

// MockRunner is a mock implementation of sandbox.Runner.
type MockRunner struct {
	RunShellFunc func(ctx context.Context, dir, command string, timeout time.Duration) (sandbox.Result, error)
	Calls        []string
}

func (m *MockRunner) RunShell(ctx context.Context, dir, command string, timeout time.Duration) (sandbox.Result, error) {
	m.Calls = append(m.Calls, command)
	if m.RunShellFunc != nil {
		return m.RunShellFunc(ctx, dir, command, timeout)
	}
	return sandbox.Result{}, nil
}

func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestTruncateLines(t *testing.T) {
	tests := []struct {
		name  string
		lines int
	}{
		{"empty", 0},
		{"short", 3},
		{"exactly fifty", 50},
		{"fifty one", 51},
		{"long", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := numbered(tt.lines)
			got := TruncateLines(in)
			if tt.lines <= 50 {
				if got != in {
					t.Errorf("TruncateLines() changed short output")
				}
				return
			}
			lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
			if len(lines) != 51 {
				t.Fatalf("got %d lines, want 51", len(lines))
			}
			if lines[0] != "line 1" || lines[9] != "line 10" {
				t.Errorf("head = %q..%q", lines[0], lines[9])
			}
			if lines[10] != TruncatedMarker {
				t.Errorf("marker = %q", lines[10])
			}
			if lines[11] != fmt.Sprintf("line %d", tt.lines-39) || lines[50] != fmt.Sprintf("line %d", tt.lines) {
				t.Errorf("tail = %q..%q", lines[11], lines[50])
			}
		})
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		result   sandbox.Result
		err      error
		wantKind protocol.FailureKind
		wantBody string
	}{
		{name: "success", result: sandbox.Result{Output: "hello\n"}, wantBody: "exit code 0\nhello"},
		{name: "no output", result: sandbox.Result{}, wantBody: "exit code 0\n(no output)"},
		{name: "non-zero exit keeps output", result: sandbox.Result{Output: "boom\n", Code: 2}, wantKind: protocol.FailShellNonZeroExit, wantBody: "exit code 2\nboom"},
		{name: "timeout", result: sandbox.Result{TimedOut: true, Code: -1}, err: context.DeadlineExceeded, wantKind: protocol.FailShellTimeout, wantBody: "timed out after 1s"},
		{name: "cancelled", result: sandbox.Result{Cancelled: true, Code: -1}, err: context.Canceled, wantKind: protocol.FailCancelled, wantBody: "command cancelled"},
		{name: "start failure", err: errors.New("exec: not found"), wantKind: protocol.FailIO, wantBody: "failed to start command"},
		{name: "capped", result: sandbox.Result{Output: "partial", Truncated: true}, wantBody: "[output capped at 64KiB]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{RunShellFunc: func(context.Context, string, string, time.Duration) (sandbox.Result, error) {
				return tt.result, tt.err
			}}
			got := Run(context.Background(), runner, "/w", "cmd", time.Second, 64<<10)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if !strings.Contains(got.Body, tt.wantBody) {
				t.Errorf("Body = %q, want it to contain %q", got.Body, tt.wantBody)
			}
		})
	}
}
