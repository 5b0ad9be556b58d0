// Package execution runs model-issued shell commands and shapes their
// output for the conversation.
package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/ChamsBouzaiene/nanocoder/internal/sandbox"
	"github.com/docker/go-units"
)

const (
	headLines = 10
	tailLines = 40

	// TruncatedMarker replaces the elided middle of long output.
	TruncatedMarker = "[TRUNCATED]"
)

// TruncateLines keeps output of up to headLines+tailLines lines unchanged.
// Longer output is cut to its first 10 and last 40 lines around a marker.
func TruncateLines(output string) string {
	trailing := strings.HasSuffix(output, "\n")
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	if len(lines) <= headLines+tailLines {
		return output
	}
	kept := make([]string, 0, headLines+tailLines+1)
	kept = append(kept, lines[:headLines]...)
	kept = append(kept, TruncatedMarker)
	kept = append(kept, lines[len(lines)-tailLines:]...)
	out := strings.Join(kept, "\n")
	if trailing {
		out += "\n"
	}
	return out
}

// Outcome is a finished shell run classified for the model.
type Outcome struct {
	Kind protocol.FailureKind // FailNone on success
	Body string
}

// Run executes command through runner in dir and classifies the result:
// cancellation, timeout, non-zero exit or success. Output is combined,
// byte-capped by the runner and line-truncated here.
func Run(ctx context.Context, runner sandbox.Runner, dir, command string, timeout time.Duration, maxOutput int64) Outcome {
	res, err := runner.RunShell(ctx, dir, command, timeout)

	output := TruncateLines(res.Output)
	if res.Truncated {
		if output != "" && !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		output += fmt.Sprintf("[output capped at %s]", units.BytesSize(float64(maxOutput)))
	}

	switch {
	case res.Cancelled || (err != nil && ctx.Err() != nil):
		return Outcome{Kind: protocol.FailCancelled, Body: withOutput("command cancelled", output)}
	case res.TimedOut:
		return Outcome{Kind: protocol.FailShellTimeout, Body: withOutput(fmt.Sprintf("command timed out after %s; process group killed", timeout), output)}
	case err != nil:
		return Outcome{Kind: protocol.FailIO, Body: fmt.Sprintf("failed to start command: %v", err)}
	case res.Code != 0:
		return Outcome{Kind: protocol.FailShellNonZeroExit, Body: withOutput(fmt.Sprintf("exit code %d", res.Code), output)}
	}
	return Outcome{Body: withOutput("exit code 0", output)}
}

func withOutput(status, output string) string {
	if output == "" {
		return status + "\n(no output)"
	}
	return status + "\n" + strings.TrimSuffix(output, "\n")
}
