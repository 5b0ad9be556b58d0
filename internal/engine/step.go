package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// buildRequest assembles the model input: system prompt, context-file
// snapshot and the budgeted history.
func (l *Loop) buildRequest(ctx context.Context) ChatRequest {
	var system strings.Builder
	if l.deps.System != nil {
		system.WriteString(l.deps.System.SystemPrompt(ctx))
	}
	if l.deps.Context != nil {
		if snap := l.deps.Context.Snapshot(); snap != "" {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(snap)
		}
	}

	view, stats := l.conv.Budgeted()
	if stats.Trimmed() || stats.OverBudget {
		l.deps.Hooks.OnTrim(ctx, stats)
	}
	return ChatRequest{
		Model:       l.cfg.Model,
		System:      system.String(),
		Messages:    view,
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: l.cfg.Temperature,
	}
}

// awaitModel calls the model with retries, records the reply and parses it.
func (l *Loop) awaitModel(ctx context.Context) ([]protocol.Segment, error) {
	req := l.buildRequest(ctx)
	l.deps.Hooks.OnBeforeModel(ctx, req)

	resp, err := RetryWithPolicy(ctx, l.cfg.Retry,
		func(ctx context.Context) (ChatResponse, error) {
			return l.deps.Client.Chat(ctx, req)
		},
		ClassifyLLMError,
		func(attempt int, delay time.Duration, retryErr error) {
			l.deps.Hooks.OnRetryAttempt(ctx, attempt, l.cfg.Retry.MaxRetries, delay, retryErr)
		},
	)
	if err != nil {
		if IsRetryExhausted(err) {
			l.deps.Hooks.OnRetryExhausted(ctx, err)
		}
		return nil, err
	}

	l.conv.Append(RoleAssistant, resp.Content)
	segs := protocol.Parse(resp.Content)
	l.deps.Hooks.OnAfterModel(ctx, resp, segs)
	return segs, nil
}

// executeTools runs the requests of segs as one batch and appends one tool
// message per request and per parse failure, in position order.
func (l *Loop) executeTools(ctx context.Context, segs []protocol.Segment) {
	reqs := protocol.Requests(segs)
	for _, req := range reqs {
		l.deps.Hooks.OnToolRequest(ctx, req)
	}

	var batch protocol.Batch
	if len(reqs) > 0 {
		batch = l.deps.Executor.Execute(ctx, reqs)
	}

	next := 0
	for _, seg := range segs {
		var res protocol.ToolResult
		switch seg.Kind {
		case protocol.SegmentRequest:
			if next < len(batch.Results) {
				res = batch.Results[next]
			} else {
				// an executor that returned short still owes this request a result
				res = protocol.Failed(*seg.Request, protocol.FailCancelled, "not executed")
			}
			next++
		case protocol.SegmentFailure:
			res = parseFailureResult(seg)
		default:
			continue
		}
		l.conv.AppendResult(res)
		l.deps.Hooks.OnToolResult(ctx, res)
	}

	if batch.AutoCommit != "" {
		l.conv.Append(RoleSystem, batch.AutoCommit)
	}
	if len(reqs) > 0 {
		l.deps.Hooks.OnBatchDone(ctx, batch)
	}
}

// parseFailureResult reports a malformed block back to the model.
func parseFailureResult(seg protocol.Segment) protocol.ToolResult {
	req := protocol.NewRequest(protocol.Kind("<"+seg.Err.Tag+">"), fmt.Sprintf("line %d", seg.Err.Line), nil).At(seg.Pos)
	return protocol.Failed(req, protocol.FailParse, seg.Err.Cause)
}

func hasWork(segs []protocol.Segment) bool {
	for _, s := range segs {
		if s.Kind != protocol.SegmentProse {
			return true
		}
	}
	return false
}
