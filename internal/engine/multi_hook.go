package engine

import (
	"context"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// Hooks fans every event out to each hook in order.
type Hooks []Hook

func (hs Hooks) OnStateChange(ctx context.Context, from, to LoopState) {
	for _, h := range hs {
		h.OnStateChange(ctx, from, to)
	}
}
func (hs Hooks) OnBeforeModel(ctx context.Context, req ChatRequest) {
	for _, h := range hs {
		h.OnBeforeModel(ctx, req)
	}
}
func (hs Hooks) OnAfterModel(ctx context.Context, resp ChatResponse, segs []protocol.Segment) {
	for _, h := range hs {
		h.OnAfterModel(ctx, resp, segs)
	}
}
func (hs Hooks) OnToolRequest(ctx context.Context, req protocol.ToolRequest) {
	for _, h := range hs {
		h.OnToolRequest(ctx, req)
	}
}
func (hs Hooks) OnToolResult(ctx context.Context, res protocol.ToolResult) {
	for _, h := range hs {
		h.OnToolResult(ctx, res)
	}
}
func (hs Hooks) OnBatchDone(ctx context.Context, batch protocol.Batch) {
	for _, h := range hs {
		h.OnBatchDone(ctx, batch)
	}
}
func (hs Hooks) OnRetryAttempt(ctx context.Context, attempt int, maxAttempts int, delay time.Duration, err error) {
	for _, h := range hs {
		h.OnRetryAttempt(ctx, attempt, maxAttempts, delay, err)
	}
}
func (hs Hooks) OnRetryExhausted(ctx context.Context, err error) {
	for _, h := range hs {
		h.OnRetryExhausted(ctx, err)
	}
}
func (hs Hooks) OnTrim(ctx context.Context, stats TrimStats) {
	for _, h := range hs {
		h.OnTrim(ctx, stats)
	}
}
func (hs Hooks) OnLoopBudget(ctx context.Context, err *LoopBudgetError) {
	for _, h := range hs {
		h.OnLoopBudget(ctx, err)
	}
}
func (hs Hooks) OnFatal(ctx context.Context, err error) {
	for _, h := range hs {
		h.OnFatal(ctx, err)
	}
}
