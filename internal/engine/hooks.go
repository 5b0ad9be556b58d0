package engine

import (
	"context"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// Hook observes the agent loop. Hooks run synchronously on the loop's
// goroutine and must not block.
type Hook interface {
	OnStateChange(ctx context.Context, from, to LoopState)
	OnBeforeModel(ctx context.Context, req ChatRequest)
	OnAfterModel(ctx context.Context, resp ChatResponse, segs []protocol.Segment)
	OnToolRequest(ctx context.Context, req protocol.ToolRequest)
	OnToolResult(ctx context.Context, res protocol.ToolResult)
	OnBatchDone(ctx context.Context, batch protocol.Batch)
	OnRetryAttempt(ctx context.Context, attempt int, maxAttempts int, delay time.Duration, err error)
	OnRetryExhausted(ctx context.Context, err error)
	OnTrim(ctx context.Context, stats TrimStats)
	OnLoopBudget(ctx context.Context, err *LoopBudgetError)
	OnFatal(ctx context.Context, err error)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnStateChange(context.Context, LoopState, LoopState)            {}
func (NopHook) OnBeforeModel(context.Context, ChatRequest)                     {}
func (NopHook) OnAfterModel(context.Context, ChatResponse, []protocol.Segment) {}
func (NopHook) OnToolRequest(context.Context, protocol.ToolRequest)            {}
func (NopHook) OnToolResult(context.Context, protocol.ToolResult)              {}
func (NopHook) OnBatchDone(context.Context, protocol.Batch)                    {}
func (NopHook) OnRetryAttempt(context.Context, int, int, time.Duration, error) {}
func (NopHook) OnRetryExhausted(context.Context, error)                        {}
func (NopHook) OnTrim(context.Context, TrimStats)                              {}
func (NopHook) OnLoopBudget(context.Context, *LoopBudgetError)                 {}
func (NopHook) OnFatal(context.Context, error)                                 {}
