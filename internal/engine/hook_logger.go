package engine

import (
	"context"
	"log"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// LoggerHook writes one key=value line per loop event.
type LoggerHook struct{ L *log.Logger }

func (h LoggerHook) OnStateChange(_ context.Context, from, to LoopState) {
	h.L.Printf("state %s -> %s", from, to)
}
func (h LoggerHook) OnBeforeModel(_ context.Context, req ChatRequest) {
	tokens := CountTokensForMessages(DefaultTokenizer{}, req.Messages) + EstimateTokens(req.System)
	h.L.Printf("model call model=%s msgs=%d tokens=~%d", req.Model, len(req.Messages), tokens)
}
func (h LoggerHook) OnAfterModel(_ context.Context, r ChatResponse, segs []protocol.Segment) {
	h.L.Printf("finish=%s requests=%d parse_failures=%d tokens: prompt=%d completion=%d total=%d",
		r.FinishReason, len(protocol.Requests(segs)), len(protocol.Failures(segs)),
		r.Usage.Prompt, r.Usage.Completion, r.Usage.Total)
}
func (h LoggerHook) OnToolRequest(_ context.Context, req protocol.ToolRequest) {
	h.L.Printf("tool → %s line=%d", req.Label(), req.Pos.Line)
}
func (h LoggerHook) OnToolResult(_ context.Context, res protocol.ToolResult) {
	preview := res.Body
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	h.L.Printf("tool %s outcome=%s failure=%s body=%q", res.Request.Kind, res.Outcome, res.Failure, preview)
}
func (h LoggerHook) OnBatchDone(_ context.Context, b protocol.Batch) {
	h.L.Printf("batch=%s results=%d failures=%d changed=%d", b.ID, len(b.Results), b.Failures(), len(b.Changed))
}
func (h LoggerHook) OnRetryAttempt(_ context.Context, attempt int, maxAttempts int, delay time.Duration, err error) {
	h.L.Printf("retry attempt=%d/%d delay=%v error=%v", attempt, maxAttempts, delay, err)
}
func (h LoggerHook) OnRetryExhausted(_ context.Context, err error) {
	h.L.Printf("retries exhausted: %v", err)
}
func (h LoggerHook) OnTrim(_ context.Context, s TrimStats) {
	h.L.Printf("budget trim before=%d after=%d summarized=%d dropped=%d over=%t",
		s.BeforeTokens, s.AfterTokens, s.Summarized, s.Dropped, s.OverBudget)
}
func (h LoggerHook) OnLoopBudget(_ context.Context, err *LoopBudgetError) {
	h.L.Printf("loop budget: %v", err)
}
func (h LoggerHook) OnFatal(_ context.Context, err error) {
	h.L.Printf("fatal: %v", err)
}
