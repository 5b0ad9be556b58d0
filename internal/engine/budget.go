package engine

import (
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// CompressionStrategy names a pass of the budget trimmer, in the order they
// are applied.
type CompressionStrategy int

const (
	CompressionSummarize CompressionStrategy = iota
	CompressionDrop
	CompressionDropDiagnostics
)

func (s CompressionStrategy) String() string {
	switch s {
	case CompressionSummarize:
		return "summarize"
	case CompressionDrop:
		return "drop"
	case CompressionDropDiagnostics:
		return "drop_diagnostics"
	}
	return "unknown"
}

// BudgetPolicy bounds the view sent to the model.
type BudgetPolicy struct {
	Limit        int // estimated tokens; <= 0 disables trimming
	SummaryChars int // max runes of a compressed tool result
	Tokenizer    Tokenizer
}

// BudgetPolicyFrom derives the policy from the session configuration.
func BudgetPolicyFrom(cfg config.Config) BudgetPolicy {
	return BudgetPolicy{Limit: cfg.ContextBudget, SummaryChars: cfg.SummaryChars, Tokenizer: DefaultTokenizer{}}
}

// TrimStats reports what fitting a view to the budget did.
type TrimStats struct {
	BeforeTokens int
	AfterTokens  int
	Summarized   int
	Dropped      int
	// OverBudget is set when only protected messages remain and the view is
	// still larger than the limit.
	OverBudget bool
}

// Trimmed reports whether the view differs from the history.
func (s TrimStats) Trimmed() bool { return s.Summarized > 0 || s.Dropped > 0 }

// fitBudget derives the model view from msgs. Passes run oldest first and
// stop as soon as the view fits:
//  1. tool results are replaced by one-line summaries
//  2. user, assistant and tool messages are dropped
//  3. system diagnostics are dropped
//
// The latest user message and tool results newer than the latest assistant
// message are never touched.
func fitBudget(msgs []Message, p BudgetPolicy) ([]Message, TrimStats) {
	tok := p.Tokenizer
	if tok == nil {
		tok = DefaultTokenizer{}
	}
	view := make([]Message, len(msgs))
	for i, m := range msgs {
		view[i] = m.clone()
	}
	sizes := make([]int, len(view))
	total := 0
	for i, m := range view {
		sizes[i] = countMessage(tok, m)
		total += sizes[i]
	}
	stats := TrimStats{BeforeTokens: total, AfterTokens: total}
	if p.Limit <= 0 || total <= p.Limit {
		return view, stats
	}

	keep := protectedSet(view)
	dropped := make([]bool, len(view))

	for i := range view {
		if total <= p.Limit {
			break
		}
		m := view[i]
		if keep[i] || m.Role != RoleTool || m.Meta == nil {
			continue
		}
		summary := summarizeResult(m, p.SummaryChars)
		if len(summary) >= len(m.Content) {
			continue
		}
		view[i].Content = summary
		size := countMessage(tok, view[i])
		total += size - sizes[i]
		sizes[i] = size
		stats.Summarized++
	}

	drop := func(match func(Message) bool) {
		for i := range view {
			if total <= p.Limit {
				return
			}
			if keep[i] || dropped[i] || !match(view[i]) {
				continue
			}
			dropped[i] = true
			total -= sizes[i]
			stats.Dropped++
		}
	}
	drop(func(m Message) bool { return m.Role != RoleSystem })
	drop(func(m Message) bool { return m.Role == RoleSystem })

	out := view[:0:0]
	for i, m := range view {
		if !dropped[i] {
			out = append(out, m)
		}
	}
	stats.AfterTokens = total
	stats.OverBudget = total > p.Limit
	return out, stats
}

// protectedSet marks the latest user message and every tool result that
// follows the latest assistant message.
func protectedSet(msgs []Message) []bool {
	keep := make([]bool, len(msgs))
	lastUser, lastAssistant := -1, -1
	for i, m := range msgs {
		switch m.Role {
		case RoleUser:
			lastUser = i
		case RoleAssistant:
			lastAssistant = i
		}
	}
	if lastUser >= 0 {
		keep[lastUser] = true
	}
	for i := lastAssistant + 1; i < len(msgs); i++ {
		if msgs[i].Role == RoleTool {
			keep[i] = true
		}
	}
	return keep
}

// summarizeResult renders "[kind target] outcome, N lines elided: first line".
func summarizeResult(m Message, maxChars int) string {
	label := protocol.NewRequest(m.Meta.Kind, m.Meta.Target, nil).Label()
	outcome := string(protocol.OutcomeSuccess)
	if m.Meta.Outcome != protocol.OutcomeSuccess {
		outcome = fmt.Sprintf("%s %s", protocol.OutcomeFailure, m.Meta.Failure)
	}

	var body []string
	if _, rest, ok := strings.Cut(m.Content, "\n"); ok {
		body = strings.Split(strings.TrimRight(rest, "\n"), "\n")
	}
	first := ""
	if len(body) > 0 {
		first = strings.TrimSpace(body[0])
	}
	s := fmt.Sprintf("[%s] %s, %d lines elided: %s", label, outcome, len(body), first)
	if r := []rune(s); maxChars > 0 && len(r) > maxChars {
		s = string(r[:maxChars]) + "..."
	}
	return s
}
