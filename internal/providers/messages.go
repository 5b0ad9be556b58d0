// Package providers adapts provider SDKs to engine.ModelClient.
package providers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine"
)

// turn is one message on the wire. Providers only see user and assistant
// turns; tool results and diagnostics travel as user text.
type turn struct {
	assistant bool
	content   string
}

const trimmedNote = "(earlier conversation trimmed)"

// toTurns flattens the conversation into alternating user/assistant turns.
// Consecutive messages that map to the same side are joined, and the first
// turn is always a user turn.
func toTurns(msgs []engine.Message) []turn {
	var out []turn
	for _, m := range msgs {
		content := m.Content
		if m.Role == engine.RoleSystem {
			content = "[system] " + content
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		isAssistant := m.Role == engine.RoleAssistant
		if n := len(out); n > 0 && out[n-1].assistant == isAssistant {
			out[n-1].content += "\n\n" + content
			continue
		}
		out = append(out, turn{assistant: isAssistant, content: content})
	}
	if len(out) == 0 || out[0].assistant {
		out = append([]turn{{content: trimmedNote}}, out...)
	}
	return out
}

// statusFromText recovers an HTTP status from an error message when the SDK
// error did not expose one.
func statusFromText(errStr string) int {
	codes := []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusPaymentRequired,
		http.StatusBadRequest,
	}
	for _, code := range codes {
		if strings.Contains(errStr, strconv.Itoa(code)) {
			return code
		}
	}
	return 0
}

// retryAfterFromText finds a "Retry-After: N" or "retry after N" hint.
func retryAfterFromText(errStr string) string {
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		idx := strings.Index(lower, marker)
		if idx == -1 {
			continue
		}
		rest := strings.TrimLeft(errStr[idx+len(marker):], ": ")
		if parts := strings.Fields(rest); len(parts) > 0 {
			return strings.TrimRight(parts[0], ",;.")
		}
	}
	return ""
}

// wrapError classifies err for the engine's retry policy. status is the
// code taken from the SDK error, or 0 when it did not carry one.
func wrapError(err error, status int) error {
	if err == nil {
		return nil
	}
	if status == 0 {
		status = statusFromText(err.Error())
	}
	return engine.NewTransportError(err, status, retryAfterFromText(err.Error()))
}

// finishReason normalizes provider stop reasons.
func finishReason(raw string) string {
	switch raw {
	case "length", "max_tokens":
		return "length"
	case "content_filter", "content_filtered", "refusal":
		return "content_filter"
	default:
		return "stop"
	}
}
