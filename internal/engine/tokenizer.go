package engine

import (
	"strings"
)

// Tokenizer provides token counting for text.
type Tokenizer interface {
	CountTokens(text string) int
}

// messageOverhead approximates the role and separator tokens of a message.
const messageOverhead = 4

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English/code.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	// (characters / 4) + (whitespace / 6)
	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}

// DefaultTokenizer uses estimation; no provider tokenizer is bundled.
type DefaultTokenizer struct{}

// CountTokens implements Tokenizer using estimation.
func (DefaultTokenizer) CountTokens(text string) int {
	return EstimateTokens(text)
}

// CountTokensForMessages counts tokens for a slice of messages, including
// the per-message formatting overhead.
func CountTokensForMessages(tokenizer Tokenizer, messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += countMessage(tokenizer, msg)
	}
	return total
}

func countMessage(tokenizer Tokenizer, msg Message) int {
	return tokenizer.CountTokens(string(msg.Role)) + tokenizer.CountTokens(msg.Content) + messageOverhead
}
