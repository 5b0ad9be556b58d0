package engine

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "short word", text: "hello", want: 1},
		{name: "sentence", text: "hello world this is a test", want: 6},
		{name: "code snippet", text: "func main() { fmt.Println(\"hello\") }", want: 9},
		{name: "multibyte runes", text: strings.Repeat("é", 8), want: 2},
		{name: "whitespace heavy", text: strings.Repeat(" ", 12), want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountTokensForMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     int
	}{
		{name: "empty", messages: nil, want: 0},
		{
			name:     "single message",
			messages: []Message{{Role: RoleUser, Content: "hello world this is a test"}},
			// "user" = 1, content = 6, overhead = 4
			want: 11,
		},
		{
			name: "two messages",
			messages: []Message{
				{Role: RoleUser, Content: "hello"},
				{Role: RoleAssistant, Content: "hello"},
			},
			// user: 1+1+4, assistant: 2+1+4
			want: 13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountTokensForMessages(DefaultTokenizer{}, tt.messages); got != tt.want {
				t.Errorf("CountTokensForMessages() = %d, want %d", got, tt.want)
			}
		})
	}
}
