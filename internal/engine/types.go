// Package engine runs the session: the conversation history with its
// context budget, and the agent loop that drives model calls and tool
// batches as an explicit state machine.
package engine

import (
	"context"
	"fmt"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Validate checks the role is one of the four known roles.
func (r MessageRole) Validate() error {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return nil
	}
	return fmt.Errorf("invalid message role: %s", r)
}

// ToolMeta describes the request behind a tool message, so the message can
// be summarized without reparsing its content.
type ToolMeta struct {
	Kind    protocol.Kind
	Target  string
	Outcome protocol.Outcome
	Failure protocol.FailureKind
}

// Message is one entry of the conversation. Messages are values: once
// appended they are never changed, only left out of or shortened in a view.
type Message struct {
	Role    MessageRole
	Content string
	Ordinal int
	Meta    *ToolMeta // tool messages only
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// ChatRequest is the provider-agnostic input of one model call.
type ChatRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// ChatResponse is the normalized result of one model call.
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// ModelClient abstracts the provider SDK.
type ModelClient interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Executor runs the tool requests of one model response.
type Executor interface {
	Execute(ctx context.Context, reqs []protocol.ToolRequest) protocol.Batch
}

// SystemPrompt renders the system prompt for the next model call.
type SystemPrompt interface {
	SystemPrompt(ctx context.Context) string
}

// SystemPromptFunc adapts a function to SystemPrompt.
type SystemPromptFunc func(ctx context.Context) string

func (f SystemPromptFunc) SystemPrompt(ctx context.Context) string { return f(ctx) }

// ContextSource supplies the current contents of the session's context files.
type ContextSource interface {
	Snapshot() string
}
