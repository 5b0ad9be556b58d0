package engine

import (
	"fmt"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// Conversation is the append-only message history of a session. Append is
// the only mutation; every read returns copies.
type Conversation struct {
	messages []Message
	next     int
	policy   BudgetPolicy
}

// NewConversation creates an empty history governed by policy.
func NewConversation(policy BudgetPolicy) *Conversation {
	if policy.Tokenizer == nil {
		policy.Tokenizer = DefaultTokenizer{}
	}
	return &Conversation{next: 1, policy: policy}
}

// Append adds a message and returns it with its ordinal assigned.
func (c *Conversation) Append(role MessageRole, content string) Message {
	return c.append(Message{Role: role, Content: content})
}

// AppendResult adds the tool message for res.
func (c *Conversation) AppendResult(res protocol.ToolResult) Message {
	return c.append(Message{
		Role:    RoleTool,
		Content: res.Render(),
		Meta: &ToolMeta{
			Kind:    res.Request.Kind,
			Target:  res.Request.Target,
			Outcome: res.Outcome,
			Failure: res.Failure,
		},
	})
}

func (c *Conversation) append(m Message) Message {
	if err := m.Role.Validate(); err != nil {
		panic(fmt.Sprintf("conversation: %v", err))
	}
	m.Ordinal = c.next
	c.next++
	m = m.clone()
	c.messages = append(c.messages, m)
	return m
}

// Messages returns the full, unbudgeted history.
func (c *Conversation) Messages() []Message {
	out := append([]Message(nil), c.messages...)
	for i := range out {
		out[i] = out[i].clone()
	}
	return out
}

func (m Message) clone() Message {
	if m.Meta != nil {
		meta := *m.Meta
		m.Meta = &meta
	}
	return m
}

// Len is the number of messages appended so far.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].clone(), true
}

// View returns the history fitted to the context budget, ready to be sent
// to the model.
func (c *Conversation) View() []Message {
	v, _ := c.Budgeted()
	return v
}

// Budgeted is View plus a report of what was compressed or dropped.
func (c *Conversation) Budgeted() ([]Message, TrimStats) {
	return fitBudget(c.messages, c.policy)
}

// Tokens estimates the size of the full history.
func (c *Conversation) Tokens() int {
	return CountTokensForMessages(c.policy.Tokenizer, c.messages)
}
