package prompts

import (
	"context"
	"fmt"
	"strings"
)

// PromptBuilder helps compose prompts from fragments and variables.
type PromptBuilder struct {
	fragments []string
	variables map[string]string
}

// NewPromptBuilder creates a new prompt builder based on a registered prompt.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	basePrompt, err := registry.Get(id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}
	return &PromptBuilder{
		fragments: []string{basePrompt.Content},
		variables: make(map[string]string),
	}, nil
}

// AddFragment appends a fragment to the prompt. Blank fragments are skipped.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	if strings.TrimSpace(text) != "" {
		b.fragments = append(b.fragments, text)
	}
	return b
}

// AddSection appends body under a tag, e.g. <repo_map>...</repo_map>.
func (b *PromptBuilder) AddSection(tag, body string) *PromptBuilder {
	body = strings.TrimSpace(body)
	if body == "" {
		return b
	}
	return b.AddFragment(fmt.Sprintf("<%s>\n%s\n</%s>", tag, body, tag))
}

// SetVariable sets a variable for template substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string.
func (b *PromptBuilder) Build() string {
	result := strings.Join(b.fragments, "\n\n")

	// simple {{key}} substitution
	for key, value := range b.variables {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// Source renders one dynamic part of the system prompt.
type Source interface {
	String(ctx context.Context) string
}

// System renders the session's system prompt on every model call, so the
// repository map follows the workspace.
type System struct {
	Registry *PromptRegistry // DefaultRegistry when nil
	Version  PromptVersion   // latest when empty
	WorkDir  string
	Summary  Source // host and project summary
	RepoMap  Source
	AgentsMD string // project instructions
}

// SystemPrompt builds the prompt. A missing prompt version falls back to
// the latest registered one.
func (s *System) SystemPrompt(ctx context.Context) string {
	reg := s.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}

	var b *PromptBuilder
	if s.Version != "" {
		b, _ = NewPromptBuilder(reg, CodingID, s.Version)
	}
	if b == nil {
		latest, err := reg.GetLatest(CodingID)
		if err != nil {
			return ""
		}
		b, _ = NewPromptBuilder(reg, CodingID, latest.Version)
	}

	b.SetVariable("workdir", s.WorkDir)
	if s.Summary != nil {
		b.AddSection("environment", s.Summary.String(ctx))
	}
	if s.RepoMap != nil {
		b.AddSection("repo_map", s.RepoMap.String(ctx))
	}
	b.AddSection("project_instructions", s.AgentsMD)
	return b.Build()
}
