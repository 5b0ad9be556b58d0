package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
)

// LoopConfig holds the knobs of the agent loop.
type LoopConfig struct {
	Model        string
	MaxTokens    int
	Temperature  float32
	MaxAutoTurns int
	Retry        RetryPolicy
	Budget       BudgetPolicy
}

// LoopConfigFrom derives the loop settings from the session configuration.
func LoopConfigFrom(cfg config.Config) LoopConfig {
	return LoopConfig{
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		MaxAutoTurns: cfg.MaxAutoTurns,
		Retry:        RetryPolicyFrom(cfg.Retry),
		Budget:       BudgetPolicyFrom(cfg),
	}
}

// LoopDeps are the collaborators of a Loop. Client and Executor are
// required.
type LoopDeps struct {
	Client   ModelClient
	Executor Executor
	System   SystemPrompt
	Context  ContextSource
	Hooks    Hooks
}

// Loop drives one session: it owns the conversation and moves between
// AwaitingUserInput, AwaitingModelResponse and ExecutingTools until the
// model stops issuing requests, or the session ends in Done or Fatal.
type Loop struct {
	cfg   LoopConfig
	deps  LoopDeps
	conv  *Conversation
	state LoopState
	turn  int   // automatic tool turns since the last user message
	err   error // set in StateFatal
}

// NewLoop creates a loop waiting for user input.
func NewLoop(cfg LoopConfig, deps LoopDeps) (*Loop, error) {
	if deps.Client == nil {
		return nil, errors.New("engine: model client is required")
	}
	if deps.Executor == nil {
		return nil, errors.New("engine: tool executor is required")
	}
	if cfg.MaxAutoTurns <= 0 {
		cfg.MaxAutoTurns = config.Default().MaxAutoTurns
	}
	return &Loop{
		cfg:   cfg,
		deps:  deps,
		conv:  NewConversation(cfg.Budget),
		state: StateAwaitingUserInput,
	}, nil
}

// State is the current loop state.
func (l *Loop) State() LoopState { return l.state }

// Err is the error that made the session fatal, if any.
func (l *Loop) Err() error { return l.err }

// Conversation exposes the history for display. Callers must not append.
func (l *Loop) Conversation() *Conversation { return l.conv }

// Stop ends the session. Further Submit calls return ErrSessionDone.
func (l *Loop) Stop(ctx context.Context) {
	if l.state == StateAwaitingUserInput {
		l.setState(ctx, StateDone)
	}
}

// AddNote appends operator-supplied text, such as the output of a command
// the operator ran, as a user message without calling the model. It goes
// out with the next Submit.
func (l *Loop) AddNote(content string) error {
	switch l.state {
	case StateFatal:
		return ErrSessionFatal
	case StateDone:
		return ErrSessionDone
	case StateAwaitingUserInput:
	default:
		return fmt.Errorf("engine: note while %s", l.state)
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	l.conv.Append(RoleUser, content)
	return nil
}

// Submit appends input as a user message and runs model turns until the
// model answers without tool requests, the automatic turn budget runs out
// (a *LoopBudgetError, the session stays usable), or the session turns
// fatal. Blank input is ignored.
func (l *Loop) Submit(ctx context.Context, input string) error {
	switch l.state {
	case StateFatal:
		return ErrSessionFatal
	case StateDone:
		return ErrSessionDone
	case StateAwaitingUserInput:
	default:
		return fmt.Errorf("engine: submit while %s", l.state)
	}
	if strings.TrimSpace(input) == "" {
		return nil
	}

	l.conv.Append(RoleUser, input)
	l.turn = 0
	l.setState(ctx, StateAwaitingModelResponse)

	for {
		segs, err := l.awaitModel(ctx)
		if err != nil {
			return l.fatal(ctx, "model_call", err)
		}

		if !hasWork(segs) {
			l.setState(ctx, StateAwaitingUserInput)
			return nil
		}

		l.setState(ctx, StateExecutingTools)
		l.executeTools(ctx, segs)
		if ctx.Err() != nil {
			return l.fatal(ctx, "tool_execution", ctx.Err())
		}

		l.turn++
		if l.turn >= l.cfg.MaxAutoTurns {
			budgetErr := &LoopBudgetError{Turns: l.turn}
			l.conv.Append(RoleSystem, budgetErr.Error()+". Waiting for the operator.")
			l.deps.Hooks.OnLoopBudget(ctx, budgetErr)
			l.setState(ctx, StateAwaitingUserInput)
			return budgetErr
		}
		l.setState(ctx, StateAwaitingModelResponse)
	}
}

func (l *Loop) setState(ctx context.Context, to LoopState) {
	from := l.state
	if from == to {
		return
	}
	if !canTransition(from, to) {
		panic(fmt.Sprintf("engine: illegal transition %s -> %s", from, to))
	}
	l.state = to
	l.deps.Hooks.OnStateChange(ctx, from, to)
}

func (l *Loop) fatal(ctx context.Context, op string, err error) error {
	l.err = &EngineContextError{Err: err, State: l.state, Turn: l.turn, Operation: op}
	l.setState(ctx, StateFatal)
	l.deps.Hooks.OnFatal(ctx, l.err)
	return l.err
}
