package engine

// LoopState is a state of the agent loop.
type LoopState int

const (
	StateAwaitingUserInput LoopState = iota
	StateAwaitingModelResponse
	StateExecutingTools
	StateDone
	StateFatal
)

func (s LoopState) String() string {
	switch s {
	case StateAwaitingUserInput:
		return "awaiting_user_input"
	case StateAwaitingModelResponse:
		return "awaiting_model_response"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	case StateFatal:
		return "fatal"
	}
	return "unknown"
}

// Terminal reports whether no further input is accepted.
func (s LoopState) Terminal() bool {
	return s == StateDone || s == StateFatal
}

// transitions lists the legal successors of each state.
var transitions = map[LoopState][]LoopState{
	StateAwaitingUserInput:     {StateAwaitingModelResponse, StateDone},
	StateAwaitingModelResponse: {StateExecutingTools, StateAwaitingUserInput, StateFatal},
	StateExecutingTools:        {StateAwaitingModelResponse, StateAwaitingUserInput, StateFatal},
}

func canTransition(from, to LoopState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
