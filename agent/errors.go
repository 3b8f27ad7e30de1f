package agent

import "errors"

// Sentinel errors for agents, hooks and rosters.
var (
	// ErrInterrupted is the cancellation cause recorded when an in-flight
	// reply is interrupted. Interrupt wraps caller-supplied causes with it.
	ErrInterrupted = errors.New("agent reply interrupted")

	ErrHookNotFound   = errors.New("hook not found")
	ErrAgentNotFound  = errors.New("agent not found")
	ErrAgentExists    = errors.New("agent already registered")
	ErrEmptyAgentName = errors.New("agent name is empty")
	ErrEmptyRoster    = errors.New("roster has no agents")
	ErrInvalidChoice  = errors.New("invalid choice")
)
