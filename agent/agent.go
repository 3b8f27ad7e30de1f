// Package agent defines the agent contract used by hubs and pipelines and a
// Base implementation that wraps user-supplied reply logic with the
// invocation lifecycle: one reply in flight, interrupt routing, hooks, print
// streaming and broadcast to hub subscribers.
//
//	a := agent.New("alice", behavior, agent.WithLogger(logger))
//	reply, err := a.Call(ctx, protocol.NewMsg("user", protocol.RoleUser, "hi"))
package agent

import (
	"context"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
)

// Agent is the contract hubs and pipelines operate against.
type Agent interface {
	ID() string
	Name() string

	// Call runs one reply invocation. A non-nil reply is broadcast to every
	// subscriber registered through ResetSubscribers before Call returns.
	Call(ctx context.Context, msgs ...*protocol.Msg) (*protocol.Msg, error)

	// Observe receives messages without replying. It never broadcasts.
	Observe(ctx context.Context, msgs ...*protocol.Msg) error

	// Interrupt cancels the in-flight reply, if any, routing it to the
	// interrupt handler. Reports whether a reply was in flight.
	Interrupt(cause error) bool

	// ResetSubscribers replaces the peers notified on behalf of hub.
	ResetSubscribers(hub string, peers []Agent)

	// RemoveSubscribers drops the peers registered on behalf of hub.
	RemoveSubscribers(hub string)

	// SetPrintSink redirects printed chunks and returns the previous sink.
	SetPrintSink(sink PrintSink) PrintSink
}

// PrintSink receives every chunk an agent prints. last marks the final
// chunk of the message identified by msg.ID.
type PrintSink func(ctx context.Context, msg *protocol.Msg, last bool) error

// Behavior is the reply logic wrapped by Base.
type Behavior interface {
	// Reply produces the agent's output for inv.Input. The context is
	// cancelled with ErrInterrupted as cause when the agent is interrupted.
	Reply(ctx context.Context, inv *Invocation) (*protocol.Msg, error)

	// Observe stores messages the agent receives passively.
	Observe(ctx context.Context, msgs []*protocol.Msg) error

	// HandleInterrupt produces the result of an interrupted invocation.
	// Returning a nil message is legitimate and suppresses the broadcast.
	HandleInterrupt(ctx context.Context, inv *Invocation, cause error) (*protocol.Msg, error)
}

// Invocation describes one Call in progress.
type Invocation struct {
	ID    string
	Agent *Base
	Input []*protocol.Msg
}

// Print forwards a chunk through the invoking agent's print path.
func (inv *Invocation) Print(ctx context.Context, msg *protocol.Msg, last bool) error {
	return inv.Agent.Print(ctx, msg, last)
}

// LastInput returns the final input message, or nil when there is none.
func (inv *Invocation) LastInput() *protocol.Msg {
	if len(inv.Input) == 0 {
		return nil
	}
	return inv.Input[len(inv.Input)-1]
}

// Funcs adapts plain functions to Behavior. Nil fields fall back to no-op
// observe and the default interrupt reply.
type Funcs struct {
	ReplyFunc     func(ctx context.Context, inv *Invocation) (*protocol.Msg, error)
	ObserveFunc   func(ctx context.Context, msgs []*protocol.Msg) error
	InterruptFunc func(ctx context.Context, inv *Invocation, cause error) (*protocol.Msg, error)
}

func (f Funcs) Reply(ctx context.Context, inv *Invocation) (*protocol.Msg, error) {
	if f.ReplyFunc == nil {
		return nil, nil
	}
	return f.ReplyFunc(ctx, inv)
}

func (f Funcs) Observe(ctx context.Context, msgs []*protocol.Msg) error {
	if f.ObserveFunc == nil {
		return nil
	}
	return f.ObserveFunc(ctx, msgs)
}

func (f Funcs) HandleInterrupt(ctx context.Context, inv *Invocation, cause error) (*protocol.Msg, error) {
	if f.InterruptFunc == nil {
		return DefaultInterruptReply(inv), nil
	}
	return f.InterruptFunc(ctx, inv, cause)
}

// DefaultInterruptReply is the assistant message produced when an
// interrupted agent has no custom handler.
func DefaultInterruptReply(inv *Invocation) *protocol.Msg {
	msg := protocol.NewMsg(
		inv.Agent.Name(),
		protocol.RoleAssistant,
		"I noticed that you have interrupted me. What can I do for you?",
	)
	msg.Metadata = map[string]any{"interrupted": true}
	return msg
}
