// Package mock provides scripted agents for tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
)

// ReplyFunc computes a mock agent's reply.
type ReplyFunc func(ctx context.Context, inv *agent.Invocation) (*protocol.Msg, error)

// Agent is a Base agent whose behavior records every input and observed
// message for later assertions.
type Agent struct {
	*agent.Base
	behavior *recorder
}

type recorder struct {
	reply     ReplyFunc
	interrupt func(ctx context.Context, inv *agent.Invocation, cause error) (*protocol.Msg, error)
	started   chan struct{}

	mu       sync.Mutex
	inputs   [][]*protocol.Msg
	observed []*protocol.Msg
	causes   []error
}

func (r *recorder) Reply(ctx context.Context, inv *agent.Invocation) (*protocol.Msg, error) {
	r.mu.Lock()
	r.inputs = append(r.inputs, inv.Input)
	r.mu.Unlock()

	select {
	case r.started <- struct{}{}:
	default:
	}

	return r.reply(ctx, inv)
}

func (r *recorder) Observe(_ context.Context, msgs []*protocol.Msg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed = append(r.observed, msgs...)
	return nil
}

func (r *recorder) HandleInterrupt(ctx context.Context, inv *agent.Invocation, cause error) (*protocol.Msg, error) {
	r.mu.Lock()
	r.causes = append(r.causes, cause)
	r.mu.Unlock()

	if r.interrupt != nil {
		return r.interrupt(ctx, inv, cause)
	}
	return agent.DefaultInterruptReply(inv), nil
}

// New creates a mock agent with the given reply function.
func New(name string, reply ReplyFunc, opts ...agent.Option) *Agent {
	r := &recorder{
		reply:   reply,
		started: make(chan struct{}, 1),
	}
	return &Agent{
		Base:     agent.New(name, r, opts...),
		behavior: r,
	}
}

// NewEcho replies "<name>: <text of last input>".
func NewEcho(name string, opts ...agent.Option) *Agent {
	return New(name, func(_ context.Context, inv *agent.Invocation) (*protocol.Msg, error) {
		text := ""
		if last := inv.LastInput(); last != nil {
			text = last.TextContent()
		}
		return protocol.NewMsg(name, protocol.RoleAssistant, fmt.Sprintf("%s: %s", name, text)), nil
	}, opts...)
}

// NewScripted replies with the given texts in order, repeating the last one
// once the script is exhausted.
func NewScripted(name string, replies []string, opts ...agent.Option) *Agent {
	var (
		mu   sync.Mutex
		next int
	)
	return New(name, func(_ context.Context, _ *agent.Invocation) (*protocol.Msg, error) {
		mu.Lock()
		defer mu.Unlock()

		if len(replies) == 0 {
			return nil, nil
		}
		text := replies[min(next, len(replies)-1)]
		next++
		return protocol.NewMsg(name, protocol.RoleAssistant, text), nil
	}, opts...)
}

// NewSilent never produces a reply.
func NewSilent(name string, opts ...agent.Option) *Agent {
	return New(name, func(context.Context, *agent.Invocation) (*protocol.Msg, error) {
		return nil, nil
	}, opts...)
}

// NewFailing returns err from every reply.
func NewFailing(name string, err error, opts ...agent.Option) *Agent {
	return New(name, func(context.Context, *agent.Invocation) (*protocol.Msg, error) {
		return nil, err
	}, opts...)
}

// NewBlocking blocks every reply until its context is done. Use Started to
// wait for the reply to be in flight before interrupting it.
func NewBlocking(name string, opts ...agent.Option) *Agent {
	return New(name, func(ctx context.Context, _ *agent.Invocation) (*protocol.Msg, error) {
		<-ctx.Done()
		return nil, context.Cause(ctx)
	}, opts...)
}

// NewStreaming prints chunks as a growing message sharing one ID, marking
// the final chunk as last, and replies with the complete message.
func NewStreaming(name string, chunks []string, opts ...agent.Option) *Agent {
	return New(name, func(ctx context.Context, inv *agent.Invocation) (*protocol.Msg, error) {
		msg := protocol.NewMsg(name, protocol.RoleAssistant, "")
		text := ""
		for i, chunk := range chunks {
			text += chunk
			msg.Content = []protocol.Block{protocol.TextBlock{Text: text}}
			if err := inv.Print(ctx, msg.Clone(), i == len(chunks)-1); err != nil {
				return nil, err
			}
		}
		return msg, nil
	}, opts...)
}

// WithInterruptHandler overrides the default interrupt reply.
func (a *Agent) WithInterruptHandler(h func(ctx context.Context, inv *agent.Invocation, cause error) (*protocol.Msg, error)) *Agent {
	a.behavior.interrupt = h
	return a
}

// Started signals each time a reply begins, buffered by one.
func (a *Agent) Started() <-chan struct{} {
	return a.behavior.started
}

// Inputs returns the input of every reply in call order.
func (a *Agent) Inputs() [][]*protocol.Msg {
	a.behavior.mu.Lock()
	defer a.behavior.mu.Unlock()
	out := make([][]*protocol.Msg, len(a.behavior.inputs))
	copy(out, a.behavior.inputs)
	return out
}

// Calls returns how many replies ran.
func (a *Agent) Calls() int {
	a.behavior.mu.Lock()
	defer a.behavior.mu.Unlock()
	return len(a.behavior.inputs)
}

// Observed returns every message received through Observe.
func (a *Agent) Observed() []*protocol.Msg {
	a.behavior.mu.Lock()
	defer a.behavior.mu.Unlock()
	out := make([]*protocol.Msg, len(a.behavior.observed))
	copy(out, a.behavior.observed)
	return out
}

// ObservedText returns the text content of every observed message.
func (a *Agent) ObservedText() []string {
	observed := a.Observed()
	out := make([]string, len(observed))
	for i, m := range observed {
		out[i] = m.TextContent()
	}
	return out
}

// InterruptCauses returns the cause passed to each interrupt handling.
func (a *Agent) InterruptCauses() []error {
	a.behavior.mu.Lock()
	defer a.behavior.mu.Unlock()
	out := make([]error, len(a.behavior.causes))
	copy(out, a.behavior.causes)
	return out
}
