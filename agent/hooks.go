package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
)

// Hook signatures per lifecycle point. Pre hooks return the (possibly
// rewritten) arguments passed on to the next hook; post reply hooks return
// the (possibly rewritten) reply.
type (
	PreReplyHook    func(ctx context.Context, inv *Invocation, input []*protocol.Msg) ([]*protocol.Msg, error)
	PostReplyHook   func(ctx context.Context, inv *Invocation, reply *protocol.Msg) (*protocol.Msg, error)
	PrePrintHook    func(ctx context.Context, a *Base, msg *protocol.Msg, last bool) (*protocol.Msg, error)
	PostPrintHook   func(ctx context.Context, a *Base, msg *protocol.Msg, last bool) error
	PreObserveHook  func(ctx context.Context, a *Base, msgs []*protocol.Msg) ([]*protocol.Msg, error)
	PostObserveHook func(ctx context.Context, a *Base, msgs []*protocol.Msg) error
)

type hookEntry[H any] struct {
	name string
	hook H
}

// Chain is an ordered list of named hooks. Registering an existing name
// replaces the hook in place. The zero value is ready to use.
type Chain[H any] struct {
	mu      sync.RWMutex
	entries []hookEntry[H]
}

func (c *Chain[H]) Register(name string, hook H) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].name == name {
			c.entries[i].hook = hook
			return
		}
	}
	c.entries = append(c.entries, hookEntry[H]{name: name, hook: hook})
}

// Remove deletes the named hook. Returns ErrHookNotFound if absent.
func (c *Chain[H]) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].name == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHookNotFound, name)
}

func (c *Chain[H]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Names returns the registered hook names in execution order.
func (c *Chain[H]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

func (c *Chain[H]) snapshot() []H {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hooks := make([]H, len(c.entries))
	for i, e := range c.entries {
		hooks[i] = e.hook
	}
	return hooks
}

// Hooks groups the chains for every lifecycle point. A Hooks value shared
// across agents through WithClassHooks acts as class-level hooks and runs
// before each agent's own instance hooks.
type Hooks struct {
	PreReply    Chain[PreReplyHook]
	PostReply   Chain[PostReplyHook]
	PrePrint    Chain[PrePrintHook]
	PostPrint   Chain[PostPrintHook]
	PreObserve  Chain[PreObserveHook]
	PostObserve Chain[PostObserveHook]
}

func NewHooks() *Hooks {
	return &Hooks{}
}

// Clear removes every hook at every lifecycle point.
func (h *Hooks) Clear() {
	h.PreReply.Clear()
	h.PostReply.Clear()
	h.PrePrint.Clear()
	h.PostPrint.Clear()
	h.PreObserve.Clear()
	h.PostObserve.Clear()
}

// layered returns a chain's hooks with class-level entries first.
func layered[H any](class, instance *Hooks, pick func(*Hooks) *Chain[H]) []H {
	var hooks []H
	if class != nil {
		hooks = append(hooks, pick(class).snapshot()...)
	}
	if instance != nil {
		hooks = append(hooks, pick(instance).snapshot()...)
	}
	return hooks
}

func (a *Base) runPreReply(ctx context.Context, inv *Invocation) error {
	for _, hook := range layered(a.classHooks, a.hooks, func(h *Hooks) *Chain[PreReplyHook] { return &h.PreReply }) {
		input, err := hook(ctx, inv, inv.Input)
		if err != nil {
			return fmt.Errorf("pre-reply hook: %w", err)
		}
		inv.Input = input
	}
	return nil
}

func (a *Base) runPostReply(ctx context.Context, inv *Invocation, reply *protocol.Msg) (*protocol.Msg, error) {
	for _, hook := range layered(a.classHooks, a.hooks, func(h *Hooks) *Chain[PostReplyHook] { return &h.PostReply }) {
		var err error
		reply, err = hook(ctx, inv, reply)
		if err != nil {
			return nil, fmt.Errorf("post-reply hook: %w", err)
		}
	}
	return reply, nil
}

func (a *Base) runPrePrint(ctx context.Context, msg *protocol.Msg, last bool) (*protocol.Msg, error) {
	for _, hook := range layered(a.classHooks, a.hooks, func(h *Hooks) *Chain[PrePrintHook] { return &h.PrePrint }) {
		var err error
		msg, err = hook(ctx, a, msg, last)
		if err != nil {
			return nil, fmt.Errorf("pre-print hook: %w", err)
		}
	}
	return msg, nil
}

func (a *Base) runPostPrint(ctx context.Context, msg *protocol.Msg, last bool) error {
	for _, hook := range layered(a.classHooks, a.hooks, func(h *Hooks) *Chain[PostPrintHook] { return &h.PostPrint }) {
		if err := hook(ctx, a, msg, last); err != nil {
			return fmt.Errorf("post-print hook: %w", err)
		}
	}
	return nil
}

func (a *Base) runPreObserve(ctx context.Context, msgs []*protocol.Msg) ([]*protocol.Msg, error) {
	for _, hook := range layered(a.classHooks, a.hooks, func(h *Hooks) *Chain[PreObserveHook] { return &h.PreObserve }) {
		var err error
		msgs, err = hook(ctx, a, msgs)
		if err != nil {
			return nil, fmt.Errorf("pre-observe hook: %w", err)
		}
	}
	return msgs, nil
}

func (a *Base) runPostObserve(ctx context.Context, msgs []*protocol.Msg) error {
	for _, hook := range layered(a.classHooks, a.hooks, func(h *Hooks) *Chain[PostObserveHook] { return &h.PostObserve }) {
		if err := hook(ctx, a, msgs); err != nil {
			return fmt.Errorf("post-observe hook: %w", err)
		}
	}
	return nil
}
