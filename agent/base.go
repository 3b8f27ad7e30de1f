package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/observability"
)

// Agent event types.
const (
	EventCallStart    observability.EventType = "agent.call.start"
	EventCallComplete observability.EventType = "agent.call.complete"
	EventInterrupt    observability.EventType = "agent.interrupt"
	EventBroadcast    observability.EventType = "agent.broadcast"
)

type subscription struct {
	hub   string
	peers []Agent
}

// Base is the Agent implementation that wraps a Behavior.
type Base struct {
	id       string
	name     string
	behavior Behavior

	logger     *slog.Logger
	observer   observability.Observer
	hooks      *Hooks
	classHooks *Hooks
	console    *ConsolePrinter

	// slot holds a token while a reply is in flight.
	slot chan struct{}

	mu            sync.Mutex
	subscriptions []subscription
	cancel        context.CancelCauseFunc
	sink          PrintSink
}

// Option configures a Base at construction.
type Option func(*Base)

// WithID overrides the generated agent ID.
func WithID(id string) Option {
	return func(a *Base) { a.id = id }
}

// WithLogger overrides slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Base) { a.logger = logger }
}

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(a *Base) { a.observer = o }
}

// WithClassHooks attaches hooks shared by every agent constructed with the
// same value. They run before the agent's instance hooks.
func WithClassHooks(h *Hooks) Option {
	return func(a *Base) { a.classHooks = h }
}

// WithConsole writes printed chunks to w as they stream.
func WithConsole(w io.Writer) Option {
	return func(a *Base) { a.console = NewConsolePrinter(w) }
}

// New creates a Base agent named name around behavior.
func New(name string, behavior Behavior, opts ...Option) *Base {
	a := &Base{
		id:       uuid.Must(uuid.NewV7()).String(),
		name:     name,
		behavior: behavior,
		logger:   slog.Default(),
		observer: observability.NoOpObserver{},
		hooks:    NewHooks(),
		slot:     make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Base) ID() string   { return a.id }
func (a *Base) Name() string { return a.name }

// Hooks returns the agent's instance hooks.
func (a *Base) Hooks() *Hooks { return a.hooks }

// Call runs one reply invocation. Concurrent calls on the same agent wait
// for the in-flight invocation to finish.
func (a *Base) Call(ctx context.Context, msgs ...*protocol.Msg) (*protocol.Msg, error) {
	select {
	case a.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("agent %s: waiting for in-flight reply: %w", a.name, ctx.Err())
	}
	defer func() { <-a.slot }()

	inv := &Invocation{
		ID:    uuid.Must(uuid.NewV7()).String(),
		Agent: a,
		Input: msgs,
	}

	a.emit(ctx, EventCallStart, observability.LevelVerbose, map[string]any{
		"invocation_id": inv.ID,
		"input_count":   len(msgs),
	})

	reply, interrupted, err := a.invoke(ctx, inv)

	a.emit(ctx, EventCallComplete, observability.LevelVerbose, map[string]any{
		"invocation_id": inv.ID,
		"interrupted":   interrupted,
		"has_reply":     reply != nil,
		"error":         err != nil,
	})

	if err != nil {
		return nil, err
	}

	if reply != nil {
		if err := a.broadcast(ctx, reply); err != nil {
			return reply, err
		}
	}

	return reply, nil
}

func (a *Base) invoke(ctx context.Context, inv *Invocation) (*protocol.Msg, bool, error) {
	// The handle is live for the pre-reply hooks too, so an interrupt that
	// lands while they run still reaches HandleInterrupt.
	replyCtx, cancel := context.WithCancelCause(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
		cancel(nil)
	}()

	var (
		reply *protocol.Msg
		err   error
	)
	hookErr := a.runPreReply(replyCtx, inv)
	if hookErr == nil && !interrupted(ctx, replyCtx) {
		reply, err = a.behavior.Reply(replyCtx, inv)
	}

	cause := context.Cause(replyCtx)
	if interrupted(ctx, replyCtx) && (hookErr != nil || err != nil || reply == nil) {
		a.logger.DebugContext(
			ctx,
			"agent reply interrupted",
			slog.String("agent_id", a.id),
			slog.String("agent_name", a.name),
			slog.String("cause", cause.Error()),
		)

		reply, err = a.behavior.HandleInterrupt(ctx, inv, cause)
		if err != nil {
			return nil, true, fmt.Errorf("agent %s: handle interrupt: %w", a.name, err)
		}
		return reply, true, nil
	}

	if hookErr != nil {
		return nil, false, hookErr
	}
	if err != nil {
		return nil, false, fmt.Errorf("agent %s: reply: %w", a.name, err)
	}

	reply, err = a.runPostReply(ctx, inv, reply)
	if err != nil {
		return nil, false, err
	}

	return reply, false, nil
}

// interrupted reports whether replyCtx was cancelled by Interrupt rather
// than by the caller's ctx.
func interrupted(ctx, replyCtx context.Context) bool {
	return ctx.Err() == nil && errors.Is(context.Cause(replyCtx), ErrInterrupted)
}

// Interrupt cancels the in-flight reply. A nil cause records ErrInterrupted;
// other causes are wrapped so errors.Is(cause, ErrInterrupted) holds.
func (a *Base) Interrupt(cause error) bool {
	if cause == nil {
		cause = ErrInterrupted
	} else if !errors.Is(cause, ErrInterrupted) {
		cause = fmt.Errorf("%w: %w", ErrInterrupted, cause)
	}

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel == nil {
		return false
	}

	cancel(cause)
	a.emit(context.Background(), EventInterrupt, observability.LevelInfo, map[string]any{
		"cause": cause.Error(),
	})
	return true
}

// Observe receives messages without replying.
func (a *Base) Observe(ctx context.Context, msgs ...*protocol.Msg) error {
	msgs, err := a.runPreObserve(ctx, msgs)
	if err != nil {
		return err
	}

	if err := a.behavior.Observe(ctx, msgs); err != nil {
		return fmt.Errorf("agent %s: observe: %w", a.name, err)
	}

	return a.runPostObserve(ctx, msgs)
}

// Print hands a chunk to the print sink, then to the console if one is
// configured. Chunks sharing msg.ID belong to one logical message and last
// marks the final one.
func (a *Base) Print(ctx context.Context, msg *protocol.Msg, last bool) error {
	msg, err := a.runPrePrint(ctx, msg, last)
	if err != nil {
		return err
	}

	a.mu.Lock()
	sink := a.sink
	a.mu.Unlock()

	if sink != nil {
		if err := sink(ctx, msg, last); err != nil {
			return fmt.Errorf("agent %s: print sink: %w", a.name, err)
		}
	}

	if a.console != nil {
		if err := a.console.Print(msg, last); err != nil {
			return fmt.Errorf("agent %s: console: %w", a.name, err)
		}
	}

	return a.runPostPrint(ctx, msg, last)
}

func (a *Base) SetPrintSink(sink PrintSink) PrintSink {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.sink
	a.sink = sink
	return previous
}

// ResetSubscribers replaces the peers for hub, excluding the agent itself.
// A hub keeps its original registration position when reset again.
func (a *Base) ResetSubscribers(hub string, peers []Agent) {
	filtered := make([]Agent, 0, len(peers))
	for _, p := range peers {
		if p.ID() != a.id {
			filtered = append(filtered, p)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.subscriptions {
		if a.subscriptions[i].hub == hub {
			a.subscriptions[i].peers = filtered
			return
		}
	}
	a.subscriptions = append(a.subscriptions, subscription{hub: hub, peers: filtered})
}

func (a *Base) RemoveSubscribers(hub string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.subscriptions {
		if a.subscriptions[i].hub == hub {
			a.subscriptions = slices.Delete(a.subscriptions, i, i+1)
			return
		}
	}

	a.logger.Warn(
		"hub not found in subscriptions",
		slog.String("agent_name", a.name),
		slog.String("hub_name", hub),
	)
}

// Subscriptions returns, per hub in registration order, the subscribed
// peer names.
func (a *Base) Subscriptions() map[string][]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string][]string, len(a.subscriptions))
	for _, s := range a.subscriptions {
		names := make([]string, len(s.peers))
		for i, p := range s.peers {
			names[i] = p.Name()
		}
		out[s.hub] = names
	}
	return out
}

// SubscribedHubs returns hub names in registration order.
func (a *Base) SubscribedHubs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	hubs := make([]string, len(a.subscriptions))
	for i, s := range a.subscriptions {
		hubs[i] = s.hub
	}
	return hubs
}

func (a *Base) broadcast(ctx context.Context, reply *protocol.Msg) error {
	a.mu.Lock()
	var peers []Agent
	for _, s := range a.subscriptions {
		peers = append(peers, s.peers...)
	}
	a.mu.Unlock()

	if len(peers) == 0 {
		return nil
	}

	start := time.Now()
	for _, peer := range peers {
		if err := peer.Observe(ctx, reply.Clone()); err != nil {
			return fmt.Errorf("agent %s: broadcast to %s: %w", a.name, peer.Name(), err)
		}
	}

	a.emit(ctx, EventBroadcast, observability.LevelVerbose, map[string]any{
		"msg_id":     reply.ID,
		"recipients": len(peers),
		"duration":   time.Since(start).String(),
	})

	return nil
}

func (a *Base) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	data["agent_id"] = a.id
	data["agent_name"] = a.name
	a.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "agent." + a.name,
		Data:      data,
	})
}
