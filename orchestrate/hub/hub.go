package hub

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
)

// Hub event types.
const (
	EventEnter     observability.EventType = "hub.enter"
	EventExit      observability.EventType = "hub.exit"
	EventAdd       observability.EventType = "hub.add"
	EventDelete    observability.EventType = "hub.delete"
	EventBroadcast observability.EventType = "hub.broadcast"
)

// Hub is a scoped broadcast group. While entered, a reply from any
// participant is delivered to every other participant through the
// subscriptions the hub registers on their behalf.
//
// The hub references its participants but never owns them.
type Hub struct {
	name         string
	announcement []*protocol.Msg
	logger       *slog.Logger
	observer     observability.Observer
	metrics      *Metrics

	mu            sync.Mutex
	participants  []agent.Agent
	autoBroadcast bool
	entered       bool
}

// Option configures a Hub at construction.
type Option func(*Hub)

// WithAnnouncement delivers msgs to every participant on Enter. Agents added
// after Enter never receive it.
func WithAnnouncement(msgs ...*protocol.Msg) Option {
	return func(h *Hub) { h.announcement = append(h.announcement, msgs...) }
}

// WithObserver overrides the observer resolved from HubConfig.Observer.
func WithObserver(o observability.Observer) Option {
	return func(h *Hub) { h.observer = o }
}

// New creates a hub over participants. Duplicate participants (by ID)
// collapse to their first position.
func New(cfg config.HubConfig, participants []agent.Agent, opts ...Option) (*Hub, error) {
	h := &Hub{
		name:          cfg.Name,
		logger:        cfg.Logger,
		metrics:       NewMetrics(),
		autoBroadcast: cfg.AutoBroadcast(),
	}

	if h.name == "" {
		h.name = uuid.Must(uuid.NewV7()).String()
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.observer == nil {
		observer, err := observability.ResolveObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		h.observer = observer
	}

	for _, a := range participants {
		if !h.contains(a) {
			h.participants = append(h.participants, a)
		}
	}
	h.metrics.RecordParticipants(len(h.participants))

	return h, nil
}

// Run enters a hub, runs fn, and exits the hub on every return path,
// including panics and cancellation of ctx.
func Run(ctx context.Context, cfg config.HubConfig, participants []agent.Agent, fn func(ctx context.Context, h *Hub) error, opts ...Option) error {
	h, err := New(cfg, participants, opts...)
	if err != nil {
		return err
	}

	defer h.Exit(context.WithoutCancel(ctx))

	if err := h.Enter(ctx); err != nil {
		return err
	}

	return fn(ctx, h)
}

func (h *Hub) Name() string { return h.name }

// Participants returns a snapshot of the current participants in order.
func (h *Hub) Participants() []agent.Agent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.participants)
}

func (h *Hub) AutoBroadcast() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.autoBroadcast
}

func (h *Hub) Metrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}

// Enter registers mutual subscriptions among the participants and delivers
// the announcement, if any, to each of them. Subscriptions are registered
// before the announcement so Exit has something to undo even when delivery
// fails.
func (h *Hub) Enter(ctx context.Context) error {
	h.mu.Lock()
	h.entered = true
	h.resetSubscribers()
	participants := slices.Clone(h.participants)
	h.mu.Unlock()

	h.logger.DebugContext(
		ctx,
		"hub entered",
		slog.String("hub_name", h.name),
		slog.Int("participants", len(participants)),
	)
	h.emit(ctx, EventEnter, observability.LevelInfo, map[string]any{
		"participants":     len(participants),
		"has_announcement": len(h.announcement) > 0,
	})

	if len(h.announcement) == 0 {
		return nil
	}

	return h.deliver(ctx, participants, h.announcement)
}

// Exit removes this hub's subscriptions from every participant.
func (h *Hub) Exit(ctx context.Context) {
	h.mu.Lock()
	if h.entered && h.autoBroadcast {
		for _, a := range h.participants {
			a.RemoveSubscribers(h.name)
		}
	}
	h.entered = false
	count := len(h.participants)
	h.mu.Unlock()

	h.logger.DebugContext(
		ctx,
		"hub exited",
		slog.String("hub_name", h.name),
	)
	h.emit(ctx, EventExit, observability.LevelInfo, map[string]any{
		"participants": count,
	})
}

// Add appends agents not already participating and re-derives every
// participant's subscriptions.
func (h *Hub) Add(ctx context.Context, agents ...agent.Agent) {
	h.mu.Lock()
	added := 0
	for _, a := range agents {
		if h.contains(a) {
			continue
		}
		h.participants = append(h.participants, a)
		added++
	}
	h.resetSubscribers()
	count := len(h.participants)
	h.mu.Unlock()

	h.metrics.RecordParticipants(added)
	h.emit(ctx, EventAdd, observability.LevelVerbose, map[string]any{
		"added":        added,
		"participants": count,
	})
}

// Delete removes agents from the hub. An agent that is not a participant is
// logged and skipped.
func (h *Hub) Delete(ctx context.Context, agents ...agent.Agent) {
	h.mu.Lock()
	removed := 0
	for _, a := range agents {
		i := slices.IndexFunc(h.participants, func(p agent.Agent) bool { return p.ID() == a.ID() })
		if i < 0 {
			h.logger.WarnContext(
				ctx,
				"agent not in hub, skipping deletion",
				slog.String("hub_name", h.name),
				slog.String("agent_id", a.ID()),
			)
			continue
		}
		h.participants = slices.Delete(h.participants, i, i+1)
		if h.entered && h.autoBroadcast {
			a.RemoveSubscribers(h.name)
		}
		removed++
	}
	h.resetSubscribers()
	count := len(h.participants)
	h.mu.Unlock()

	h.metrics.RecordParticipants(-removed)
	h.emit(ctx, EventDelete, observability.LevelVerbose, map[string]any{
		"removed":      removed,
		"participants": count,
	})
}

// Broadcast delivers msgs to every current participant's Observe in
// participant order, regardless of auto-broadcast. The first observe error
// stops delivery and is returned.
func (h *Hub) Broadcast(ctx context.Context, msgs ...*protocol.Msg) error {
	return h.deliver(ctx, h.Participants(), msgs)
}

// SetAutoBroadcast toggles automatic propagation of replies. Disabling
// removes this hub's subscriptions immediately; enabling re-derives them from
// the current participants.
func (h *Hub) SetAutoBroadcast(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if enabled {
		h.autoBroadcast = true
		h.resetSubscribers()
		return
	}

	h.autoBroadcast = false
	if h.entered {
		for _, a := range h.participants {
			a.RemoveSubscribers(h.name)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, participants []agent.Agent, msgs []*protocol.Msg) error {
	start := time.Now()
	delivered := 0
	var err error

	for _, a := range participants {
		if err = a.Observe(ctx, protocol.CloneAll(msgs)...); err != nil {
			err = fmt.Errorf("hub %s: deliver to %s: %w", h.name, a.Name(), err)
			break
		}
		delivered++
	}

	h.metrics.RecordBroadcast(delivered)
	h.emit(ctx, EventBroadcast, observability.LevelVerbose, map[string]any{
		"messages":    len(msgs),
		"recipients":  len(participants),
		"delivered":   delivered,
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       err != nil,
	})

	return err
}

// resetSubscribers requires h.mu.
func (h *Hub) resetSubscribers() {
	if !h.entered || !h.autoBroadcast {
		return
	}
	peers := slices.Clone(h.participants)
	for _, a := range h.participants {
		a.ResetSubscribers(h.name, peers)
	}
}

// contains requires h.mu or exclusive access.
func (h *Hub) contains(a agent.Agent) bool {
	return slices.ContainsFunc(h.participants, func(p agent.Agent) bool { return p.ID() == a.ID() })
}

func (h *Hub) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	data["hub_name"] = h.name
	h.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "hub.Hub",
		Data:      data,
	})
}
