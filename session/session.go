// Package session persists orchestration state across process restarts.
//
// A session snapshot is a JSON object mapping module names to the state each
// module reports through StateModule. JSONSession writes one snapshot per
// session ID into a memory.Store, as {id}.json.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/tailored-agentic-units/orchestra/memory"
)

// ErrSessionNotFound is returned by Load when no snapshot exists for the
// session and missing snapshots are not allowed.
var ErrSessionNotFound = errors.New("session not found")

// StateModule is a component whose state can be captured and restored.
// plan.Notebook and History implement it.
type StateModule interface {
	StateDict() (json.RawMessage, error)
	LoadStateDict(state json.RawMessage) error
}

// JSONSession saves and loads named state modules as JSON snapshots.
type JSONSession struct {
	store         memory.Store
	allowNotExist bool
	logger        *slog.Logger
}

// Option configures a JSONSession.
type Option func(*JSONSession)

// WithAllowNotExist controls whether loading a missing session is a no-op.
func WithAllowNotExist(allow bool) Option {
	return func(s *JSONSession) { s.allowNotExist = allow }
}

// WithLogger overrides slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *JSONSession) { s.logger = logger }
}

// NewJSONSession creates a session persister over store. Missing sessions
// load as a no-op unless WithAllowNotExist(false) is given.
func NewJSONSession(store memory.Store, opts ...Option) *JSONSession {
	s := &JSONSession{
		store:         store,
		allowNotExist: true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(id string) (string, error) {
	k := id + ".json"
	if err := memory.ValidateKey(k); err != nil {
		return "", fmt.Errorf("session id %q: %w", id, err)
	}
	return k, nil
}

// Save captures every module's state and writes the snapshot for id,
// replacing any previous snapshot.
func (s *JSONSession) Save(ctx context.Context, id string, modules map[string]StateModule) error {
	k, err := key(id)
	if err != nil {
		return err
	}

	snapshot := make(map[string]json.RawMessage, len(modules))
	for _, name := range slices.Sorted(maps.Keys(modules)) {
		state, err := modules[name].StateDict()
		if err != nil {
			return fmt.Errorf("capture state of %s: %w", name, err)
		}
		snapshot[name] = state
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", id, err)
	}

	if err := s.store.Save(ctx, memory.Entry{Key: k, Value: data}); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "session saved",
		slog.String("session_id", id),
		slog.Int("modules", len(snapshot)))
	return nil
}

// Load restores the modules present in the snapshot for id. Modules absent
// from the snapshot are left untouched, as are snapshot entries with no
// matching module.
func (s *JSONSession) Load(ctx context.Context, id string, modules map[string]StateModule) error {
	k, err := key(id)
	if err != nil {
		return err
	}

	entries, err := s.store.Load(ctx, k)
	if err != nil {
		if errors.Is(err, memory.ErrKeyNotFound) {
			if s.allowNotExist {
				s.logger.InfoContext(ctx, "session snapshot does not exist, skipping load",
					slog.String("session_id", id))
				return nil
			}
			return fmt.Errorf("%w: failed to load session state for %s", ErrSessionNotFound, k)
		}
		return err
	}

	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(entries[0].Value, &snapshot); err != nil {
		return fmt.Errorf("parse session %s: %w", id, err)
	}

	loaded := 0
	for _, name := range slices.Sorted(maps.Keys(modules)) {
		state, ok := snapshot[name]
		if !ok {
			continue
		}
		if err := modules[name].LoadStateDict(state); err != nil {
			return fmt.Errorf("restore state of %s: %w", name, err)
		}
		loaded++
	}

	s.logger.DebugContext(ctx, "session loaded",
		slog.String("session_id", id),
		slog.Int("modules", loaded))
	return nil
}

// Delete removes the snapshot for id. A missing snapshot is not an error.
func (s *JSONSession) Delete(ctx context.Context, id string) error {
	k, err := key(id)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, k)
}
