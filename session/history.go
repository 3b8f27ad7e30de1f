package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
)

// History is an ordered conversation log. It is a StateModule, so a
// JSONSession can persist it next to a plan notebook.
type History struct {
	id       string
	messages []*protocol.Msg
	mu       sync.RWMutex
}

var _ StateModule = (*History)(nil)

// NewHistory creates an empty history with a UUIDv7 identifier.
func NewHistory() *History {
	return &History{
		id: uuid.Must(uuid.NewV7()).String(),
	}
}

func (h *History) ID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.id
}

// Add appends copies of msgs. Nil messages are skipped.
func (h *History) Add(msgs ...*protocol.Msg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		if m != nil {
			h.messages = append(h.messages, m.Clone())
		}
	}
}

// Messages returns a copy of the log.
func (h *History) Messages() []*protocol.Msg {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return protocol.CloneAll(h.messages)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

type historyState struct {
	ID       string          `json:"id"`
	Messages []*protocol.Msg `json:"messages"`
}

func (h *History) StateDict() (json.RawMessage, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	state := historyState{ID: h.id, Messages: h.messages}
	if state.Messages == nil {
		state.Messages = []*protocol.Msg{}
	}
	return json.Marshal(state)
}

// LoadStateDict replaces the identifier and log with the captured state.
func (h *History) LoadStateDict(data json.RawMessage) error {
	var state historyState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode history state: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if state.ID != "" {
		h.id = state.ID
	}
	h.messages = state.Messages
	return nil
}
