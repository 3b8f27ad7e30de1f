package agent

import (
	"fmt"
	"slices"
	"sync"
)

// Roster tracks live agents by name in registration order.
// Thread-safe for concurrent access.
type Roster struct {
	mu     sync.RWMutex
	order  []string
	agents map[string]Agent
}

// NewRoster creates a Roster holding the given agents.
func NewRoster(agents ...Agent) (*Roster, error) {
	r := &Roster{agents: make(map[string]Agent)}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an agent under its name.
func (r *Roster) Register(a Agent) error {
	name := a.Name()
	if name == "" {
		return ErrEmptyAgentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}

	r.agents[name] = a
	r.order = append(r.order, name)
	return nil
}

// Unregister removes a named agent, e.g. when a player leaves a game.
func (r *Roster) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}

	delete(r.agents, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return nil
}

func (r *Roster) Get(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// Agents returns the live agents in registration order.
func (r *Roster) Agents() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Agent, len(r.order))
	for i, name := range r.order {
		out[i] = r.agents[name]
	}
	return out
}

func (r *Roster) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Choice builds a choice schema over the current roster.
func (r *Roster) Choice(field, description string) (Choice, error) {
	return NewChoice(field, description, r.Agents()...)
}

// Choice is a structured-output schema constraining one string field to
// the names of a set of agents, captured when the Choice is built.
type Choice struct {
	Field       string
	Description string
	Options     []string
}

// NewChoice captures the agent names as the allowed values for field.
// Duplicate names collapse to one option.
func NewChoice(field, description string, agents ...Agent) (Choice, error) {
	if len(agents) == 0 {
		return Choice{}, ErrEmptyRoster
	}

	options := make([]string, 0, len(agents))
	for _, a := range agents {
		if !slices.Contains(options, a.Name()) {
			options = append(options, a.Name())
		}
	}

	return Choice{
		Field:       field,
		Description: description,
		Options:     options,
	}, nil
}

// Schema renders the choice as a JSON Schema object.
func (c Choice) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			c.Field: map[string]any{
				"type":        "string",
				"enum":        slices.Clone(c.Options),
				"description": c.Description,
			},
		},
		"required": []string{c.Field},
	}
}

// Validate reports whether value is an allowed option.
func (c Choice) Validate(value string) error {
	if !slices.Contains(c.Options, value) {
		return fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidChoice, c.Field, c.Options, value)
	}
	return nil
}

// Parse extracts and validates the choice from structured output fields,
// such as a reply's metadata.
func (c Choice) Parse(fields map[string]any) (string, error) {
	raw, ok := fields[c.Field]
	if !ok {
		return "", fmt.Errorf("%w: missing field %s", ErrInvalidChoice, c.Field)
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %s is %T, want string", ErrInvalidChoice, c.Field, raw)
	}

	if err := c.Validate(value); err != nil {
		return "", err
	}
	return value, nil
}
