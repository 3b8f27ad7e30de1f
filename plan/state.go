package plan

import (
	"encoding/json"
	"fmt"
)

// The state shape of a plan nested in a session snapshot. Lifecycle
// fields are transient and left out: a restored plan starts over as todo.
type (
	planState struct {
		Name            string         `json:"name"`
		Description     string         `json:"description"`
		ExpectedOutcome string         `json:"expected_outcome"`
		Subtasks        []subtaskState `json:"subtasks"`
	}

	subtaskState struct {
		Name            string `json:"name"`
		Description     string `json:"description"`
		ExpectedOutcome string `json:"expected_outcome"`
		CreatedAt       string `json:"created_at"`
	}

	notebookState struct {
		CurrentPlan *planState `json:"current_plan"`
	}
)

// StateDict snapshots the notebook for session persistence as
// {"current_plan": ...}, with null when there is no plan.
func (n *Notebook) StateDict() (json.RawMessage, error) {
	var state notebookState
	if p := n.CurrentPlan(); p != nil {
		ps := &planState{
			Name:            p.Name,
			Description:     p.Description,
			ExpectedOutcome: p.ExpectedOutcome,
			Subtasks:        make([]subtaskState, len(p.Subtasks)),
		}
		for i, s := range p.Subtasks {
			ps.Subtasks[i] = subtaskState{
				Name:            s.Name,
				Description:     s.Description,
				ExpectedOutcome: s.ExpectedOutcome,
				CreatedAt:       s.CreatedAt,
			}
		}
		state.CurrentPlan = ps
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal notebook state: %w", err)
	}
	return data, nil
}

// LoadStateDict restores the current plan from a StateDict snapshot. The
// restored plan gets a new ID and creation time, and every subtask is todo.
// Change hooks do not fire.
func (n *Notebook) LoadStateDict(data json.RawMessage) error {
	var state notebookState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("unmarshal notebook state: %w", err)
	}

	var current *Plan
	if ps := state.CurrentPlan; ps != nil {
		subtasks := make([]SubTask, len(ps.Subtasks))
		for i, s := range ps.Subtasks {
			subtasks[i] = SubTask{
				Name:            s.Name,
				Description:     s.Description,
				ExpectedOutcome: s.ExpectedOutcome,
				CreatedAt:       s.CreatedAt,
			}
		}
		current = NewPlan(ps.Name, ps.Description, ps.ExpectedOutcome, subtasks)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = current
	return nil
}
