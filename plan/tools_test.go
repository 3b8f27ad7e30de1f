package plan_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/plan"
)

func TestNotebook_ToolsOrder(t *testing.T) {
	registry, err := newNotebook(t).Tools()
	require.NoError(t, err)

	var names []string
	for _, tool := range registry.List() {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.Parameters["type"], tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, []string{
		"view_subtasks",
		"update_subtask_state",
		"finish_subtask",
		"create_plan",
		"revise_current_plan",
		"finish_plan",
		"view_historical_plans",
		"recover_historical_plan",
	}, names)
}

func TestNotebook_ToolsDriveThePlan(t *testing.T) {
	ctx := context.Background()
	nb := newNotebook(t)
	registry, err := nb.Tools()
	require.NoError(t, err)

	res, err := registry.Execute(ctx, "update_subtask_state", json.RawMessage(`{"subtask_idx": 0, "state": "in_progress"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, plan.ErrNoCurrentPlan.Error(), res.Content)

	res, err = registry.Execute(ctx, "create_plan", json.RawMessage(`{
		"name": "Trip",
		"description": "Plan a trip",
		"expected_outcome": "An itinerary",
		"subtasks": [
			{"name": "Flights", "description": "Book flights", "expected_outcome": "Tickets"},
			{"name": "Hotel", "description": "Book a hotel", "expected_outcome": "Reservation"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Plan 'Trip' created successfully.", res.Content)

	res, err = registry.Execute(ctx, "revise_current_plan", json.RawMessage(`{"subtask_idx": 2, "action": "add", "subtask": {"name": "Car", "description": "Rent a car", "expected_outcome": "Booking"}}`))
	require.NoError(t, err)
	assert.Equal(t, "New subtask is added successfully at index 2.", res.Content)

	res, err = registry.Execute(ctx, "finish_subtask", json.RawMessage(`{"subtask_idx": 0, "subtask_outcome": "LH123"}`))
	require.NoError(t, err)
	assert.Equal(t, "Subtask (at index 0) named 'Flights' is marked as done successfully. The next subtask named 'Hotel' is activated.", res.Content)

	res, err = registry.Execute(ctx, "view_subtasks", json.RawMessage(`{"subtask_idx": [0, 5, 7]}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "\t- Actual Outcome: LH123")
	assert.Contains(t, res.Content, "Invalid subtask_idx '[5, 7]'. Must be between 0 and 2.")

	id := nb.CurrentPlan().ID
	res, err = registry.Execute(ctx, "finish_plan", json.RawMessage(`{"state": "abandoned", "outcome": "cancelled"}`))
	require.NoError(t, err)
	assert.Equal(t, "The current plan is finished successfully as 'abandoned'.", res.Content)

	res, err = registry.Execute(ctx, "view_historical_plans", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "- ID: "+id)

	res, err = registry.Execute(ctx, "recover_historical_plan", json.RawMessage(`{"plan_id": "`+id+`"}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "is recovered successfully.")
	assert.Equal(t, id, nb.CurrentPlan().ID)
}

func TestNotebook_ToolsRejectMalformedArguments(t *testing.T) {
	registry, err := newNotebook(t).Tools()
	require.NoError(t, err)

	res, err := registry.Execute(context.Background(), "finish_subtask", json.RawMessage(`{"subtask_idx": "zero"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "Invalid arguments")
}

// Activation succeeds exactly when every earlier subtask is resolved and
// nothing is in progress, a reset succeeds unless a later subtask is in
// progress, and no sequence of these operations breaks the ordering
// invariant.
func TestNotebook_OrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		nb, err := plan.NewNotebook(config.DefaultNotebookConfig())
		if err != nil {
			t.Fatalf("new notebook: %v", err)
		}

		size := rapid.IntRange(1, 6).Draw(t, "size")
		subtasks := make([]plan.SubTask, size)
		for i := range subtasks {
			subtasks[i] = plan.NewSubTask("t", "d", "o")
		}
		if _, err := nb.CreatePlan(ctx, "p", "d", "o", subtasks); err != nil {
			t.Fatalf("create: %v", err)
		}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for range steps {
			before := nb.CurrentPlan()
			idx := rapid.IntRange(0, size-1).Draw(t, "idx")
			op := rapid.SampledFrom([]string{"activate", "abandon", "reset", "finish"}).Draw(t, "op")

			switch op {
			case "activate":
				res, err := nb.UpdateSubtaskState(ctx, idx, plan.StateInProgress)
				if err != nil {
					t.Fatalf("activate: %v", err)
				}
				if want := canActivate(before, idx); res.IsError == want {
					t.Fatalf("activate %d on %v: failed=%v, want allowed=%v (%s)", idx, states(before), res.IsError, want, res.Content)
				}

			case "abandon":
				if _, err := nb.UpdateSubtaskState(ctx, idx, plan.StateAbandoned); err != nil {
					t.Fatalf("abandon: %v", err)
				}

			case "reset":
				res, err := nb.UpdateSubtaskState(ctx, idx, plan.StateTodo)
				if err != nil {
					t.Fatalf("reset: %v", err)
				}
				if want := before.InProgress() <= idx; res.IsError == want {
					t.Fatalf("reset %d on %v: failed=%v, want allowed=%v (%s)", idx, states(before), res.IsError, want, res.Content)
				}

			case "finish":
				res, err := nb.FinishSubtask(ctx, idx, "ok")
				if err != nil {
					t.Fatalf("finish: %v", err)
				}
				after := nb.CurrentPlan()
				if !res.IsError && idx+1 < size && !before.Subtasks[idx+1].State.Resolved() && (before.InProgress() < 0 || before.InProgress() == idx) {
					if after.InProgress() != idx+1 {
						t.Fatalf("finish %d on %v left %v", idx, states(before), states(after))
					}
				}
			}

			if err := nb.CurrentPlan().Validate(); err != nil {
				t.Fatalf("after %s %d: %v (%v)", op, idx, err, states(nb.CurrentPlan()))
			}
		}
	})
}

func canActivate(p *plan.Plan, idx int) bool {
	for i, s := range p.Subtasks {
		if i < idx && !s.State.Resolved() {
			return false
		}
		if s.State == plan.StateInProgress {
			return false
		}
	}
	return true
}

func states(p *plan.Plan) []plan.State {
	out := make([]plan.State, len(p.Subtasks))
	for i, s := range p.Subtasks {
		out[i] = s.State
	}
	return out
}
