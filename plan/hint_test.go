package plan_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tailored-agentic-units/orchestra/plan"
)

func planWith(states ...plan.State) *plan.Plan {
	subtasks := make([]plan.SubTask, len(states))
	for i, s := range states {
		subtasks[i] = fixedSubtask("Task "+string(rune('A'+i)), s)
	}
	return plan.NewPlan("Demo", "A demo plan", "Done", subtasks)
}

func TestDefaultPlanToHint_Branches(t *testing.T) {
	h := plan.DefaultHinter()

	cases := []struct {
		name string
		plan *plan.Plan
		want string
	}{
		{"no plan", nil, h.NoPlan},
		{"empty plan", planWith(), "Mark the first subtask as 'in_progress'"},
		{"all todo", planWith(plan.StateTodo, plan.StateTodo), "Mark the first subtask as 'in_progress'"},
		{"only abandoned before todo", planWith(plan.StateAbandoned, plan.StateTodo), "Mark the first subtask as 'in_progress'"},
		{"some done", planWith(plan.StateDone, plan.StateDone, plan.StateTodo), "The first 2 subtasks are done"},
		{"all resolved", planWith(plan.StateDone, plan.StateAbandoned), "All the subtasks are done."},
		{"all abandoned", planWith(plan.StateAbandoned), "All the subtasks are done."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hint := plan.DefaultPlanToHint(tc.plan)
			assert.True(t, strings.HasPrefix(hint, "<system-hint>"), hint)
			assert.True(t, strings.HasSuffix(hint, "</system-hint>"), hint)
			assert.Contains(t, hint, tc.want)
		})
	}
}

func TestDefaultPlanToHint_SubtaskInProgress(t *testing.T) {
	p := planWith(plan.StateDone, plan.StateInProgress, plan.StateTodo)

	hint := plan.DefaultPlanToHint(p)

	assert.Contains(t, hint, "Now the subtask at index 1, named 'Task B', is 'in_progress'.")
	assert.Contains(t, hint, "```\n"+p.Subtasks[1].Markdown(true)+"\n```")
	assert.Contains(t, hint, "```\n"+p.Markdown(false)+"\n```")
	assert.NotContains(t, hint, "{plan}")
}

func TestHinter_CustomTemplates(t *testing.T) {
	h := plan.DefaultHinter()
	h.Prefix, h.Suffix = "[", "]"
	h.NoPlan = ""
	h.AtTheBeginning = "start {plan}"

	assert.Empty(t, h.Hint(nil), "an empty template yields no hint")

	p := planWith(plan.StateTodo)
	assert.Equal(t, "[start "+p.Markdown(false)+"]", h.Hint(p))
}
