package plan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/orchestra/plan"
)

func fixedSubtask(name string, state plan.State) plan.SubTask {
	return plan.SubTask{
		Name:            name,
		Description:     "Description of " + name,
		ExpectedOutcome: "Outcome of " + name,
		State:           state,
		CreatedAt:       "2025-01-02 03:04:05.000",
	}
}

func TestSubTask_Markdown(t *testing.T) {
	done := fixedSubtask("Task 1", plan.StateDone)
	done.FinishedAt = "2025-01-02 04:00:00.000"
	done.Outcome = "shipped"

	assert.Equal(t, "- [x] Task 1\n"+
		"\t- Created At: 2025-01-02 03:04:05.000\n"+
		"\t- Description: Description of Task 1\n"+
		"\t- Expected Outcome: Outcome of Task 1\n"+
		"\t- State: done\n"+
		"\t- Finished At: 2025-01-02 04:00:00.000\n"+
		"\t- Actual Outcome: shipped", done.Markdown(true))

	assert.Equal(t, "- [x] Task 1", done.Markdown(false))
	assert.Equal(t, "- [ ] Task", fixedSubtask("Task", plan.StateTodo).Markdown(false))
	assert.Equal(t, "- [ ] [WIP]Task", fixedSubtask("Task", plan.StateInProgress).Markdown(false))
	assert.Equal(t, "- [ ] [Abandoned]Task", fixedSubtask("Task", plan.StateAbandoned).Markdown(false))

	wip := fixedSubtask("Task 2", plan.StateInProgress)
	assert.NotContains(t, wip.Markdown(true), "Finished At")
}

func TestSubTask_OnelineMarkdown(t *testing.T) {
	cases := map[plan.State]string{
		plan.StateTodo:       "- [] x",
		plan.StateInProgress: "- [][WIP] x",
		plan.StateDone:       "- [x] x",
		plan.StateAbandoned:  "- [][Abandoned] x",
	}
	for state, want := range cases {
		assert.Equal(t, want, fixedSubtask("x", state).OnelineMarkdown(), state)
	}
}

func TestSubTask_Finish(t *testing.T) {
	s := plan.NewSubTask("a", "b", "c")
	assert.Equal(t, plan.StateTodo, s.State)
	assert.Empty(t, s.FinishedAt)

	s.Finish("result")
	assert.Equal(t, plan.StateDone, s.State)
	assert.Equal(t, "result", s.Outcome)

	_, err := time.ParseInLocation(plan.TimeFormat, s.FinishedAt, time.Local)
	require.NoError(t, err)
}

func TestPlan_Markdown(t *testing.T) {
	p := &plan.Plan{
		Name:            "Create website",
		Description:     "Create a personal portfolio website.",
		ExpectedOutcome: "A new website.",
		State:           plan.StateTodo,
		CreatedAt:       "2025-01-01 00:00:00.000",
		Subtasks: []plan.SubTask{
			fixedSubtask("Task 1", plan.StateDone),
			fixedSubtask("Task 2", plan.StateInProgress),
		},
	}

	assert.Equal(t, "# Create website\n"+
		"**Description**: Create a personal portfolio website.\n"+
		"**Expected Outcome**: A new website.\n"+
		"**State**: todo\n"+
		"**Created At**: 2025-01-01 00:00:00.000\n"+
		"## Subtasks\n"+
		"- [x] Task 1\n"+
		"- [ ] [WIP]Task 2", p.Markdown(false))

	assert.Contains(t, p.Markdown(true), "- [ ] [WIP]Task 2\n\t- Created At: 2025-01-02 03:04:05.000")
}

func TestNewPlan_FillsDefaults(t *testing.T) {
	p := plan.NewPlan("p", "d", "o", []plan.SubTask{{Name: "a"}, fixedSubtask("b", plan.StateDone)})

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, plan.StateTodo, p.State)
	assert.Equal(t, plan.StateTodo, p.Subtasks[0].State)
	assert.Equal(t, p.CreatedAt, p.Subtasks[0].CreatedAt)
	assert.Equal(t, "2025-01-02 03:04:05.000", p.Subtasks[1].CreatedAt)

	other := plan.NewPlan("p", "d", "o", nil)
	assert.NotEqual(t, p.ID, other.ID)
}

func TestPlan_Clone(t *testing.T) {
	p := plan.NewPlan("p", "d", "o", []plan.SubTask{plan.NewSubTask("a", "", "")})
	c := p.Clone()
	c.Subtasks[0].Name = "changed"
	c.Name = "changed"

	assert.Equal(t, "a", p.Subtasks[0].Name)
	assert.Equal(t, "p", p.Name)

	var nilPlan *plan.Plan
	assert.Nil(t, nilPlan.Clone())
}

func TestPlan_Validate(t *testing.T) {
	build := func(states ...plan.State) *plan.Plan {
		subtasks := make([]plan.SubTask, len(states))
		for i, s := range states {
			subtasks[i] = fixedSubtask("t", s)
			if s == plan.StateDone {
				subtasks[i].Finish("ok")
			}
		}
		return plan.NewPlan("p", "", "", subtasks)
	}

	require.NoError(t, build().Validate())
	require.NoError(t, build(plan.StateDone, plan.StateInProgress, plan.StateTodo).Validate())
	require.NoError(t, build(plan.StateAbandoned, plan.StateDone, plan.StateInProgress).Validate())
	require.NoError(t, build(plan.StateTodo, plan.StateDone).Validate())

	require.ErrorIs(t, build(plan.StateTodo, plan.StateInProgress).Validate(), plan.ErrInvalidPlan)
	require.ErrorIs(t, build(plan.StateInProgress, plan.StateInProgress).Validate(), plan.ErrInvalidPlan)
	require.ErrorIs(t, build("stalled").Validate(), plan.ErrInvalidPlan)
}

func TestPlan_ValidateSubtaskResult(t *testing.T) {
	unfinished := plan.NewPlan("p", "", "", []plan.SubTask{fixedSubtask("t", plan.StateDone)})
	require.ErrorIs(t, unfinished.Validate(), plan.ErrInvalidPlan)

	for _, state := range []plan.State{plan.StateTodo, plan.StateInProgress, plan.StateAbandoned} {
		withOutcome := fixedSubtask("t", state)
		withOutcome.Outcome = "shipped"
		require.ErrorIs(t, plan.NewPlan("p", "", "", []plan.SubTask{withOutcome}).Validate(), plan.ErrInvalidPlan, state)

		withFinish := fixedSubtask("t", state)
		withFinish.FinishedAt = "2025-01-02 04:00:00.000"
		require.ErrorIs(t, plan.NewPlan("p", "", "", []plan.SubTask{withFinish}).Validate(), plan.ErrInvalidPlan, state)
	}

	done := fixedSubtask("t", plan.StateDone)
	done.Finish("shipped")
	require.NoError(t, plan.NewPlan("p", "", "", []plan.SubTask{done}).Validate())
}
