package plan

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/tools"
)

type subtaskArgs struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ExpectedOutcome string `json:"expected_outcome"`
}

func (a subtaskArgs) subtask() SubTask {
	return NewSubTask(a.Name, a.Description, a.ExpectedOutcome)
}

type (
	viewSubtasksArgs struct {
		SubtaskIdx []int `json:"subtask_idx"`
	}

	updateSubtaskStateArgs struct {
		SubtaskIdx int    `json:"subtask_idx"`
		State      string `json:"state"`
	}

	finishSubtaskArgs struct {
		SubtaskIdx     int    `json:"subtask_idx"`
		SubtaskOutcome string `json:"subtask_outcome"`
	}

	createPlanArgs struct {
		Name            string        `json:"name"`
		Description     string        `json:"description"`
		ExpectedOutcome string        `json:"expected_outcome"`
		Subtasks        []subtaskArgs `json:"subtasks"`
	}

	reviseCurrentPlanArgs struct {
		SubtaskIdx int          `json:"subtask_idx"`
		Action     string       `json:"action"`
		Subtask    *subtaskArgs `json:"subtask"`
	}

	finishPlanArgs struct {
		State   string `json:"state"`
		Outcome string `json:"outcome"`
	}

	recoverHistoricalPlanArgs struct {
		PlanID string `json:"plan_id"`
	}
)

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values, "description": description}
}

func indexProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

var subtaskSchema = protocol.ObjectSchema(map[string]any{
	"name":             stringProp("The subtask name, should be concise, descriptive and not exceed 10 words."),
	"description":      stringProp("The subtask description, including the constraints, target and outcome to be achieved. The description should be clear, specific and concise, and all the constraints, target and outcome should be specific and measurable."),
	"expected_outcome": stringProp("The expected outcome of the subtask, which should be specific, concrete and measurable."),
}, "name", "description", "expected_outcome")

// Tools exposes the notebook operations as tools a reasoning agent can
// call. A missing current plan is reported to the agent as a failed result
// so it can create one and retry.
func (n *Notebook) Tools() (*tools.Registry, error) {
	r := tools.NewRegistry()

	defs := []struct {
		tool    protocol.Tool
		handler tools.Handler
	}{
		{
			protocol.Tool{
				Name:        "view_subtasks",
				Description: "View the details of the sub-tasks by given indexes.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"subtask_idx": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer"},
						"description": "The indexes of the sub-tasks to be viewed, starting from 0.",
					},
				}, "subtask_idx"),
			},
			tools.Bind(func(ctx context.Context, a viewSubtasksArgs) (tools.Result, error) {
				return recoverable(n.ViewSubtasks(ctx, a.SubtaskIdx))
			}),
		},
		{
			protocol.Tool{
				Name:        "update_subtask_state",
				Description: "Update the state of a subtask by given index and state. Note if you want to mark a subtask as done, you SHOULD call `finish_subtask` instead with the specific outcome.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"subtask_idx": indexProp("The index of the subtask to be updated, starting from 0."),
					"state":       enumProp("The new state of the subtask.", "todo", "in_progress", "abandoned"),
				}, "subtask_idx", "state"),
			},
			tools.Bind(func(ctx context.Context, a updateSubtaskStateArgs) (tools.Result, error) {
				return recoverable(n.UpdateSubtaskState(ctx, a.SubtaskIdx, State(a.State)))
			}),
		},
		{
			protocol.Tool{
				Name:        "finish_subtask",
				Description: "Label the subtask as done by given index and outcome.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"subtask_idx":     indexProp("The index of the sub-task to be marked as done, starting from 0."),
					"subtask_outcome": stringProp("The specific outcome of the sub-task, should exactly match the expected outcome in the sub-task description. It SHOULD be the specific data, information, or path to the file rather than a general description of what you did."),
				}, "subtask_idx", "subtask_outcome"),
			},
			tools.Bind(func(ctx context.Context, a finishSubtaskArgs) (tools.Result, error) {
				return recoverable(n.FinishSubtask(ctx, a.SubtaskIdx, a.SubtaskOutcome))
			}),
		},
		{
			protocol.Tool{
				Name:        "create_plan",
				Description: "Create a plan by given name and sub-tasks.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"name":             stringProp("The plan name, should be concise, descriptive and not exceed 10 words."),
					"description":      stringProp("The plan description, including the constraints, target and outcome to be achieved. The description should be clear, specific and concise, and all the constraints, target and outcome should be specific and measurable."),
					"expected_outcome": stringProp("The expected outcome of the plan, which should be specific, concrete and measurable."),
					"subtasks": map[string]any{
						"type":        "array",
						"items":       subtaskSchema,
						"description": "A list of sequential sub-tasks that make up the plan.",
					},
				}, "name", "description", "expected_outcome", "subtasks"),
			},
			tools.Bind(func(ctx context.Context, a createPlanArgs) (tools.Result, error) {
				subtasks := make([]SubTask, len(a.Subtasks))
				for i, s := range a.Subtasks {
					subtasks[i] = s.subtask()
				}
				return n.CreatePlan(ctx, a.Name, a.Description, a.ExpectedOutcome, subtasks)
			}),
		},
		{
			protocol.Tool{
				Name:        "revise_current_plan",
				Description: "Revise the current plan by adding, revising or deleting a sub-task.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"subtask_idx": indexProp("The index of the sub-task to be revised, starting from 0."),
					"action":      enumProp("If 'add', the sub-task is inserted before the given index. If 'revise', the sub-task at the given index is replaced. If 'delete', the sub-task at the given index is deleted.", "add", "revise", "delete"),
					"subtask":     subtaskSchema,
				}, "subtask_idx", "action"),
			},
			tools.Bind(func(ctx context.Context, a reviseCurrentPlanArgs) (tools.Result, error) {
				var subtask *SubTask
				if a.Subtask != nil {
					s := a.Subtask.subtask()
					subtask = &s
				}
				return recoverable(n.ReviseCurrentPlan(ctx, a.SubtaskIdx, Action(a.Action), subtask))
			}),
		},
		{
			protocol.Tool{
				Name:        "finish_plan",
				Description: "Finish the current plan by given outcome, or abandon it with the given reason if the user no longer wants to perform it. Note that you SHOULD confirm with the user before abandoning the plan.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"state":   enumProp("The state to finish the plan.", "done", "abandoned"),
					"outcome": stringProp("The specific outcome of the plan if state is 'done', or the reason for abandoning the plan if state is 'abandoned'."),
				}, "state", "outcome"),
			},
			tools.Bind(func(ctx context.Context, a finishPlanArgs) (tools.Result, error) {
				return n.FinishPlan(ctx, State(a.State), a.Outcome)
			}),
		},
		{
			protocol.Tool{
				Name:        "view_historical_plans",
				Description: "View the historical plans.",
				Parameters:  protocol.ObjectSchema(map[string]any{}),
			},
			func(ctx context.Context, _ json.RawMessage) (tools.Result, error) {
				return n.ViewHistoricalPlans(ctx)
			},
		},
		{
			protocol.Tool{
				Name:        "recover_historical_plan",
				Description: "Recover a historical plan by given plan ID, the plan ID can be obtained by calling `view_historical_plans`. Note the recover operation will override the current plan if exists.",
				Parameters: protocol.ObjectSchema(map[string]any{
					"plan_id": stringProp("The ID of the historical plan to be recovered."),
				}, "plan_id"),
			},
			tools.Bind(func(ctx context.Context, a recoverHistoricalPlanArgs) (tools.Result, error) {
				return n.RecoverHistoricalPlan(ctx, a.PlanID)
			}),
		},
	}

	for _, d := range defs {
		if err := r.Register(d.tool, d.handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// recoverable reports a missing current plan as a failed result.
func recoverable(res tools.Result, err error) (tools.Result, error) {
	if errors.Is(err, ErrNoCurrentPlan) {
		return tools.Failure("%s", err.Error()), nil
	}
	return res, err
}
