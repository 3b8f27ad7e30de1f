package plan

import (
	"strconv"
	"strings"
)

// HintFunc turns the current plan, nil when there is none, into guidance
// text for the next reasoning step. An empty string means no hint.
// Implementations must not mutate the plan.
type HintFunc func(p *Plan) string

// Hinter is the default hint strategy. Its templates may be replaced
// field by field; placeholders are {plan}, {subtask_idx}, {subtask_name},
// {subtask} and {index}.
type Hinter struct {
	Prefix string
	Suffix string

	NoPlan                  string
	AtTheBeginning          string
	WhenASubtaskInProgress  string
	WhenNoSubtaskInProgress string
	AtTheEnd                string
}

// DefaultHinter returns the stock templates wrapped in <system-hint> tags.
func DefaultHinter() Hinter {
	return Hinter{
		Prefix: "<system-hint>",
		Suffix: "</system-hint>",

		NoPlan: "If the user's query is complex (e.g. programming a website, game or " +
			"app), or requires a long chain of steps to complete (e.g. conduct " +
			"research on a certain topic from different sources), you NEED to " +
			"create a plan first by calling 'create_plan'. Otherwise, you can " +
			"directly execute the user's query without planning.",

		AtTheBeginning: "The current plan:\n" +
			"```\n" +
			"{plan}\n" +
			"```\n" +
			"Your options include:\n" +
			"- Mark the first subtask as 'in_progress' by calling " +
			"'update_subtask_state' with subtask_idx=0 and state='in_progress', " +
			"and start executing it.\n" +
			"- If the first subtask is not executable, analyze why and what you " +
			"can do to advance the plan, e.g. ask user for more information, " +
			"revise the plan by calling 'revise_current_plan'.\n" +
			"- If the user asks you to do something unrelated to the plan, " +
			"prioritize the completion of user's query first, and then return " +
			"to the plan afterward.\n" +
			"- If the user no longer wants to perform the current plan, confirm " +
			"with the user and call the 'finish_plan' function.\n",

		WhenASubtaskInProgress: "The current plan:\n" +
			"```\n" +
			"{plan}\n" +
			"```\n" +
			"Now the subtask at index {subtask_idx}, named '{subtask_name}', is " +
			"'in_progress'. Its details are as follows:\n" +
			"```\n" +
			"{subtask}\n" +
			"```\n" +
			"Your options include:\n" +
			"- Go on execute the subtask and get the outcome.\n" +
			"- Call 'finish_subtask' with the specific outcome if the subtask is " +
			"finished.\n" +
			"- Ask the user for more information if you need.\n" +
			"- Revise the plan by calling 'revise_current_plan' if necessary.\n" +
			"- If the user asks you to do something unrelated to the plan, " +
			"prioritize the completion of user's query first, and then return to " +
			"the plan afterward.",

		WhenNoSubtaskInProgress: "The current plan:\n" +
			"```\n" +
			"{plan}\n" +
			"```\n" +
			"The first {index} subtasks are done, and there is no subtask " +
			"'in_progress'. Now Your options include:\n" +
			"- Mark the next subtask as 'in_progress' by calling " +
			"'update_subtask_state', and start executing it.\n" +
			"- Ask the user for more information if you need.\n" +
			"- Revise the plan by calling 'revise_current_plan' if necessary.\n" +
			"- If the user asks you to do something unrelated to the plan, " +
			"prioritize the completion of user's query first, and then return to " +
			"the plan afterward.",

		AtTheEnd: "The current plan:\n" +
			"```\n" +
			"{plan}\n" +
			"```\n" +
			"All the subtasks are done. Now your options are:\n" +
			"- Finish the plan by calling 'finish_plan' with the specific " +
			"outcome, and summarize the whole process and outcome to the user.\n" +
			"- Revise the plan by calling 'revise_current_plan' if necessary.\n" +
			"- If the user asks you to do something unrelated to the plan, " +
			"prioritize the completion of user's query first, and then return to " +
			"the plan afterward.",
	}
}

// DefaultPlanToHint is the HintFunc of DefaultHinter.
var DefaultPlanToHint HintFunc = DefaultHinter().Hint

// Hint selects a template from the subtask state counts:
//
//   - an in-progress subtask gets the detailed subtask hint
//   - a non-empty plan whose subtasks are all resolved gets the finish hint
//   - a plan with nothing done gets the hint to begin
//   - otherwise the hint to activate the next subtask
func (h Hinter) Hint(p *Plan) string {
	var hint string

	switch {
	case p == nil:
		hint = h.NoPlan

	case p.InProgress() >= 0:
		idx := p.InProgress()
		hint = strings.NewReplacer(
			"{plan}", p.Markdown(false),
			"{subtask_idx}", strconv.Itoa(idx),
			"{subtask_name}", p.Subtasks[idx].Name,
			"{subtask}", p.Subtasks[idx].Markdown(true),
		).Replace(h.WhenASubtaskInProgress)

	default:
		n := p.counts()
		switch {
		case len(p.Subtasks) > 0 && n[StateDone]+n[StateAbandoned] == len(p.Subtasks):
			hint = strings.ReplaceAll(h.AtTheEnd, "{plan}", p.Markdown(false))
		case n[StateDone] == 0:
			hint = strings.ReplaceAll(h.AtTheBeginning, "{plan}", p.Markdown(false))
		default:
			hint = strings.NewReplacer(
				"{plan}", p.Markdown(false),
				"{index}", strconv.Itoa(n[StateDone]),
			).Replace(h.WhenNoSubtaskInProgress)
		}
	}

	if hint == "" {
		return ""
	}
	return h.Prefix + hint + h.Suffix
}
