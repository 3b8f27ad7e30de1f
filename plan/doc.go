// Package plan tracks long-running multi-step work as a Plan of strictly
// ordered subtasks, owned by a Notebook that a reasoning agent drives
// through tools.
//
// # Lifecycle
//
// Plans and subtasks move todo → in_progress → done or abandoned. A
// subtask may be in progress only when every subtask before it is done or
// abandoned, and at most one subtask is in progress at a time.
// FinishSubtask activates the next subtask automatically.
//
// # Notebook
//
// The notebook holds exactly one current plan:
//
//	nb, err := plan.NewNotebook(config.DefaultNotebookConfig())
//	if err != nil {
//	    return err
//	}
//
//	res, err := nb.CreatePlan(ctx, "Write report", "Summarize Q3", "A report",
//	    []plan.SubTask{
//	        plan.NewSubTask("Collect", "Gather the numbers", "A table"),
//	        plan.NewSubTask("Draft", "Write the report", "A draft"),
//	    })
//
// Operations return a tools.Result whose text is meant for the agent.
// Caller-correctable problems such as a bad index or an ordering violation
// are failed results, never Go errors. Go errors are reserved for storage
// failures and for calling an operation with no current plan
// (ErrNoCurrentPlan). Tools reports the latter to the agent as a failed
// result as well.
//
// FinishPlan and RecoverHistoricalPlan hand the live plan off to Storage:
// the archive receives a copy and the notebook clears or replaces its slot.
//
// # Hints
//
// CurrentHint renders guidance for the next step from the plan shape. The
// strategy is a HintFunc; DefaultPlanToHint wraps its templates in
// <system-hint></system-hint>.
//
// # Storage
//
// Storage backends are registered by name. "memory" is built in;
// CachedStorage adds a read-through cache over any backend and the sqlite
// subpackage persists plans to a database file.
package plan
