package plan

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/tools"
)

// Notebook event types.
const (
	EventCreate         observability.EventType = "plan.create"
	EventRevise         observability.EventType = "plan.revise"
	EventSubtaskState   observability.EventType = "plan.subtask_state"
	EventSubtaskFinish  observability.EventType = "plan.subtask_finish"
	EventFinish         observability.EventType = "plan.finish"
	EventRecover        observability.EventType = "plan.recover"
	EventHistoricalView observability.EventType = "plan.history"
)

// Description introduces the plan tools to a reasoning agent.
const Description = "The plan-related tools. Activate this tool when you need to execute " +
	"complex task, e.g. building a website or a game. Once activated, " +
	"you'll enter the plan mode, where you will be guided to complete " +
	"the given query by creating and following a plan, and hint message " +
	"wrapped by <system-hint></system-hint> will guide you to complete " +
	"the task. If you think the user no longer wants to perform the " +
	"current task, you need to confirm with the user and call the " +
	"'finish_plan' function."

// Action names a revision of the current plan.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRevise Action = "revise"
	ActionDelete Action = "delete"
)

// ChangeHook runs after every mutation of the current plan. current is a
// copy of the plan after the change, or nil when the plan was cleared.
type ChangeHook func(ctx context.Context, nb *Notebook, current *Plan)

// Notebook owns the single active plan. It exposes the plan operations a
// reasoning agent calls, archives finished or superseded plans to its
// Storage and produces hints describing what to do next.
//
// Operations are serialized by the notebook. Change hooks run after the
// notebook is unlocked, in registration order, and may call back into it.
type Notebook struct {
	storage     Storage
	hint        HintFunc
	maxSubtasks int
	logger      *slog.Logger
	observer    observability.Observer

	mu        sync.Mutex
	current   *Plan
	hookNames []string
	hooks     map[string]ChangeHook
}

// Option configures a Notebook at construction.
type Option func(*Notebook)

// WithStorage overrides the storage resolved from NotebookConfig.Storage.
func WithStorage(s Storage) Option {
	return func(n *Notebook) { n.storage = s }
}

// WithHint replaces DefaultPlanToHint.
func WithHint(fn HintFunc) Option {
	return func(n *Notebook) { n.hint = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Notebook) { n.logger = l }
}

// WithObserver overrides the observer resolved from NotebookConfig.Observer.
func WithObserver(o observability.Observer) Option {
	return func(n *Notebook) { n.observer = o }
}

// NewNotebook creates an empty notebook.
func NewNotebook(cfg config.NotebookConfig, opts ...Option) (*Notebook, error) {
	n := &Notebook{
		hint:        DefaultPlanToHint,
		maxSubtasks: cfg.MaxSubtasks,
		logger:      slog.Default(),
		hooks:       make(map[string]ChangeHook),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.storage == nil {
		name := cfg.Storage
		if name == "" {
			name = "memory"
		}
		storage, err := GetStorage(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve plan storage: %w", err)
		}
		n.storage = storage
	}

	if n.observer == nil {
		observer, err := observability.ResolveObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		n.observer = observer
	}

	return n, nil
}

func (n *Notebook) Storage() Storage { return n.storage }

// CurrentPlan returns a copy of the active plan, or nil.
func (n *Notebook) CurrentPlan() *Plan {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current.Clone()
}

// RegisterChangeHook adds a hook, replacing any hook with the same name in
// place.
func (n *Notebook) RegisterChangeHook(name string, hook ChangeHook) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.hooks[name]; !exists {
		n.hookNames = append(n.hookNames, name)
	}
	n.hooks[name] = hook
}

func (n *Notebook) RemoveChangeHook(name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.hooks[name]; !exists {
		return fmt.Errorf("%w: %s", ErrHookNotFound, name)
	}
	delete(n.hooks, name)
	n.hookNames = slices.DeleteFunc(n.hookNames, func(h string) bool { return h == name })
	return nil
}

// CurrentHint renders the hint for the active plan as a user message, or
// nil when the hint strategy has nothing to say.
func (n *Notebook) CurrentHint() *protocol.Msg {
	text := n.hint(n.CurrentPlan())
	if text == "" {
		return nil
	}
	return protocol.NewMsg("user", protocol.RoleUser, text)
}

// CreatePlan installs a new plan, discarding the current one without
// archiving it.
func (n *Notebook) CreatePlan(ctx context.Context, name, description, expectedOutcome string, subtasks []SubTask) (tools.Result, error) {
	n.mu.Lock()

	if n.maxSubtasks > 0 && len(subtasks) > n.maxSubtasks {
		n.mu.Unlock()
		return tools.Failure("The plan has %d subtasks, exceeding the maximum of %d.", len(subtasks), n.maxSubtasks), nil
	}

	p := NewPlan(name, description, expectedOutcome, subtasks)
	if err := p.Validate(); err != nil {
		n.mu.Unlock()
		return tools.Result{}, err
	}

	var res tools.Result
	if n.current == nil {
		res = tools.Text("Plan '%s' created successfully.", name)
	} else {
		res = tools.Text("The current plan named '%s' is replaced by the newly created plan named '%s'.", n.current.Name, name)
	}
	n.current = p

	n.emit(ctx, EventCreate, map[string]any{
		"plan_id":  p.ID,
		"name":     p.Name,
		"subtasks": len(p.Subtasks),
	})
	n.changed(ctx)
	return res, nil
}

// ReviseCurrentPlan inserts a subtask before idx, replaces the subtask at
// idx, or deletes it. Adding at idx == number of subtasks appends.
func (n *Notebook) ReviseCurrentPlan(ctx context.Context, idx int, action Action, subtask *SubTask) (tools.Result, error) {
	switch action {
	case ActionAdd, ActionRevise, ActionDelete:
	default:
		return tools.Failure("Invalid action '%s'. Must be one of 'add', 'revise', 'delete'.", action), nil
	}

	if action != ActionDelete && subtask == nil {
		return tools.Failure("The subtask must be provided when action is '%s', but got None.", action), nil
	}

	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return tools.Result{}, ErrNoCurrentPlan
	}

	count := len(n.current.Subtasks)
	upper := count - 1
	if action == ActionAdd {
		upper = count
	}
	if idx < 0 || idx > upper {
		n.mu.Unlock()
		return tools.Failure("Invalid subtask_idx '%d'. Must be between 0 and %d.", idx, upper), nil
	}

	var res tools.Result
	switch action {
	case ActionDelete:
		removed := n.current.Subtasks[idx]
		n.current.Subtasks = slices.Delete(n.current.Subtasks, idx, idx+1)
		res = tools.Text("Subtask (named '%s') at index %d is deleted successfully.", removed.Name, idx)

	case ActionAdd:
		if n.maxSubtasks > 0 && count >= n.maxSubtasks {
			n.mu.Unlock()
			return tools.Failure("Cannot add a new subtask because the plan already has the maximum of %d subtasks.", n.maxSubtasks), nil
		}
		n.current.Subtasks = slices.Insert(n.current.Subtasks, idx, normalize(*subtask))
		res = tools.Text("New subtask is added successfully at index %d.", idx)

	case ActionRevise:
		n.current.Subtasks[idx] = normalize(*subtask)
		res = tools.Text("Subtask at index %d is revised successfully.", idx)
	}

	n.emit(ctx, EventRevise, map[string]any{
		"plan_id":     n.current.ID,
		"action":      string(action),
		"subtask_idx": idx,
	})
	n.changed(ctx)
	return res, nil
}

// UpdateSubtaskState moves a subtask to todo, in_progress or abandoned.
// Activation requires every earlier subtask to be resolved and no subtask
// to be in progress already. A subtask cannot go back to todo while a later
// one is in progress. Use FinishSubtask to mark a subtask done.
func (n *Notebook) UpdateSubtaskState(ctx context.Context, idx int, state State) (tools.Result, error) {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return tools.Result{}, ErrNoCurrentPlan
	}

	subtasks := n.current.Subtasks
	if idx < 0 || idx >= len(subtasks) {
		n.mu.Unlock()
		return tools.Failure("Invalid subtask_idx '%d'. Must be between 0 and %d.", idx, len(subtasks)-1), nil
	}

	if state == "deprecated" {
		state = StateAbandoned
	}
	switch state {
	case StateTodo, StateInProgress, StateAbandoned:
	default:
		n.mu.Unlock()
		return tools.Failure("Invalid state '%s'. Must be one of 'todo', 'in_progress', 'abandoned'.", state), nil
	}

	if state == StateInProgress {
		for i, s := range subtasks {
			if i < idx && !s.State.Resolved() {
				n.mu.Unlock()
				return tools.Failure("Subtask (at index %d) named '%s' is not done yet. You should finish the previous subtasks first.", i, s.Name), nil
			}
			if s.State == StateInProgress {
				n.mu.Unlock()
				return tools.Failure("Subtask (at index %d) named '%s' is already 'in_progress'. You should finish it first before starting another subtask.", i, s.Name), nil
			}
		}
		n.activate(idx)
	} else {
		if state == StateTodo {
			if active := n.current.InProgress(); active > idx {
				n.mu.Unlock()
				return tools.Failure("Cannot mark subtask at index %d as 'todo' because the later subtask (at index %d) named '%s' is 'in_progress'. You should move that subtask back to 'todo' first.", idx, active, subtasks[active].Name), nil
			}
		}
		subtasks[idx].setState(state)
	}

	res := tools.Text("Subtask at index %d, named '%s' is marked as '%s' successfully.", idx, subtasks[idx].Name, state)

	n.emit(ctx, EventSubtaskState, map[string]any{
		"plan_id":     n.current.ID,
		"subtask_idx": idx,
		"state":       string(state),
	})
	n.changed(ctx)
	return res, nil
}

// FinishSubtask marks a subtask done with its outcome and activates the
// subtask after it, if any, unless that one is already resolved or another
// subtask is in progress.
func (n *Notebook) FinishSubtask(ctx context.Context, idx int, outcome string) (tools.Result, error) {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return tools.Result{}, ErrNoCurrentPlan
	}

	subtasks := n.current.Subtasks
	if idx < 0 || idx >= len(subtasks) {
		n.mu.Unlock()
		return tools.Failure("Invalid subtask_idx '%d'. Must be between 0 and %d.", idx, len(subtasks)-1), nil
	}

	for i, s := range subtasks[:idx] {
		if !s.State.Resolved() {
			n.mu.Unlock()
			return tools.Failure("Cannot finish subtask at index %d because the previous subtask (at index %d) named '%s' is not done yet. You should finish the previous subtasks first.", idx, i, s.Name), nil
		}
	}

	subtasks[idx].Finish(outcome)

	var res tools.Result
	if next := idx + 1; next < len(subtasks) && !subtasks[next].State.Resolved() && n.current.InProgress() < 0 {
		n.activate(idx + 1)
		res = tools.Text("Subtask (at index %d) named '%s' is marked as done successfully. The next subtask named '%s' is activated.", idx, subtasks[idx].Name, subtasks[idx+1].Name)
	} else {
		res = tools.Text("Subtask (at index %d) named '%s' is marked as done successfully. ", idx, subtasks[idx].Name)
	}

	n.emit(ctx, EventSubtaskFinish, map[string]any{
		"plan_id":     n.current.ID,
		"subtask_idx": idx,
	})
	n.changed(ctx)
	return res, nil
}

// ViewSubtasks renders the detailed markdown of each requested subtask.
// Invalid indexes are reported together after the valid ones.
func (n *Notebook) ViewSubtasks(_ context.Context, indexes []int) (tools.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return tools.Result{}, ErrNoCurrentPlan
	}

	var (
		parts   []string
		invalid []string
	)
	for _, idx := range indexes {
		if idx < 0 || idx >= len(n.current.Subtasks) {
			invalid = append(invalid, fmt.Sprint(idx))
			continue
		}
		parts = append(parts, fmt.Sprintf("Subtask at index %d:\n```\n%s\n```\n", idx, n.current.Subtasks[idx].Markdown(true)))
	}

	if len(invalid) > 0 {
		parts = append(parts, fmt.Sprintf("Invalid subtask_idx '[%s]'. Must be between 0 and %d.", strings.Join(invalid, ", "), len(n.current.Subtasks)-1))
	}

	return tools.Text("%s", strings.Join(parts, "\n")), nil
}

// FinishPlan closes the current plan as done or abandoned, archives it and
// clears the active slot.
func (n *Notebook) FinishPlan(ctx context.Context, state State, outcome string) (tools.Result, error) {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return tools.Text("There is no plan to finish."), nil
	}

	if state != StateDone && state != StateAbandoned {
		n.mu.Unlock()
		return tools.Failure("Invalid state '%s'. Must be one of 'done', 'abandoned'.", state), nil
	}

	finished := n.current.Clone()
	finished.Finish(state, outcome)
	if err := n.storage.Add(ctx, finished, true); err != nil {
		n.mu.Unlock()
		return tools.Result{}, fmt.Errorf("archive plan %s: %w", finished.ID, err)
	}
	n.current = nil

	n.emit(ctx, EventFinish, map[string]any{
		"plan_id": finished.ID,
		"state":   string(state),
	})
	n.changed(ctx)
	return tools.Text("The current plan is finished successfully as '%s'.", state), nil
}

// ViewHistoricalPlans summarizes every archived plan.
func (n *Notebook) ViewHistoricalPlans(ctx context.Context) (tools.Result, error) {
	plans, err := n.storage.List(ctx)
	if err != nil {
		return tools.Result{}, fmt.Errorf("list plans: %w", err)
	}

	entries := make([]string, len(plans))
	for i, p := range plans {
		entries[i] = fmt.Sprintf("Plan named '%s':\n- ID: %s\n- Created at: %s\n- Description: %s\n- State: %s\n",
			p.Name, p.ID, p.CreatedAt, p.Description, p.State)
	}

	n.emit(ctx, EventHistoricalView, map[string]any{"plans": len(plans)})
	return tools.Text("%s", strings.Join(entries, "\n")), nil
}

// RecoverHistoricalPlan promotes an archived plan to the active slot. An
// existing current plan is archived first, abandoned unless it is done.
// The recovered plan keeps its archived state and stays in storage.
func (n *Notebook) RecoverHistoricalPlan(ctx context.Context, id string) (tools.Result, error) {
	n.mu.Lock()

	historical, err := n.storage.Get(ctx, id)
	if err != nil {
		n.mu.Unlock()
		return tools.Result{}, fmt.Errorf("get plan %s: %w", id, err)
	}
	if historical == nil {
		n.mu.Unlock()
		return tools.Text("Cannot find the plan with ID '%s'.", id), nil
	}

	var res tools.Result
	if n.current != nil {
		superseded := n.current.Clone()
		if superseded.State != StateDone {
			superseded.Finish(StateAbandoned, fmt.Sprintf("The plan execution is interrupted by a new plan with ID '%s'.", historical.ID))
		}
		if err := n.storage.Add(ctx, superseded, true); err != nil {
			n.mu.Unlock()
			return tools.Result{}, fmt.Errorf("archive plan %s: %w", superseded.ID, err)
		}
		res = tools.Text("The current plan named '%s' is replaced by the historical plan named '%s' with ID '%s'.", superseded.Name, historical.Name, historical.ID)
	} else {
		res = tools.Text("Historical plan named '%s' with ID '%s' is recovered successfully.", historical.Name, historical.ID)
	}
	n.current = historical

	n.emit(ctx, EventRecover, map[string]any{"plan_id": historical.ID})
	n.changed(ctx)
	return res, nil
}

// activate marks subtask idx in progress and starts the plan with it.
func (n *Notebook) activate(idx int) {
	n.current.Subtasks[idx].setState(StateInProgress)
	if n.current.State == StateTodo {
		n.current.State = StateInProgress
	}
}

// changed unlocks the notebook and fires the change hooks with a copy of
// the current plan. Callers must hold n.mu.
func (n *Notebook) changed(ctx context.Context) {
	current := n.current.Clone()
	hooks := make([]ChangeHook, len(n.hookNames))
	for i, name := range n.hookNames {
		hooks[i] = n.hooks[name]
	}
	n.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, n, current.Clone())
	}
}

func (n *Notebook) emit(ctx context.Context, typ observability.EventType, data map[string]any) {
	n.logger.DebugContext(ctx, "plan notebook event", slog.String("event", string(typ)))
	n.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "plan.Notebook",
		Data:      data,
	})
}

// normalize fills the lifecycle fields of a caller-supplied subtask.
func normalize(s SubTask) SubTask {
	if s.State == "" {
		s.State = StateTodo
	}
	if s.CreatedAt == "" {
		s.CreatedAt = Timestamp()
	}
	return s
}
