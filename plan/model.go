package plan

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the layout of every plan and subtask timestamp.
const TimeFormat = "2006-01-02 15:04:05.000"

// Timestamp returns the current local time in TimeFormat.
func Timestamp() string {
	return time.Now().Format(TimeFormat)
}

// State is the lifecycle state shared by plans and subtasks.
type State string

const (
	StateTodo       State = "todo"
	StateInProgress State = "in_progress"
	StateDone       State = "done"
	StateAbandoned  State = "abandoned"
)

// Valid reports whether s is one of the four lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateTodo, StateInProgress, StateDone, StateAbandoned:
		return true
	default:
		return false
	}
}

// Resolved reports whether s is terminal.
func (s State) Resolved() bool {
	return s == StateDone || s == StateAbandoned
}

// SubTask is one atomic unit of a plan.
// Outcome and FinishedAt are set only while State is StateDone.
type SubTask struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ExpectedOutcome string `json:"expected_outcome"`
	Outcome         string `json:"outcome,omitempty"`
	State           State  `json:"state"`
	CreatedAt       string `json:"created_at"`
	FinishedAt      string `json:"finished_at,omitempty"`
}

// NewSubTask creates a todo subtask stamped with the current time.
func NewSubTask(name, description, expectedOutcome string) SubTask {
	return SubTask{
		Name:            name,
		Description:     description,
		ExpectedOutcome: expectedOutcome,
		State:           StateTodo,
		CreatedAt:       Timestamp(),
	}
}

// Finish marks the subtask done with its actual outcome.
func (s *SubTask) Finish(outcome string) {
	s.State = StateDone
	s.Outcome = outcome
	s.FinishedAt = Timestamp()
}

// setState moves the subtask to a non-done state, dropping any result.
func (s *SubTask) setState(state State) {
	s.State = state
	if state != StateDone {
		s.Outcome = ""
		s.FinishedAt = ""
	}
}

var (
	subtaskStatus = map[State]string{
		StateTodo:       "- [ ] ",
		StateInProgress: "- [ ] [WIP]",
		StateDone:       "- [x] ",
		StateAbandoned:  "- [ ] [Abandoned]",
	}
	subtaskOneline = map[State]string{
		StateTodo:       "- []",
		StateInProgress: "- [][WIP]",
		StateDone:       "- [x]",
		StateAbandoned:  "- [][Abandoned]",
	}
)

// OnelineMarkdown renders the subtask as a compact checklist line.
func (s SubTask) OnelineMarkdown() string {
	return fmt.Sprintf("%s %s", subtaskOneline[s.State], s.Name)
}

// Markdown renders the subtask as a checklist entry, with its details as
// indented lines when detailed is set.
func (s SubTask) Markdown(detailed bool) string {
	head := subtaskStatus[s.State] + s.Name
	if !detailed {
		return head
	}

	lines := []string{
		head,
		"\t- Created At: " + s.CreatedAt,
		"\t- Description: " + s.Description,
		"\t- Expected Outcome: " + s.ExpectedOutcome,
		"\t- State: " + string(s.State),
	}
	if s.State == StateDone {
		lines = append(lines,
			"\t- Finished At: "+s.FinishedAt,
			"\t- Actual Outcome: "+s.Outcome,
		)
	}
	return strings.Join(lines, "\n")
}

// Plan is an ordered, strictly sequential list of subtasks with its own
// lifecycle.
type Plan struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	ExpectedOutcome string    `json:"expected_outcome"`
	Subtasks        []SubTask `json:"subtasks"`
	State           State     `json:"state"`
	CreatedAt       string    `json:"created_at"`
	FinishedAt      string    `json:"finished_at,omitempty"`
	Outcome         string    `json:"outcome,omitempty"`
}

// NewPlan creates a todo plan with a generated ID. Subtasks without a state
// start as todo and subtasks without a creation time are stamped now.
func NewPlan(name, description, expectedOutcome string, subtasks []SubTask) *Plan {
	now := Timestamp()
	tasks := slices.Clone(subtasks)
	for i := range tasks {
		if tasks[i].State == "" {
			tasks[i].State = StateTodo
		}
		if tasks[i].CreatedAt == "" {
			tasks[i].CreatedAt = now
		}
	}

	return &Plan{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Name:            name,
		Description:     description,
		ExpectedOutcome: expectedOutcome,
		Subtasks:        tasks,
		State:           StateTodo,
		CreatedAt:       now,
	}
}

// Finish closes the plan as done or abandoned with the given outcome, or
// the reason for abandoning it.
func (p *Plan) Finish(state State, outcome string) {
	p.State = state
	p.Outcome = outcome
	p.FinishedAt = Timestamp()
}

// Clone returns a copy sharing no mutable state with p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Subtasks = slices.Clone(p.Subtasks)
	return &c
}

// InProgress returns the index of the in-progress subtask, or -1.
func (p *Plan) InProgress() int {
	return slices.IndexFunc(p.Subtasks, func(s SubTask) bool {
		return s.State == StateInProgress
	})
}

// Validate checks the ordering invariant: at most one subtask is in
// progress, and every subtask before it is done or abandoned. A done
// subtask carries its finish time, and no other subtask carries an outcome
// or finish time.
func (p *Plan) Validate() error {
	if !p.State.Valid() {
		return fmt.Errorf("%w: plan state %q", ErrInvalidPlan, p.State)
	}

	active := -1
	for i, s := range p.Subtasks {
		if !s.State.Valid() {
			return fmt.Errorf("%w: subtask %d state %q", ErrInvalidPlan, i, s.State)
		}
		if s.State == StateDone && s.FinishedAt == "" {
			return fmt.Errorf("%w: subtask %d is done without a finish time", ErrInvalidPlan, i)
		}
		if s.State != StateDone && (s.Outcome != "" || s.FinishedAt != "") {
			return fmt.Errorf("%w: subtask %d is %s but has a result", ErrInvalidPlan, i, s.State)
		}
		if s.State != StateInProgress {
			continue
		}
		if active >= 0 {
			return fmt.Errorf("%w: subtasks %d and %d are both in progress", ErrInvalidPlan, active, i)
		}
		active = i
	}

	for i := range active {
		if !p.Subtasks[i].State.Resolved() {
			return fmt.Errorf("%w: subtask %d is in progress before subtask %d is resolved", ErrInvalidPlan, active, i)
		}
	}
	return nil
}

// Markdown renders the plan header followed by its subtasks.
func (p *Plan) Markdown(detailed bool) string {
	subtasks := make([]string, len(p.Subtasks))
	for i, s := range p.Subtasks {
		subtasks[i] = s.Markdown(detailed)
	}

	return strings.Join([]string{
		"# " + p.Name,
		"**Description**: " + p.Description,
		"**Expected Outcome**: " + p.ExpectedOutcome,
		"**State**: " + string(p.State),
		"**Created At**: " + p.CreatedAt,
		"## Subtasks",
		strings.Join(subtasks, "\n"),
	}, "\n")
}

// counts tallies subtasks per state.
func (p *Plan) counts() map[State]int {
	n := make(map[State]int, 4)
	for _, s := range p.Subtasks {
		n[s.State]++
	}
	return n
}
