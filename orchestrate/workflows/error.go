package workflows

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ChainError reports the step that halted a chain together with the item
// at that step and the state accumulated before it. For pipelines the item
// is the failing agent and the state is the last message it was given:
//
//	var chainErr *workflows.ChainError[agent.Agent, *protocol.Msg]
//	if errors.As(err, &chainErr) {
//	    slog.Warn("pipeline halted", "agent", chainErr.Item.Name(), "step", chainErr.StepIndex)
//	}
type ChainError[TItem, TContext any] struct {
	StepIndex int
	Item      TItem
	State     TContext
	Err       error
}

func (e *ChainError[TItem, TContext]) Error() string {
	return fmt.Sprintf("chain failed at step %d: %v", e.StepIndex, e.Err)
}

func (e *ChainError[TItem, TContext]) Unwrap() error { return e.Err }

// TaskError is one failed parallel task. Index is the item's position in
// the input slice.
type TaskError[TItem any] struct {
	Index int
	Item  TItem
	Err   error
}

// ParallelResult holds dense successes and failures. It is populated with
// partial results even when ProcessParallel returns an error.
type ParallelResult[TItem, TResult any] struct {
	Results []TResult
	Errors  []TaskError[TItem]
}

// ParallelError aggregates task failures. Unwrap exposes every task error,
// so errors.Is matches any of them.
type ParallelError[TItem any] struct {
	Errors []TaskError[TItem]
}

// Error names the item for a single failure and otherwise groups failures
// by message, most frequent first.
func (e *ParallelError[TItem]) Error() string {
	switch len(e.Errors) {
	case 0:
		return "parallel execution failed"
	case 1:
		return fmt.Sprintf("parallel execution failed: item %d: %v", e.Errors[0].Index, e.Errors[0].Err)
	}

	counts := make(map[string]int)
	for _, te := range e.Errors {
		counts[te.Err.Error()]++
	}

	msgs := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), strings.Compare(a, b))
	})

	parts := make([]string, len(msgs))
	for i, msg := range msgs {
		unit := "items"
		if counts[msg] == 1 {
			unit = "item"
		}
		parts[i] = fmt.Sprintf("'%s' (%d %s)", msg, counts[msg], unit)
	}

	return fmt.Sprintf("parallel execution failed: %d items failed with %d error types: %s",
		len(e.Errors), len(counts), strings.Join(parts, ", "))
}

func (e *ParallelError[TItem]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, te := range e.Errors {
		errs[i] = te.Err
	}
	return errs
}
