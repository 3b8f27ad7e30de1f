package workflows

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
)

const chainSource = "workflows.ProcessChain"

// StepProcessor processes a single item and updates the accumulated context.
//
// Each step receives the current accumulated state and returns an updated
// state, implementing a fold. A sequential agent pipeline uses the agent as
// the item and the message passed between agents as the state:
//
//	processor := func(ctx context.Context, a agent.Agent, msg *protocol.Msg) (*protocol.Msg, error) {
//	    return a.Call(ctx, msg)
//	}
type StepProcessor[TItem, TContext any] func(
	ctx context.Context,
	item TItem,
	state TContext,
) (TContext, error)

// ChainResult contains the results of chain execution.
//
// Final always holds a usable state: the last successful state on failure,
// or the initial state when the first step fails.
type ChainResult[TContext any] struct {
	// Final is the accumulated state after all steps completed
	Final TContext

	// Intermediate contains state after each step when captured.
	// Index 0 is the initial state, index N is state after step N.
	Intermediate []TContext

	// Steps is the number of steps successfully completed
	Steps int
}

// ProcessChain executes a sequential chain with state accumulation.
//
// Items are processed in order, each step receiving the state produced by the
// previous one. Processing stops on the first error, which is wrapped in a
// ChainError carrying the step index, item and state at failure. Context
// cancellation is checked before each step.
//
// Events emitted: EventChainStart, EventStepStart, EventStepComplete and
// EventChainComplete. An empty item list returns the initial state with
// zero steps and still emits start and complete events.
func ProcessChain[TItem, TContext any](
	ctx context.Context,
	cfg config.ChainConfig,
	items []TItem,
	initial TContext,
	processor StepProcessor[TItem, TContext],
	progress ProgressFunc[TContext],
) (ChainResult[TContext], error) {
	observer, err := observability.ResolveObserver(cfg.Observer)
	if err != nil {
		return ChainResult[TContext]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}

	result := ChainResult[TContext]{Final: initial}

	emit(ctx, observer, EventChainStart, observability.LevelInfo, chainSource, map[string]any{
		"item_count":            len(items),
		"has_progress_callback": progress != nil,
		"capture_intermediate":  cfg.CaptureIntermediateStates,
	})

	complete := func(steps int, errorType string) {
		data := map[string]any{
			"steps_completed": steps,
			"error":           errorType != "",
		}
		if errorType != "" {
			data["error_type"] = errorType
		}
		emit(ctx, observer, EventChainComplete, observability.LevelInfo, chainSource, data)
	}

	if len(items) == 0 {
		complete(0, "")
		return result, nil
	}

	if cfg.CaptureIntermediateStates {
		result.Intermediate = make([]TContext, 0, len(items)+1)
		result.Intermediate = append(result.Intermediate, initial)
	}

	state := initial

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			complete(i, "cancellation")
			return result, &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       fmt.Errorf("processing cancelled: %w", err),
			}
		}

		emit(ctx, observer, EventStepStart, observability.LevelVerbose, chainSource, map[string]any{
			"step_index":  i,
			"total_steps": len(items),
		})

		updated, err := processor(ctx, item, state)

		emit(ctx, observer, EventStepComplete, observability.LevelVerbose, chainSource, map[string]any{
			"step_index":  i,
			"total_steps": len(items),
			"error":       err != nil,
		})

		if err != nil {
			complete(i, "processor")
			return result, &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       err,
			}
		}

		state = updated
		result.Final = state
		result.Steps = i + 1

		if cfg.CaptureIntermediateStates {
			result.Intermediate = append(result.Intermediate, state)
		}

		if progress != nil {
			progress(i+1, len(items), state)
		}
	}

	complete(len(items), "")
	return result, nil
}
