// Package workflows provides the generic fold and worker-pool primitives the
// agent pipelines are built on.
//
// Both primitives are agnostic about what an item is. The pipeline package
// uses agents as items and messages as state or results, but pure data
// transformations work just as well.
//
// # Sequential Chain
//
// ProcessChain folds items in order, passing accumulated state from step to
// step and stopping on the first error:
//
//	processor := func(ctx context.Context, a agent.Agent, msg *protocol.Msg) (*protocol.Msg, error) {
//	    return a.Call(ctx, msg)
//	}
//
//	result, err := workflows.ProcessChain(ctx, config.DefaultChainConfig(), agents, msg, processor, nil)
//
// # Parallel Execution
//
// ProcessParallel processes items with a worker pool and returns results in
// original item order:
//
//	processor := func(ctx context.Context, a agent.Agent) (*protocol.Msg, error) {
//	    return a.Call(ctx, msg.Clone())
//	}
//
//	cfg := config.DefaultParallelConfig()
//	cfg.MaxWorkers = len(agents)
//	result, err := workflows.ProcessParallel(ctx, cfg, agents, processor, nil)
//
// When MaxWorkers is 0 the pool is sized as
//
//	workers = min(NumCPU * 2, WorkerCap, len(items))
//
// # Error Handling
//
// Sequential chains always fail fast. Parallel execution fails fast by
// default, cancelling outstanding work on the first error. With
// FailFast=false every item is processed and an error is returned only when
// all of them failed.
//
// ChainError records the step index, item and state at failure. ParallelError
// aggregates TaskError values and unwraps to every underlying error, so
// errors.Is searches across all task failures.
//
// # Observer Integration
//
// Sequential chains emit EventChainStart, EventStepStart, EventStepComplete
// and EventChainComplete. Parallel execution emits EventParallelStart,
// EventWorkerStart, EventWorkerComplete and EventParallelComplete. The
// observer is resolved by name from the config; an empty name means no-op.
//
// # Context Cancellation
//
// Chains check the context before each step. Workers select on the context
// before taking each item, and the caller's cancellation is reported as an
// error in either fail mode.
package workflows
