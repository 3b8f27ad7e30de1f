package workflows

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
)

const parallelSource = "workflows.ProcessParallel"

// TaskProcessor processes a single item and returns a result.
//
// Unlike StepProcessor, a task neither receives nor returns accumulated
// state. Each task runs independently of the others, which is how a fanout
// pipeline hands each agent its own copy of the input.
type TaskProcessor[TItem, TResult any] func(
	ctx context.Context,
	item TItem,
) (TResult, error)

type indexedItem[TItem any] struct {
	index int
	item  TItem
}

type indexedResult[TResult any] struct {
	index  int
	result TResult
	err    error
}

// ProcessParallel executes concurrent processing with result aggregation.
//
// Items are distributed to a worker pool and results are returned in
// original item order regardless of completion order.
//
// Worker count:
//   - MaxWorkers > 0: Use exact count
//   - MaxWorkers = 0: Auto-detect min(NumCPU*2, WorkerCap, len(items))
//
// Error handling:
//   - FailFast=true (default): the first error cancels the remaining work and
//     a ParallelError is returned alongside partial results
//   - FailFast=false: every item is processed; an error is returned only when
//     all items failed, otherwise failures are reported in result.Errors
//
// Events emitted: EventParallelStart, EventWorkerStart, EventWorkerComplete
// and EventParallelComplete.
func ProcessParallel[TItem, TResult any](
	ctx context.Context,
	cfg config.ParallelConfig,
	items []TItem,
	processor TaskProcessor[TItem, TResult],
	progress ProgressFunc[TResult],
) (ParallelResult[TItem, TResult], error) {
	observer, err := observability.ResolveObserver(cfg.Observer)
	if err != nil {
		return ParallelResult[TItem, TResult]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}

	workerCount := 0
	if len(items) > 0 {
		workerCount = calculateWorkerCount(cfg.MaxWorkers, cfg.WorkerCap, len(items))
	}

	emit(ctx, observer, EventParallelStart, observability.LevelInfo, parallelSource, map[string]any{
		"item_count":            len(items),
		"worker_count":          workerCount,
		"fail_fast":             cfg.FailFast(),
		"has_progress_callback": progress != nil,
	})

	finish := func(result ParallelResult[TItem, TResult], err error) (ParallelResult[TItem, TResult], error) {
		emit(ctx, observer, EventParallelComplete, observability.LevelInfo, parallelSource, map[string]any{
			"items_processed": len(result.Results),
			"items_failed":    len(result.Errors),
			"error":           err != nil,
		})
		return result, err
	}

	if len(items) == 0 {
		return finish(ParallelResult[TItem, TResult]{
			Results: []TResult{},
			Errors:  []TaskError[TItem]{},
		}, nil)
	}

	workQueue := make(chan indexedItem[TItem], len(items))
	resultChannel := make(chan indexedResult[TResult], len(items))

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
	)

	for i := range workerCount {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w := worker[TItem, TResult]{
				id:        workerID,
				processor: processor,
				progress:  progress,
				completed: &completed,
				total:     len(items),
				observer:  observer,
				failFast:  cfg.FailFast(),
				cancel:    cancel,
			}
			w.run(workCtx, workQueue, resultChannel)
		}(i)
	}

	for i, item := range items {
		workQueue <- indexedItem[TItem]{index: i, item: item}
	}
	close(workQueue)

	wg.Wait()
	close(resultChannel)

	result := collectResults(resultChannel, items)

	if ctx.Err() != nil {
		return finish(result, fmt.Errorf("parallel execution cancelled: %w", ctx.Err()))
	}

	if len(result.Errors) > 0 && (cfg.FailFast() || len(result.Results) == 0) {
		return finish(result, &ParallelError[TItem]{Errors: result.Errors})
	}

	return finish(result, nil)
}

func calculateWorkerCount(maxWorkers, workerCap, itemCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	workers := min(runtime.NumCPU()*2, itemCount)
	if workerCap > 0 {
		workers = min(workers, workerCap)
	}

	return max(workers, 1)
}

type worker[TItem, TResult any] struct {
	id        int
	processor TaskProcessor[TItem, TResult]
	progress  ProgressFunc[TResult]
	completed *atomic.Int32
	total     int
	observer  observability.Observer
	failFast  bool
	cancel    context.CancelFunc
}

func (w worker[TItem, TResult]) run(
	ctx context.Context,
	workQueue <-chan indexedItem[TItem],
	resultChannel chan<- indexedResult[TResult],
) {
	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-workQueue:
			if !ok {
				return
			}

			emit(ctx, w.observer, EventWorkerStart, observability.LevelVerbose, parallelSource, map[string]any{
				"worker_id":   w.id,
				"item_index":  work.index,
				"total_items": w.total,
			})

			result, err := w.processor(ctx, work.item)

			emit(ctx, w.observer, EventWorkerComplete, observability.LevelVerbose, parallelSource, map[string]any{
				"worker_id":   w.id,
				"item_index":  work.index,
				"total_items": w.total,
				"error":       err != nil,
			})

			if err != nil {
				resultChannel <- indexedResult[TResult]{index: work.index, err: err}
				if w.failFast {
					w.cancel()
					return
				}
				continue
			}

			resultChannel <- indexedResult[TResult]{index: work.index, result: result}
			if w.progress != nil {
				count := w.completed.Add(1)
				w.progress(int(count), w.total, result)
			}
		}
	}
}

// collectResults drains the closed result channel into dense, index-ordered
// result and error slices.
func collectResults[TItem, TResult any](
	resultChannel <-chan indexedResult[TResult],
	items []TItem,
) ParallelResult[TItem, TResult] {
	byIndex := make(map[int]indexedResult[TResult], len(items))
	for r := range resultChannel {
		byIndex[r.index] = r
	}

	out := ParallelResult[TItem, TResult]{
		Results: make([]TResult, 0, len(byIndex)),
		Errors:  []TaskError[TItem]{},
	}

	for i := range items {
		r, ok := byIndex[i]
		if !ok {
			continue
		}
		if r.err != nil {
			out.Errors = append(out.Errors, TaskError[TItem]{Index: i, Item: items[i], Err: r.err})
			continue
		}
		out.Results = append(out.Results, r.result)
	}

	return out
}
