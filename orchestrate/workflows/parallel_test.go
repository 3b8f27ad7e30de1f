package workflows_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/orchestrate/workflows"
)

func double(_ context.Context, item int) (int, error) {
	return item * 2, nil
}

func collectAll() config.ParallelConfig {
	failFast := false
	return config.ParallelConfig{FailFastNil: &failFast, Observer: "noop"}
}

func TestProcessParallel_EmptyInput(t *testing.T) {
	observer, name := registerCapture(t)

	result, err := workflows.ProcessParallel(context.Background(), config.ParallelConfig{Observer: name}, []int{}, double, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []observability.EventType{workflows.EventParallelStart, workflows.EventParallelComplete}, observer.types())
}

func TestProcessParallel_OrderPreservation(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	processor := func(_ context.Context, item int) (int, error) {
		time.Sleep(time.Duration(item) * time.Millisecond)
		return item * 10, nil
	}

	result, err := workflows.ProcessParallel(context.Background(), config.DefaultParallelConfig(), items, processor, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, result.Results)
}

func TestProcessParallel_OrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOfN(rapid.IntRange(-1000, 1000), 0, 40).Draw(t, "items")
		workers := rapid.IntRange(0, 8).Draw(t, "workers")

		cfg := config.ParallelConfig{MaxWorkers: workers, WorkerCap: 16, Observer: "noop"}
		result, err := workflows.ProcessParallel(context.Background(), cfg, items, double, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Results) != len(items) {
			t.Fatalf("got %d results for %d items", len(result.Results), len(items))
		}
		for i, item := range items {
			if result.Results[i] != item*2 {
				t.Fatalf("result %d = %d, want %d", i, result.Results[i], item*2)
			}
		}
	})
}

func TestProcessParallel_FailFast(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32
	processor := func(ctx context.Context, item int) (int, error) {
		started.Add(1)
		if item == 0 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return item, nil
		}
	}

	cfg := config.DefaultParallelConfig()
	cfg.MaxWorkers = 2
	begin := time.Now()
	result, err := workflows.ProcessParallel(context.Background(), cfg, []int{0, 1, 2, 3, 4, 5}, processor, nil)

	require.ErrorIs(t, err, boom)
	var pErr *workflows.ParallelError[int]
	require.ErrorAs(t, err, &pErr)
	assert.Less(t, time.Since(begin), 4*time.Second, "fail-fast cancels in-flight work")
	assert.Empty(t, result.Results)
	assert.Less(t, int(started.Load()), 6)
}

func TestProcessParallel_CollectAllErrors_PartialFailure(t *testing.T) {
	processor := func(_ context.Context, item int) (int, error) {
		if item%2 == 0 {
			return 0, errors.New("even")
		}
		return item, nil
	}

	result, err := workflows.ProcessParallel(context.Background(), collectAll(), []int{1, 2, 3, 4, 5}, processor, nil)
	require.NoError(t, err, "partial failure is not an error")

	assert.Equal(t, []int{1, 3, 5}, result.Results)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, 2, result.Errors[0].Item)
	assert.Equal(t, 3, result.Errors[1].Index)
}

func TestProcessParallel_CollectAllErrors_AllFailures(t *testing.T) {
	processor := func(context.Context, int) (int, error) {
		return 0, errors.New("always")
	}

	result, err := workflows.ProcessParallel(context.Background(), collectAll(), []int{1, 2, 3}, processor, nil)
	require.Error(t, err)
	assert.Len(t, result.Errors, 3)
}

func TestProcessParallel_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	processor := func(_ context.Context, item int) (int, error) {
		if item == 10 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return item, nil
	}

	cfg := config.DefaultParallelConfig()
	cfg.MaxWorkers = 2
	result, err := workflows.ProcessParallel(ctx, cfg, items, processor, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, len(result.Results)+len(result.Errors), 100)
}

func TestProcessParallel_MaxWorkersBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	processor := func(_ context.Context, item int) (int, error) {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return item, nil
	}

	cfg := config.DefaultParallelConfig()
	cfg.MaxWorkers = 2
	result, err := workflows.ProcessParallel(context.Background(), cfg, make([]int, 20), processor, nil)
	require.NoError(t, err)

	assert.Len(t, result.Results, 20)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessParallel_ProgressOnlyOnSuccess(t *testing.T) {
	var calls atomic.Int32
	progress := func(completed, total int, _ int) {
		calls.Add(1)
		assert.Equal(t, 4, total)
		assert.LessOrEqual(t, completed, 4)
	}
	processor := func(_ context.Context, item int) (int, error) {
		if item == 3 {
			return 0, errors.New("three")
		}
		return item, nil
	}

	_, err := workflows.ProcessParallel(context.Background(), collectAll(), []int{1, 2, 3, 4}, processor, progress)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProcessParallel_InvalidObserver(t *testing.T) {
	_, err := workflows.ProcessParallel(context.Background(), config.ParallelConfig{Observer: "nonexistent"}, []int{1}, double, nil)
	require.ErrorContains(t, err, "failed to resolve observer:")
}

func TestParallelError_Messages(t *testing.T) {
	single := &workflows.ParallelError[string]{Errors: []workflows.TaskError[string]{
		{Index: 5, Item: "x", Err: errors.New("connection refused")},
	}}
	assert.Equal(t, "parallel execution failed: item 5: connection refused", single.Error())

	multiple := &workflows.ParallelError[int]{Errors: []workflows.TaskError[int]{
		{Index: 1, Err: errors.New("connection refused")},
		{Index: 2, Err: errors.New("connection refused")},
		{Index: 3, Err: errors.New("timeout")},
		{Index: 4, Err: errors.New("connection refused")},
	}}
	msg := multiple.Error()
	assert.True(t, strings.HasPrefix(msg, "parallel execution failed: 4 items failed with 2 error types:"), msg)
	assert.Contains(t, msg, "'connection refused' (3 items), 'timeout' (1 item)")
}

func TestParallelError_Unwrap(t *testing.T) {
	err1, err2 := errors.New("error 1"), errors.New("error 2")
	pErr := &workflows.ParallelError[int]{Errors: []workflows.TaskError[int]{
		{Index: 0, Err: err1},
		{Index: 1, Err: err2},
	}}

	assert.ErrorIs(t, pErr, err1)
	assert.ErrorIs(t, pErr, err2)
	assert.Len(t, pErr.Unwrap(), 2)
}
