package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
)

// Stream event types.
const (
	EventStreamStart    observability.EventType = "stream.start"
	EventStreamComplete observability.EventType = "stream.complete"
)

// ErrStreamClosed is the cause seen by a task whose stream was closed before
// the task finished.
var ErrStreamClosed = errors.New("stream closed")

// Chunk is one print call made by an agent. Chunks sharing Msg.ID belong to
// one logical message; Last marks the final chunk of that message.
type Chunk struct {
	Msg  *protocol.Msg
	Last bool
}

// Task is the unit of work whose agent prints are streamed.
type Task func(ctx context.Context) error

// Stream delivers the chunks printed by a set of agents while a task runs.
type Stream struct {
	queue    chan Chunk
	done     chan struct{}
	cancel   context.CancelCauseFunc
	consumed atomic.Bool
	chunks   atomic.Int64

	// sendMu guards queue closure against late prints.
	sendMu sync.RWMutex
	closed bool

	err error
}

// StreamPrintingMessages redirects every agent's print sink into a shared
// queue, starts task in its own goroutine and returns the stream of printed
// chunks. The stream ends when the task returns, successful or not, at which
// point the original sinks are restored.
//
// A full queue blocks the printing agent until the consumer catches up or
// the stream is closed.
func StreamPrintingMessages(ctx context.Context, cfg config.StreamConfig, agents []agent.Agent, task Task) (*Stream, error) {
	observer, err := observability.ResolveObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = config.DefaultStreamConfig().QueueSize
	}

	taskCtx, cancel := context.WithCancelCause(ctx)
	s := &Stream{
		queue:  make(chan Chunk, size),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	sink := func(ctx context.Context, msg *protocol.Msg, last bool) error {
		s.sendMu.RLock()
		defer s.sendMu.RUnlock()

		if s.closed {
			return ErrStreamClosed
		}
		if taskCtx.Err() != nil {
			return context.Cause(taskCtx)
		}

		select {
		case s.queue <- Chunk{Msg: msg.Clone(), Last: last}:
			s.chunks.Add(1)
			return nil
		case <-taskCtx.Done():
			return context.Cause(taskCtx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	previous := make([]agent.PrintSink, len(agents))
	for i, a := range agents {
		previous[i] = a.SetPrintSink(sink)
	}

	start := time.Now()
	observer.OnEvent(ctx, observability.Event{
		Type:      EventStreamStart,
		Level:     observability.LevelVerbose,
		Timestamp: start,
		Source:    "pipeline.StreamPrintingMessages",
		Data: map[string]any{
			"agents":     len(agents),
			"queue_size": size,
		},
	})

	go func() {
		defer close(s.done)

		var taskErr error
		defer func() {
			for i, a := range agents {
				a.SetPrintSink(previous[i])
			}

			cancel(nil)
			s.sendMu.Lock()
			s.closed = true
			s.err = taskErr
			close(s.queue)
			s.sendMu.Unlock()
		}()

		taskErr = task(taskCtx)
		chunks := s.chunks.Load()

		observer.OnEvent(ctx, observability.Event{
			Type:      EventStreamComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "pipeline.StreamPrintingMessages",
			Data: map[string]any{
				"chunks":      chunks,
				"duration_ms": time.Since(start).Milliseconds(),
				"error":       taskErr != nil,
			},
		})
	}()

	return s, nil
}

// All yields chunks in the order agents printed them until the task
// finishes. The sequence is single-pass: a second iteration yields nothing.
// Breaking out of the loop closes the stream.
func (s *Stream) All() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			return
		}
		for c := range s.queue {
			if !yield(c) {
				s.Close()
				return
			}
		}
	}
}

// Err waits for the task to finish and returns its error. If All has not
// been started, Err discards the chunks itself so a full queue cannot stall
// the task, and a later All yields nothing.
func (s *Stream) Err() error {
	if s.consumed.CompareAndSwap(false, true) {
		for range s.queue {
		}
	}
	<-s.done
	return s.err
}

// Close cancels the task with ErrStreamClosed, discards unread chunks and
// waits for the task to return. Closing a finished stream is a no-op.
func (s *Stream) Close() {
	s.cancel(ErrStreamClosed)
	for range s.queue {
	}
	<-s.done
}
