package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/agent/mock"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/orchestrate/pipeline"
)

type seen struct {
	id   string
	text string
	last bool
}

func drain(t *testing.T, s *pipeline.Stream) []seen {
	t.Helper()
	out := make(chan []seen, 1)
	go func() {
		var got []seen
		for c := range s.All() {
			got = append(got, seen{c.Msg.ID, c.Msg.TextContent(), c.Last})
		}
		out <- got
	}()

	select {
	case got := <-out:
		return got
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate")
		return nil
	}
}

func TestStream_TwoChunksThenStop(t *testing.T) {
	ctx := context.Background()
	alice := mock.NewStreaming("alice", []string{"Hel", "lo"})

	var reply *protocol.Msg
	s, err := pipeline.StreamPrintingMessages(ctx, config.DefaultStreamConfig(), []agent.Agent{alice},
		func(ctx context.Context) error {
			var err error
			reply, err = alice.Call(ctx, userMsg("hi"))
			return err
		})
	require.NoError(t, err)

	got := drain(t, s)
	require.NoError(t, s.Err())
	require.Len(t, got, 2)

	m1 := reply.ID
	assert.Equal(t, []seen{{m1, "Hel", false}, {m1, "Hello", true}}, got)
}

func TestStream_SinglePass(t *testing.T) {
	alice := mock.NewStreaming("alice", []string{"x"})
	s, err := pipeline.StreamPrintingMessages(context.Background(), config.StreamConfig{}, []agent.Agent{alice},
		func(ctx context.Context) error {
			_, err := alice.Call(ctx)
			return err
		})
	require.NoError(t, err)

	assert.Len(t, drain(t, s), 1)
	assert.Empty(t, drain(t, s), "a second iteration yields nothing")
}

func TestStream_TaskErrorEndsStream(t *testing.T) {
	boom := errors.New("boom")
	alice := mock.NewStreaming("alice", []string{"a"})

	s, err := pipeline.StreamPrintingMessages(context.Background(), config.StreamConfig{}, []agent.Agent{alice},
		func(ctx context.Context) error {
			if _, err := alice.Call(ctx); err != nil {
				return err
			}
			return boom
		})
	require.NoError(t, err)

	assert.Len(t, drain(t, s), 1)
	require.ErrorIs(t, s.Err(), boom)
}

func TestStream_TaskFinishedBeforeConsumer(t *testing.T) {
	s, err := pipeline.StreamPrintingMessages(context.Background(), config.StreamConfig{}, nil,
		func(context.Context) error { return nil })
	require.NoError(t, err)

	require.NoError(t, s.Err())
	assert.Empty(t, drain(t, s))
}

func TestStream_SinksRestored(t *testing.T) {
	alice := mock.NewStreaming("alice", []string{"a"})
	var outside []string
	alice.SetPrintSink(func(_ context.Context, m *protocol.Msg, _ bool) error {
		outside = append(outside, m.TextContent())
		return nil
	})

	s, err := pipeline.StreamPrintingMessages(context.Background(), config.StreamConfig{}, []agent.Agent{alice},
		func(ctx context.Context) error {
			_, err := alice.Call(ctx)
			return err
		})
	require.NoError(t, err)
	assert.Len(t, drain(t, s), 1)
	require.NoError(t, s.Err())
	assert.Empty(t, outside)

	_, err = alice.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, outside)
}

func TestStream_PerAgentOrderAcrossAgents(t *testing.T) {
	alice := mock.NewStreaming("alice", []string{"a1", "a2", "a3"})
	bob := mock.NewStreaming("bob", []string{"b1", "b2"})

	s, err := pipeline.StreamPrintingMessages(context.Background(), config.DefaultStreamConfig(), []agent.Agent{alice, bob},
		func(ctx context.Context) error {
			_, err := pipeline.Fanout(ctx, config.DefaultFanoutConfig(), []agent.Agent{alice, bob}, nil)
			return err
		})
	require.NoError(t, err)

	byName := map[string][]string{}
	for _, c := range drain(t, s) {
		byName[c.text[:1]] = append(byName[c.text[:1]], c.text)
	}
	require.NoError(t, s.Err())

	assert.Equal(t, []string{"a1", "a1a2", "a1a2a3"}, byName["a"])
	assert.Equal(t, []string{"b1", "b1b2"}, byName["b"])
}

func TestStream_BreakCancelsBlockedTask(t *testing.T) {
	chunks := make([]string, 10)
	for i := range chunks {
		chunks[i] = "x"
	}
	alice := mock.NewStreaming("alice", chunks)

	s, err := pipeline.StreamPrintingMessages(context.Background(), config.StreamConfig{QueueSize: 1}, []agent.Agent{alice},
		func(ctx context.Context) error {
			_, err := alice.Call(ctx)
			return err
		})
	require.NoError(t, err)

	for range s.All() {
		break
	}

	err = s.Err()
	require.ErrorIs(t, err, pipeline.ErrStreamClosed)
}

func TestStream_ErrBeforeAllDoesNotStall(t *testing.T) {
	chunks := make([]string, 150)
	for i := range chunks {
		chunks[i] = "x"
	}
	alice := mock.NewStreaming("alice", chunks)

	s, err := pipeline.StreamPrintingMessages(context.Background(), config.DefaultStreamConfig(), []agent.Agent{alice},
		func(ctx context.Context) error {
			_, err := alice.Call(ctx)
			return err
		})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Err() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Err blocked on a full queue")
	}

	assert.Empty(t, drain(t, s))
	assert.Equal(t, 1, alice.Calls())
}

func TestStream_UnknownObserver(t *testing.T) {
	_, err := pipeline.StreamPrintingMessages(context.Background(), config.StreamConfig{Observer: "missing"}, nil,
		func(context.Context) error { return nil })
	require.ErrorContains(t, err, "failed to resolve observer")
}
