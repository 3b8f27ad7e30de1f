package pipeline_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/agent/mock"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/orchestrate/pipeline"
	"github.com/tailored-agentic-units/orchestra/orchestrate/workflows"
)

func userMsg(text string) *protocol.Msg {
	return protocol.NewMsg("user", protocol.RoleUser, text)
}

func serial() config.FanoutConfig {
	off := false
	cfg := config.DefaultFanoutConfig()
	cfg.ConcurrentNil = &off
	return cfg
}

func TestSequential_MatchesManualThreading(t *testing.T) {
	ctx := context.Background()
	a, b, c := mock.NewEcho("a"), mock.NewEcho("b"), mock.NewEcho("c")

	got, err := pipeline.Sequential(ctx, config.DefaultSequentialConfig(), []agent.Agent{a, b, c}, userMsg("m"))
	require.NoError(t, err)
	assert.Equal(t, "c: b: a: m", got.TextContent())

	a2, b2, c2 := mock.NewEcho("a"), mock.NewEcho("b"), mock.NewEcho("c")
	m, err := a2.Call(ctx, userMsg("m"))
	require.NoError(t, err)
	m, err = b2.Call(ctx, m)
	require.NoError(t, err)
	m, err = c2.Call(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, m.TextContent(), got.TextContent())
}

func TestSequential_ErrorHaltsChain(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	a, b, c := mock.NewEcho("a"), mock.NewFailing("b", boom), mock.NewEcho("c")

	_, err := pipeline.Sequential(ctx, config.DefaultSequentialConfig(), []agent.Agent{a, b, c}, userMsg("m"))
	require.ErrorIs(t, err, boom)

	var chainErr *workflows.ChainError[agent.Agent, *protocol.Msg]
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, 1, chainErr.StepIndex)
	assert.Equal(t, 1, a.Calls())
	assert.Zero(t, c.Calls())
}

func TestSequential_NilInputAndNilReply(t *testing.T) {
	ctx := context.Background()
	silent, echo := mock.NewSilent("silent"), mock.NewEcho("echo")

	got, err := pipeline.Sequential(ctx, config.SequentialConfig{}, []agent.Agent{silent, echo}, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo: ", got.TextContent())
	assert.Empty(t, echo.Inputs()[0], "a nil reply calls the next agent with no input")
}

func TestSequentialPipeline_Reusable(t *testing.T) {
	p := pipeline.NewSequentialPipeline(mock.NewEcho("a"), mock.NewEcho("b"))

	for _, text := range []string{"one", "two"} {
		got, err := p.Run(context.Background(), userMsg(text))
		require.NoError(t, err)
		assert.Equal(t, "b: a: "+text, got.TextContent())
	}
}

func TestFanout_ResultsAlignedWithAgents(t *testing.T) {
	ctx := context.Background()
	slow := mock.New("slow", func(context.Context, *agent.Invocation) (*protocol.Msg, error) {
		time.Sleep(20 * time.Millisecond)
		return protocol.NewMsg("slow", protocol.RoleAssistant, "slow"), nil
	})
	fast := mock.NewScripted("fast", []string{"fast"})
	silent := mock.NewSilent("silent")

	for name, cfg := range map[string]config.FanoutConfig{"concurrent": config.DefaultFanoutConfig(), "serial": serial()} {
		t.Run(name, func(t *testing.T) {
			got, err := pipeline.Fanout(ctx, cfg, []agent.Agent{slow, fast, silent}, userMsg("go"))
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "slow", got[0].TextContent())
			assert.Equal(t, "fast", got[1].TextContent())
			assert.Nil(t, got[2])
		})
	}
}

func TestFanout_ConcurrentLaunchesAllBeforeAwaiting(t *testing.T) {
	ctx := context.Background()
	const n = 4
	var arrived sync.WaitGroup
	arrived.Add(n)
	release := make(chan struct{})

	agents := make([]agent.Agent, n)
	for i := range agents {
		agents[i] = mock.New("worker", func(context.Context, *agent.Invocation) (*protocol.Msg, error) {
			arrived.Done()
			<-release
			return nil, nil
		})
	}

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.Fanout(ctx, config.DefaultFanoutConfig(), agents, userMsg("x"))
		done <- err
	}()

	waited := make(chan struct{})
	go func() { arrived.Wait(); close(waited) }()

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("not every agent started concurrently")
	}
	close(release)
	require.NoError(t, <-done)
}

func TestFanout_ConcurrentFailureFailsAll(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	got, err := pipeline.Fanout(ctx, config.DefaultFanoutConfig(),
		[]agent.Agent{mock.NewBlocking("blocked"), mock.NewFailing("failing", boom)}, userMsg("x"))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestFanout_SerialIsFailFast(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	a, b, c := mock.NewEcho("a"), mock.NewFailing("b", boom), mock.NewEcho("c")

	_, err := pipeline.Fanout(ctx, serial(), []agent.Agent{a, b, c}, userMsg("x"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.Calls())
	assert.Zero(t, c.Calls(), "agents after a failure are not invoked")
}

func TestFanout_CopiesAreIsolated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "agents")
		concurrent := rapid.Bool().Draw(t, "concurrent")
		text := rapid.String().Draw(t, "text")

		original := userMsg(text)
		original.Metadata = map[string]any{"tags": []any{"x"}}

		var (
			mu   sync.Mutex
			seen []*protocol.Msg
		)
		agents := make([]agent.Agent, n)
		for i := range agents {
			agents[i] = mock.New("mutator", func(_ context.Context, inv *agent.Invocation) (*protocol.Msg, error) {
				in := inv.LastInput()
				mu.Lock()
				seen = append(seen, in)
				mu.Unlock()

				in.Content = append(in.Content, protocol.TextBlock{Text: "mutated"})
				in.Metadata["tags"] = append(in.Metadata["tags"].([]any), "mutated")
				return nil, nil
			})
		}

		cfg := config.DefaultFanoutConfig()
		cfg.ConcurrentNil = &concurrent
		if _, err := pipeline.Fanout(context.Background(), cfg, agents, original); err != nil {
			t.Fatalf("fanout: %v", err)
		}

		if original.TextContent() != text || len(original.Metadata["tags"].([]any)) != 1 {
			t.Fatalf("original message was mutated")
		}
		for i, m := range seen {
			if m == original {
				t.Fatalf("agent %d received the original message", i)
			}
			if slices.ContainsFunc(seen[:i], func(o *protocol.Msg) bool { return o == m }) {
				t.Fatalf("agents share a copy")
			}
			if m.ID != original.ID || len(m.Content) != 2 {
				t.Fatalf("copy %d diverged: %+v", i, m)
			}
		}
	})
}

func TestFanoutPipeline_Run(t *testing.T) {
	p := pipeline.NewFanoutPipeline(mock.NewEcho("a"), mock.NewEcho("b"))

	got, err := p.Run(context.Background(), userMsg("x"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a: x", got[0].TextContent())
	assert.Equal(t, "b: x", got[1].TextContent())
}
