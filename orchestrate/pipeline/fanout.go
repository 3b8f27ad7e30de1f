package pipeline

import (
	"context"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/orchestrate/workflows"
)

// Fanout calls every agent with its own deep copy of msg and returns the
// replies aligned with agents. A nil reply keeps its slot.
//
// Concurrent mode starts all agents at once unless MaxWorkers bounds it; the
// first failure cancels the others and fails the whole fanout. Serial mode
// calls agents one at a time in order and stops at the first failure.
func Fanout(ctx context.Context, cfg config.FanoutConfig, agents []agent.Agent, msg *protocol.Msg) ([]*protocol.Msg, error) {
	if !cfg.Concurrent() {
		return fanoutSerial(ctx, cfg, agents, msg)
	}

	failFast := true
	parallelCfg := config.ParallelConfig{
		MaxWorkers:  cfg.MaxWorkers,
		FailFastNil: &failFast,
		Observer:    cfg.Observer,
	}
	if parallelCfg.MaxWorkers <= 0 {
		parallelCfg.MaxWorkers = max(len(agents), 1)
	}

	processor := func(ctx context.Context, a agent.Agent) (*protocol.Msg, error) {
		return call(ctx, a, copyOf(msg))
	}

	result, err := workflows.ProcessParallel(ctx, parallelCfg, agents, processor, nil)
	if err != nil {
		return nil, err
	}
	return result.Results, nil
}

func fanoutSerial(ctx context.Context, cfg config.FanoutConfig, agents []agent.Agent, msg *protocol.Msg) ([]*protocol.Msg, error) {
	chainCfg := config.ChainConfig{Observer: cfg.Observer}

	step := func(ctx context.Context, a agent.Agent, replies []*protocol.Msg) ([]*protocol.Msg, error) {
		reply, err := call(ctx, a, copyOf(msg))
		if err != nil {
			return replies, err
		}
		return append(replies, reply), nil
	}

	result, err := workflows.ProcessChain(ctx, chainCfg, agents, make([]*protocol.Msg, 0, len(agents)), step, nil)
	if err != nil {
		return nil, err
	}
	return result.Final, nil
}

func copyOf(msg *protocol.Msg) *protocol.Msg {
	if msg == nil {
		return nil
	}
	return msg.Clone()
}

// FanoutPipeline is a reusable Fanout over a fixed agent list.
type FanoutPipeline struct {
	Agents []agent.Agent
	Config config.FanoutConfig
}

func NewFanoutPipeline(agents ...agent.Agent) *FanoutPipeline {
	return &FanoutPipeline{
		Agents: agents,
		Config: config.DefaultFanoutConfig(),
	}
}

func (p *FanoutPipeline) Run(ctx context.Context, msg *protocol.Msg) ([]*protocol.Msg, error) {
	return Fanout(ctx, p.Config, p.Agents, msg)
}
