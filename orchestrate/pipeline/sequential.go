package pipeline

import (
	"context"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/orchestrate/workflows"
)

// Sequential passes msg to the first agent, each reply to the next agent,
// and returns the last reply. A nil msg, or a nil reply along the way, calls
// the next agent with no input.
//
// The first failing agent halts the chain. The returned error is a
// *workflows.ChainError carrying the step index; replies already produced
// keep their broadcast side effects.
func Sequential(ctx context.Context, cfg config.SequentialConfig, agents []agent.Agent, msg *protocol.Msg) (*protocol.Msg, error) {
	chainCfg := config.ChainConfig{Observer: cfg.Observer}

	result, err := workflows.ProcessChain(ctx, chainCfg, agents, msg, call, nil)
	if err != nil {
		return nil, err
	}
	return result.Final, nil
}

func call(ctx context.Context, a agent.Agent, msg *protocol.Msg) (*protocol.Msg, error) {
	if msg == nil {
		return a.Call(ctx)
	}
	return a.Call(ctx, msg)
}

// SequentialPipeline is a reusable Sequential over a fixed agent list.
type SequentialPipeline struct {
	Agents []agent.Agent
	Config config.SequentialConfig
}

func NewSequentialPipeline(agents ...agent.Agent) *SequentialPipeline {
	return &SequentialPipeline{
		Agents: agents,
		Config: config.DefaultSequentialConfig(),
	}
}

func (p *SequentialPipeline) Run(ctx context.Context, msg *protocol.Msg) (*protocol.Msg, error) {
	return Sequential(ctx, p.Config, p.Agents, msg)
}
