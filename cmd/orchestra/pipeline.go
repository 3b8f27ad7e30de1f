package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/agent/mock"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/orchestrate/pipeline"
)

func newPipelineCmd(opts *options) *cobra.Command {
	var (
		fanout bool
		serial bool
	)

	cmd := &cobra.Command{
		Use:   "pipeline [prompt]",
		Short: "Thread a prompt through echo agents sequentially or by fanout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := "summarize the quarter"
			if len(args) == 1 {
				prompt = args[0]
			}
			if fanout {
				return runFanout(cmd.Context(), opts, prompt, serial)
			}
			return runSequential(cmd.Context(), opts, prompt)
		},
	}
	cmd.Flags().BoolVar(&fanout, "fanout", false, "send the prompt to every agent instead of chaining")
	cmd.Flags().BoolVar(&serial, "serial", false, "run fanout replies one at a time")
	return cmd
}

func echoAgents(names ...string) []agent.Agent {
	agents := make([]agent.Agent, len(names))
	for i, name := range names {
		agents[i] = mock.NewEcho(name)
	}
	return agents
}

func runSequential(ctx context.Context, opts *options, prompt string) error {
	ctx, span := opts.span(ctx, "orchestra.pipeline.sequential")
	defer span.End()

	agents := echoAgents("researcher", "writer", "editor")
	reply, err := pipeline.Sequential(ctx, opts.cfg.Sequential, agents,
		protocol.NewMsg("user", protocol.RoleUser, prompt))
	if err != nil {
		return err
	}
	if reply != nil {
		fmt.Fprintln(os.Stdout, reply.TextContent())
	}
	return nil
}

func runFanout(ctx context.Context, opts *options, prompt string, serial bool) error {
	ctx, span := opts.span(ctx, "orchestra.pipeline.fanout")
	defer span.End()

	cfg := opts.cfg.Fanout
	if serial {
		concurrent := false
		cfg.ConcurrentNil = &concurrent
	}

	agents := echoAgents("optimist", "pessimist", "realist")
	replies, err := pipeline.Fanout(ctx, cfg, agents,
		protocol.NewMsg("user", protocol.RoleUser, prompt))
	if err != nil {
		return err
	}
	for i, reply := range replies {
		if reply == nil {
			fmt.Printf("%s: (no reply)\n", agents[i].Name())
			continue
		}
		fmt.Println(reply.TextContent())
	}
	return nil
}
