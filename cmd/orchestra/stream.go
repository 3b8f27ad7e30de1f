package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/agent/mock"
	"github.com/tailored-agentic-units/orchestra/orchestrate/pipeline"
)

func newStreamCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Stream the incremental prints of agents while a sequence runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStream(cmd.Context(), opts)
		},
	}
}

func runStream(ctx context.Context, opts *options) error {
	ctx, span := opts.span(ctx, "orchestra.stream")
	defer span.End()

	agents := []agent.Agent{
		mock.NewStreaming("poet", strings.Fields("roses are red violets are blue")),
		mock.NewStreaming("critic", strings.Fields("the meter is off")),
	}

	stream, err := pipeline.StreamPrintingMessages(ctx, opts.cfg.Stream, agents, func(ctx context.Context) error {
		_, err := pipeline.Sequential(ctx, opts.cfg.Sequential, agents, nil)
		return err
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for chunk := range stream.All() {
		marker := ""
		if chunk.Last {
			marker = " [done]"
		}
		fmt.Printf("%s> %s%s\n", chunk.Msg.Name, chunk.Msg.TextContent(), marker)
	}
	return stream.Err()
}
