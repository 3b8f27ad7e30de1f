// Package pipeline composes agents into workflows.
//
// Sequential threads one message through a list of agents. Fanout hands the
// same input, copied per agent, to every agent and collects the replies in
// agent order. StreamPrintingMessages taps the print calls agents make while
// a task runs and exposes them as a single-pass sequence:
//
//	stream, err := pipeline.StreamPrintingMessages(ctx, config.DefaultStreamConfig(), agents,
//	    func(ctx context.Context) error {
//	        _, err := pipeline.Sequential(ctx, config.DefaultSequentialConfig(), agents, task)
//	        return err
//	    })
//	if err != nil {
//	    return err
//	}
//	for chunk := range stream.All() {
//	    render(chunk.Msg, chunk.Last)
//	}
//	return stream.Err()
//
// Pipelines never catch agent errors. A failing agent fails the whole
// operation, and replies broadcast by earlier agents stay delivered.
package pipeline
