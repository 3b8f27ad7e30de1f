package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/agent/mock"
	"github.com/tailored-agentic-units/orchestra/core/protocol"
	"github.com/tailored-agentic-units/orchestra/orchestrate/hub"
)

func newHubCmd(opts *options) *cobra.Command {
	var rounds int

	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run a round-robin conversation inside a message hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHub(cmd.Context(), opts, rounds)
		},
	}
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 2, "conversation rounds")
	return cmd
}

func runHub(ctx context.Context, opts *options, rounds int) error {
	ctx, span := opts.span(ctx, "orchestra.hub")
	defer span.End()

	console := agent.WithConsole(os.Stdout)
	alice := mock.NewScripted("alice", []string{"I think we should start with the data.", "Agreed, let's draft."}, console)
	bob := mock.NewScripted("bob", []string{"The data is ready in the warehouse.", "I'll take the summary."}, console)
	carol := mock.NewScripted("carol", []string{"I can review whatever you two produce.", "Send it over when done."}, console)
	participants := []agent.Agent{alice, bob, carol}

	announcement := protocol.NewMsg("host", protocol.RoleSystem, "Welcome. Introduce your part of the report.")

	var metrics hub.MetricsSnapshot
	err := hub.Run(ctx, opts.cfg.Hub, participants, func(ctx context.Context, h *hub.Hub) error {
		for range rounds {
			for _, a := range participants {
				if _, err := a.Call(ctx); err != nil {
					return fmt.Errorf("%s: %w", a.Name(), err)
				}
			}
		}
		metrics = h.Metrics()
		return nil
	}, hub.WithAnnouncement(announcement))
	if err != nil {
		return err
	}

	for _, m := range []*mock.Agent{alice, bob, carol} {
		fmt.Printf("%s observed %d messages\n", m.Name(), len(m.Observed()))
	}
	fmt.Printf("hub: %d participants, %d broadcasts, %d deliveries\n",
		metrics.Participants, metrics.Broadcasts, metrics.Deliveries)
	return nil
}
