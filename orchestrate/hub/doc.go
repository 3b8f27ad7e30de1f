// Package hub provides the MsgHub, a scoped broadcast group for agents.
//
// A hub never sits on the call stack of a reply. Entering it writes a
// subscription entry, keyed by the hub's name, into each participant: "every
// other participant". When a participant's Call completes with a reply, the
// agent itself delivers that reply to the peers of each of its subscriptions.
// Exiting the hub removes the entries again.
//
// # Scoped Use
//
// Run guarantees teardown on every path:
//
//	err := hub.Run(ctx, cfg, []agent.Agent{alice, bob, carol},
//	    func(ctx context.Context, h *hub.Hub) error {
//	        if _, err := alice.Call(ctx); err != nil { // bob and carol observe the reply
//	            return err
//	        }
//	        _, err := bob.Call(ctx)
//	        return err
//	    },
//	    hub.WithAnnouncement(protocol.NewMsg("host", protocol.RoleSystem, "Introduce yourselves.")),
//	)
//
// Manual use pairs Enter with a deferred Exit:
//
//	h, err := hub.New(cfg, participants)
//	if err := h.Enter(ctx); err != nil { ... }
//	defer h.Exit(ctx)
//
// # Membership
//
// Add and Delete re-derive every participant's subscriptions. Adding an agent
// already present is a no-op; deleting an absent agent logs a warning. An
// agent added after Enter never receives the announcement.
//
// # Broadcasting
//
// Broadcast delivers messages to every participant's Observe regardless of
// the auto-broadcast setting, which makes a hub with auto-broadcast disabled
// a manual message board. SetAutoBroadcast(false) removes the subscriptions
// immediately; SetAutoBroadcast(true) restores them.
//
// # Concurrency
//
// Hub methods are safe for concurrent use. Subscription updates take effect
// for replies that complete after the update.
package hub
