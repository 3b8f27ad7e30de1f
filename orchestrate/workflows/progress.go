package workflows

// ProgressFunc reports progress after each successful step or task.
// It is never called for failed items. In parallel execution it is invoked
// from worker goroutines with an atomically incremented completed count.
//
//	progress := func(completed, total int, reply *protocol.Msg) {
//	    slog.Debug("agent replied", "completed", completed, "total", total, "from", reply.Name)
//	}
type ProgressFunc[TContext any] func(
	completed int,
	total int,
	state TContext,
)
