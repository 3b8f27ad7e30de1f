package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/orchestra/plan"
	"github.com/tailored-agentic-units/orchestra/plan/sqlite"
	"github.com/tailored-agentic-units/orchestra/session"
	"github.com/tailored-agentic-units/orchestra/tools"
)

func newPlanCmd(opts *options) *cobra.Command {
	var (
		dbPath     string
		sessionID  string
		sessionDir string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Drive a plan notebook through its tools and archive the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionDir != "" {
				opts.cfg.Session.Store.Path = sessionDir
			}
			return runPlan(cmd.Context(), opts, dbPath, sessionID)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", envOr("ORCHESTRA_PLAN_DB", ""), "SQLite file for the plan archive (default in-memory)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID to load before and save after the run")
	cmd.Flags().StringVar(&sessionDir, "session-dir", "", "directory for session snapshots")
	return cmd
}

// registerSQLite makes the archive selectable as the "sqlite" storage. The
// caller closes the returned database.
func registerSQLite(ctx context.Context, path string) (*sqlite.Storage, error) {
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	err = plan.RegisterStorage("sqlite", func() (plan.Storage, error) {
		return plan.NewCachedStorage(db, plan.DefaultCacheExpiration, plan.DefaultCacheCleanupInterval), nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runPlan(ctx context.Context, opts *options, dbPath, sessionID string) error {
	ctx, span := opts.span(ctx, "orchestra.plan")
	defer span.End()

	if dbPath != "" {
		db, err := registerSQLite(ctx, dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.cfg.Notebook.Storage = "sqlite"
	}

	nb, err := plan.NewNotebook(opts.cfg.Notebook, plan.WithLogger(opts.logger))
	if err != nil {
		return err
	}

	history := session.NewHistory()
	nb.RegisterChangeHook("history", func(_ context.Context, nb *plan.Notebook, _ *plan.Plan) {
		history.Add(nb.CurrentHint())
	})

	var persister *session.JSONSession
	modules := map[string]session.StateModule{"notebook": nb, "history": history}
	if sessionID != "" {
		persister, err = session.New(&opts.cfg.Session, opts.logger)
		if err != nil {
			return err
		}
		if err := persister.Load(ctx, sessionID, modules); err != nil {
			return err
		}
	}

	registry, err := nb.Tools()
	if err != nil {
		return err
	}

	if current := nb.CurrentPlan(); current != nil {
		opts.logger.InfoContext(ctx, "resumed plan from session",
			slog.String("session_id", sessionID),
			slog.String("plan", current.Name))
	} else if err := call(ctx, registry, "create_plan", map[string]any{
		"name":             "Quarterly report",
		"description":      "Produce the Q3 report for the leadership meeting",
		"expected_outcome": "A reviewed report in PDF",
		"subtasks": []map[string]string{
			{"name": "Collect", "description": "Pull revenue and churn numbers", "expected_outcome": "A table of metrics"},
			{"name": "Draft", "description": "Write the narrative", "expected_outcome": "A first draft"},
			{"name": "Review", "description": "Get sign-off from finance", "expected_outcome": "Approved draft"},
		},
	}); err != nil {
		return err
	}

	steps := []struct {
		tool string
		args map[string]any
	}{
		{"update_subtask_state", map[string]any{"subtask_idx": 0, "state": "in_progress"}},
		{"finish_subtask", map[string]any{"subtask_idx": 0, "subtask_outcome": "metrics.csv"}},
		{"revise_current_plan", map[string]any{"subtask_idx": 2, "action": "add", "subtask": map[string]string{
			"name": "Charts", "description": "Plot the metrics", "expected_outcome": "Three charts",
		}}},
		{"finish_subtask", map[string]any{"subtask_idx": 1, "subtask_outcome": "draft.md"}},
		{"finish_subtask", map[string]any{"subtask_idx": 2, "subtask_outcome": "charts.png"}},
		{"view_subtasks", map[string]any{"subtask_idx": []int{0, 1, 2, 3}}},
		{"finish_subtask", map[string]any{"subtask_idx": 3, "subtask_outcome": "approved.pdf"}},
		{"finish_plan", map[string]any{"state": "done", "outcome": "Report delivered"}},
		{"view_historical_plans", nil},
	}
	for _, step := range steps {
		if err := call(ctx, registry, step.tool, step.args); err != nil {
			return err
		}
	}

	if persister != nil {
		if err := persister.Save(ctx, sessionID, modules); err != nil {
			return err
		}
	}
	fmt.Printf("recorded %d hints\n", history.Len())
	return nil
}

func call(ctx context.Context, registry *tools.Registry, name string, args map[string]any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}

	res, err := registry.Execute(ctx, name, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	status := "ok"
	if res.IsError {
		status = "error"
	}
	fmt.Printf("== %s (%s)\n%s\n\n", name, status, res.Content)
	return nil
}

