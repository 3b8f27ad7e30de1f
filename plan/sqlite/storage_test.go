package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
	"github.com/tailored-agentic-units/orchestra/plan"
	"github.com/tailored-agentic-units/orchestra/plan/sqlite"
)

func openStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePlan() *plan.Plan {
	p := plan.NewPlan("Report", "Write the Q3 report", "A report", []plan.SubTask{
		plan.NewSubTask("Collect", "Gather numbers", "A table"),
		plan.NewSubTask("Draft", "Write it", "A draft"),
	})
	p.Subtasks[0].Finish("table.csv")
	p.Finish(plan.StateDone, "report.pdf")
	return p
}

func TestStorage_AddGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStorage(t)
	p := samplePlan()

	require.NoError(t, s.Add(ctx, p, true))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	missing, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStorage_OverrideAndOrder(t *testing.T) {
	ctx := context.Background()
	s := openStorage(t)

	a := plan.NewPlan("a", "", "", nil)
	b := plan.NewPlan("b", "", "", nil)
	require.NoError(t, s.Add(ctx, a, false))
	require.NoError(t, s.Add(ctx, b, false))

	require.ErrorIs(t, s.Add(ctx, a, false), plan.ErrPlanExists)

	a.Name = "a2"
	require.NoError(t, s.Add(ctx, a, true))

	plans, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "a2", plans[0].Name)
	assert.Equal(t, "b", plans[1].Name)
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s := openStorage(t)
	p := samplePlan()
	require.NoError(t, s.Add(ctx, p, true))

	require.NoError(t, s.Delete(ctx, p.ID))
	require.NoError(t, s.Delete(ctx, p.ID))

	plans, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestStorage_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "plans.db")

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	p := samplePlan()
	require.NoError(t, first.Add(ctx, p, true))
	require.NoError(t, first.Close())

	second, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "report.pdf", got.Outcome)
	assert.Equal(t, "table.csv", got.Subtasks[0].Outcome)
}

func TestStorage_BacksNotebook(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	nb, err := plan.NewNotebook(config.DefaultNotebookConfig(), plan.WithStorage(plan.NewCachedStorage(s, plan.DefaultCacheExpiration, plan.DefaultCacheCleanupInterval)))
	require.NoError(t, err)

	_, err = nb.CreatePlan(ctx, "first", "d", "o", nil)
	require.NoError(t, err)
	id := nb.CurrentPlan().ID
	_, err = nb.FinishPlan(ctx, plan.StateAbandoned, "later")
	require.NoError(t, err)

	_, err = nb.CreatePlan(ctx, "second", "d", "o", nil)
	require.NoError(t, err)
	_, err = nb.RecoverHistoricalPlan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", nb.CurrentPlan().Name)

	plans, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, plan.StateAbandoned, plans[1].State)
}
