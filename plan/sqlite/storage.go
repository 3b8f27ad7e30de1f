// Package sqlite archives plans in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tailored-agentic-units/orchestra/plan"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	expected_outcome TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	created_at TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL DEFAULT '',
	subtasks TEXT NOT NULL DEFAULT '[]'
);`

// Storage is a plan.Storage backed by SQLite. Plans list in the order they
// were first added; overriding a plan keeps its position.
type Storage struct {
	db   *sql.DB
	path string
}

var _ plan.Storage = (*Storage)(nil)

// Open opens or creates the database at path and ensures the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open plan database %s: %w", path, err)
	}

	// A private in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping plan database %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create plan schema: %w", err)
	}

	return &Storage{db: db, path: path}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Path() string { return s.path }

func (s *Storage) Add(ctx context.Context, p *plan.Plan, override bool) error {
	subtasks, err := json.Marshal(p.Subtasks)
	if err != nil {
		return fmt.Errorf("marshal subtasks of plan %s: %w", p.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add plan: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM plans WHERE id = ?`, p.ID).Scan(&exists)
	switch {
	case err == nil:
		if !override {
			return fmt.Errorf("%w: %s", plan.ErrPlanExists, p.ID)
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup plan %s: %w", p.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, name, description, expected_outcome, state, created_at, finished_at, outcome, subtasks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expected_outcome = excluded.expected_outcome,
			state = excluded.state,
			created_at = excluded.created_at,
			finished_at = excluded.finished_at,
			outcome = excluded.outcome,
			subtasks = excluded.subtasks`,
		p.ID, p.Name, p.Description, p.ExpectedOutcome, string(p.State),
		p.CreatedAt, p.FinishedAt, p.Outcome, string(subtasks),
	)
	if err != nil {
		return fmt.Errorf("store plan %s: %w", p.ID, err)
	}

	return tx.Commit()
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	return nil
}

const selectPlan = `SELECT id, name, description, expected_outcome, state, created_at, finished_at, outcome, subtasks FROM plans`

func (s *Storage) List(ctx context.Context) ([]*plan.Plan, error) {
	rows, err := s.db.QueryContext(ctx, selectPlan+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []*plan.Plan{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (s *Storage) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := scan(s.db.QueryRowContext(ctx, selectPlan+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*plan.Plan, error) {
	var (
		p        plan.Plan
		state    string
		subtasks string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ExpectedOutcome, &state,
		&p.CreatedAt, &p.FinishedAt, &p.Outcome, &subtasks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	p.State = plan.State(state)
	if err := json.Unmarshal([]byte(subtasks), &p.Subtasks); err != nil {
		return nil, fmt.Errorf("unmarshal subtasks of plan %s: %w", p.ID, err)
	}
	return &p, nil
}
