package store

import (
	"context"
	"fmt"
	"time"
)

// Run is one invocation of the assembly pipeline.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Seed       uint64
	Blueprints int
	TestsBuilt int
	Status     string

	Tests []GeneratedTest
}

// GeneratedTest is one assembled test within a run.
type GeneratedTest struct {
	ID            int64
	RunID         int64
	TestID        string
	InstanceID    string
	Status        string
	QuestionCount int
	Shortfall     int
	GeneratedAt   time.Time
}

// AppendRun records a finished run and its generated tests in one
// transaction.
func (s *Store) AppendRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, seed, blueprints, tests_built, status)
		 VALUES (?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(), int64(run.Seed), run.Blueprints, run.TestsBuilt, run.Status)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	run.ID = runID

	for i := range run.Tests {
		gt := &run.Tests[i]
		gt.RunID = runID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO generated_tests
			 (run_id, test_id, instance_id, status, question_count, shortfall, generated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, gt.TestID, gt.InstanceID, gt.Status,
			gt.QuestionCount, gt.Shortfall, gt.GeneratedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert test %s: %w", gt.TestID, err)
		}
		if gt.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("test id: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means
// no limit. Generated tests are not populated; use RunTests.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, seed, blueprints, tests_built, status
	      FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var seed int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &seed, &r.Blueprints, &r.TestsBuilt, &r.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Seed = uint64(seed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunTests returns the generated tests of one run in insertion order.
func (s *Store) RunTests(ctx context.Context, runID int64) ([]GeneratedTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, test_id, instance_id, status, question_count, shortfall, generated_at
		 FROM generated_tests WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tests: %w", err)
	}
	defer rows.Close()

	var tests []GeneratedTest
	for rows.Next() {
		var gt GeneratedTest
		if err := rows.Scan(&gt.ID, &gt.RunID, &gt.TestID, &gt.InstanceID,
			&gt.Status, &gt.QuestionCount, &gt.Shortfall, &gt.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		tests = append(tests, gt)
	}
	return tests, rows.Err()
}

// Purge deletes all run history.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs"); err != nil {
		return fmt.Errorf("purge runs: %w", err)
	}
	return nil
}
