// Package store keeps a history of chart evaluations in SQLite
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Run is one stored evaluation.  Violations maps a result key such as rule2 or rule5_points to the flagged
// sample indices.
type Run struct {
	ID         string
	ConfigID   string
	CreatedAt  time.Time
	N          int
	Mean       float64
	StdDev     float64
	Violations map[string][]int
}

// Violation is a single flagged sample of a stored run
type Violation struct {
	Rule  string
	Index int
}

// Store is a SQLite backed run history
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.  Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// one connection so that :memory: databases and pragmas apply to every query
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores a run and its violations in one transaction.  Saving a run ID twice fails.
func (s *Store) Save(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, config_id, created_at, n, mean, stddev) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.ConfigID, r.CreatedAt.UnixNano(), r.N, nullable(r.Mean), nullable(r.StdDev),
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO violations (run_id, rule, idx) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare violation insert: %w", err)
	}
	defer stmt.Close()
	for rule, idx := range r.Violations {
		for _, i := range idx {
			if _, err := stmt.ExecContext(ctx, r.ID, rule, i); err != nil {
				return fmt.Errorf("failed to insert violation %s[%d]: %w", rule, i, err)
			}
		}
	}
	return tx.Commit()
}

// Runs returns up to limit runs, most recent first, without their violations.  A limit <= 0 returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, config_id, created_at, n, mean, stddev FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r            Run
			created      int64
			mean, stddev sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.ConfigID, &created, &r.N, &mean, &stddev); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created)
		r.Mean = fromNullable(mean)
		r.StdDev = fromNullable(stddev)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Violations returns every flagged sample of a run ordered by rule then index
func (s *Store) Violations(ctx context.Context, runID string) ([]Violation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule, idx FROM violations WHERE run_id = ? ORDER BY rule, idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.Rule, &v.Index); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// NaN statistics are stored as NULL
func nullable(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNullable(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
