package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/bayesrate/internal/domain/types"
	"github.com/okian/bayesrate/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    variant TEXT NOT NULL,
    topology TEXT NOT NULL,
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    records INTEGER NOT NULL,
    chains INTEGER NOT NULL,
    adapt INTEGER NOT NULL,
    iterations INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    model TEXT NOT NULL,
    image TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_variant ON runs(variant, started_at);

CREATE TABLE IF NOT EXISTS parameters (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    parameter TEXT NOT NULL,
    label TEXT NOT NULL,
    mass REAL NOT NULL,
    mode REAL NOT NULL,
    center REAL NOT NULL,
    width REAL NOT NULL,
    mean REAL NOT NULL,
    sd REAL NOT NULL,
    rhat REAL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS intervals (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    lo REAL NOT NULL,
    hi REAL NOT NULL,
    PRIMARY KEY (run_id, position, seq),
    FOREIGN KEY (run_id, position) REFERENCES parameters(run_id, position) ON DELETE CASCADE
);`

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	logger      logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the archive at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: 5 * time.Second,
		logger:      logger.Get().Named("archive"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchive, dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrArchive, path, err)
	}
	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)
	s.db = db

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrArchive, p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: schema: %w", ErrArchive, err)
	}
	s.logger.Debug(ctx, "archive opened", logger.String("path", path))
	return s, nil
}

// SaveRun writes the run, its parameters and their intervals in one
// transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *types.RunSummary) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrArchive, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
        (id, variant, topology, started_at, duration_ms, records, chains, adapt, iterations, seed, model, image)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Variant, run.Topology, run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(), run.Records, run.Chains, run.Adapt, run.Iterations, run.Seed,
		run.Model, run.Image)
	if err != nil {
		return fmt.Errorf("%w: insert run %s: %w", ErrArchive, run.RunID, err)
	}

	for pos, p := range run.Parameters {
		var rhat sql.NullFloat64
		if p.RHat != nil {
			rhat = sql.NullFloat64{Float64: *p.RHat, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO parameters
            (run_id, position, parameter, label, mass, mode, center, width, mean, sd, rhat)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, pos, p.Parameter, p.Label, p.Mass, p.Mode, p.Center, p.Width, p.Mean, p.SD, rhat)
		if err != nil {
			return fmt.Errorf("%w: insert %s: %w", ErrArchive, p.Parameter, err)
		}
		for seq, iv := range p.Intervals {
			_, err = tx.ExecContext(ctx, `INSERT INTO intervals (run_id, position, seq, lo, hi) VALUES (?, ?, ?, ?, ?)`,
				run.RunID, pos, seq, iv.Lo, iv.Hi)
			if err != nil {
				return fmt.Errorf("%w: insert interval %s/%d: %w", ErrArchive, p.Parameter, seq, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrArchive, err)
	}
	s.logger.Info(ctx, "run archived",
		logger.String("run_id", run.RunID),
		logger.String("variant", run.Variant),
		logger.Int("parameters", len(run.Parameters)),
	)
	return nil
}

// Runs lists archived runs newest first.
func (s *SQLiteStore) Runs(ctx context.Context, variant string, limit int) ([]Run, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, variant, topology, started_at, duration_ms, records, chains, iterations, seed, image
        FROM runs WHERE (? = '' OR variant = ?) ORDER BY started_at DESC, id LIMIT ?`, variant, variant, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", ErrArchive, err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &r.Variant, &r.Topology, &started, &ms, &r.Records, &r.Chains, &r.Iterations, &r.Seed, &r.Image); err != nil {
			return nil, fmt.Errorf("%w: scan run: %w", ErrArchive, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("%w: run %s started_at: %w", ErrArchive, r.ID, err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", ErrArchive, err)
	}
	return out, nil
}

// Parameters returns a run's summaries in processing order.
func (s *SQLiteStore) Parameters(ctx context.Context, runID string) ([]types.ParameterSummary, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrArchive, runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT position, parameter, label, mass, mode, center, width, mean, sd, rhat
        FROM parameters WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: parameters of %s: %w", ErrArchive, runID, err)
	}
	var (
		out       []types.ParameterSummary
		positions = make(map[int]int)
	)
	for rows.Next() {
		var (
			p    types.ParameterSummary
			pos  int
			rhat sql.NullFloat64
		)
		if err := rows.Scan(&pos, &p.Parameter, &p.Label, &p.Mass, &p.Mode, &p.Center, &p.Width, &p.Mean, &p.SD, &rhat); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan parameter: %w", ErrArchive, err)
		}
		if rhat.Valid {
			v := rhat.Float64
			p.RHat = &v
		}
		positions[pos] = len(out)
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: parameters of %s: %w", ErrArchive, runID, err)
	}

	ivRows, err := s.db.QueryContext(ctx, `SELECT position, lo, hi FROM intervals WHERE run_id = ? ORDER BY position, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: intervals of %s: %w", ErrArchive, runID, err)
	}
	defer ivRows.Close()
	for ivRows.Next() {
		var (
			pos int
			iv  types.Interval
		)
		if err := ivRows.Scan(&pos, &iv.Lo, &iv.Hi); err != nil {
			return nil, fmt.Errorf("%w: scan interval: %w", ErrArchive, err)
		}
		i := positions[pos]
		out[i].Intervals = append(out[i].Intervals, iv)
	}
	if err := ivRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: intervals of %s: %w", ErrArchive, runID, err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
