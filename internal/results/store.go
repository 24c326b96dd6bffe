// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results persists evaluation runs in an append-only SQLite
// database and exports them for the statistical reporting layer.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/beaconloc/internal/harness"
	"github.com/pdiddy/beaconloc/pkg/types"
)

const dbFile = "results.db"

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store manages the results SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Run summarises one stored evaluation.
type Run struct {
	ID           int64     `json:"id" yaml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	Anchors      int       `json:"anchors" yaml:"anchors"`
	Measurements int       `json:"measurements" yaml:"measurements"`
	Records      int       `json:"records" yaml:"records"`
}

// NewStore opens or creates the results database at
// cfg.ResultsDir/results.db and creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.ResultsDir == "" {
		return nil, fmt.Errorf("results directory not set")
	}
	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	dbPath := filepath.Join(cfg.ResultsDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.ResultsDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the results directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			anchors INTEGER NOT NULL,
			measurements INTEGER NOT NULL,
			config TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS error_records (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			measurement_id TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			rho0 REAL NOT NULL,
			alpha REAL NOT NULL,
			est_x REAL NOT NULL,
			est_y REAL NOT NULL,
			truth_x REAL NOT NULL,
			truth_y REAL NOT NULL,
			error REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS surface_cells (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			algorithm TEXT NOT NULL,
			rho0 REAL NOT NULL,
			alpha REAL NOT NULL,
			mean_error REAL NOT NULL,
			median_error REAL NOT NULL,
			p90_error REAL NOT NULL,
			samples INTEGER NOT NULL,
			excluded INTEGER NOT NULL,
			fallbacks INTEGER NOT NULL,
			degenerate INTEGER NOT NULL,
			unreliable INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS best_parameters (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			algorithm TEXT NOT NULL,
			rho0 REAL NOT NULL,
			alpha REAL NOT NULL,
			mean_error REAL NOT NULL,
			samples INTEGER NOT NULL,
			unreliable INTEGER NOT NULL,
			PRIMARY KEY (run_id, algorithm)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_error_records_algorithm ON error_records(run_id, algorithm)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun appends a report as a new run and returns its id. Existing runs
// are never modified.
func (s *Store) SaveRun(ctx context.Context, r *harness.Report) (int64, error) {
	cfgJSON, err := json.Marshal(r.Config)
	if err != nil {
		return 0, fmt.Errorf("marshaling config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, anchors, measurements, config) VALUES (?, ?, ?, ?)`,
		created.Format(time.RFC3339Nano), r.Anchors, r.Measurements, string(cfgJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO error_records (run_id, seq, measurement_id, algorithm, rho0, alpha, est_x, est_y, truth_x, truth_y, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing record insert: %w", err)
	}
	defer recStmt.Close()
	for i, rec := range r.Records {
		_, err := recStmt.ExecContext(ctx,
			runID, i, rec.MeasurementID, string(rec.Algorithm), rec.Params.Rho0, rec.Params.Alpha,
			rec.Estimate.X, rec.Estimate.Y, rec.Truth.X, rec.Truth.Y, rec.Error,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", rec.MeasurementID, err)
		}
	}

	cellStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO surface_cells (run_id, seq, algorithm, rho0, alpha, mean_error, median_error, p90_error, samples, excluded, fallbacks, degenerate, unreliable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing surface insert: %w", err)
	}
	defer cellStmt.Close()
	for i, c := range r.Surfaces {
		_, err := cellStmt.ExecContext(ctx,
			runID, i, string(c.Algorithm), c.Rho0, c.Alpha, c.MeanError, c.MedianError, c.P90Error,
			c.Samples, c.Excluded, c.Fallbacks, c.Degenerate, c.Unreliable,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting surface cell: %w", err)
		}
	}

	for _, b := range r.Best {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO best_parameters (run_id, algorithm, rho0, alpha, mean_error, samples, unreliable)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, string(b.Algorithm), b.Params.Rho0, b.Params.Alpha, b.MeanError, b.Samples, b.Unreliable,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting best parameters for %s: %w", b.Algorithm, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.created_at, r.anchors, r.measurements,
			(SELECT count(*) FROM error_records e WHERE e.run_id = r.id)
		 FROM runs r ORDER BY r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &created, &run.Anchors, &run.Measurements, &run.Records); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the id of the most recent run.
func (s *Store) LatestRun(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT max(id) FROM runs`).Scan(&id); err != nil {
		return 0, fmt.Errorf("querying latest run: %w", err)
	}
	if !id.Valid {
		return 0, ErrRunNotFound
	}
	return id.Int64, nil
}

// Config returns the pipeline configuration recorded with a run.
func (s *Store) Config(ctx context.Context, runID int64) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM runs WHERE id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return cfg, fmt.Errorf("querying run %d: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config of run %d: %w", runID, err)
	}
	return cfg, nil
}

// ErrorRecords returns the error records of a run in insertion order. An
// empty alg returns every algorithm.
func (s *Store) ErrorRecords(ctx context.Context, runID int64, alg types.Algorithm) ([]types.ErrorRecord, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT measurement_id, algorithm, rho0, alpha, est_x, est_y, truth_x, truth_y, error
		 FROM error_records WHERE run_id = ? AND (? = '' OR algorithm = ?) ORDER BY seq`,
		runID, string(alg), string(alg))
	if err != nil {
		return nil, fmt.Errorf("querying error records: %w", err)
	}
	defer rows.Close()

	var out []types.ErrorRecord
	for rows.Next() {
		var rec types.ErrorRecord
		var a string
		if err := rows.Scan(&rec.MeasurementID, &a, &rec.Params.Rho0, &rec.Params.Alpha,
			&rec.Estimate.X, &rec.Estimate.Y, &rec.Truth.X, &rec.Truth.Y, &rec.Error); err != nil {
			return nil, fmt.Errorf("scanning error record: %w", err)
		}
		rec.Algorithm = types.Algorithm(a)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Surface returns the surface rows of a run in insertion order. An empty
// alg returns every algorithm.
func (s *Store) Surface(ctx context.Context, runID int64, alg types.Algorithm) ([]harness.SurfaceRow, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT algorithm, rho0, alpha, mean_error, median_error, p90_error, samples, excluded, fallbacks, degenerate, unreliable
		 FROM surface_cells WHERE run_id = ? AND (? = '' OR algorithm = ?) ORDER BY seq`,
		runID, string(alg), string(alg))
	if err != nil {
		return nil, fmt.Errorf("querying surface: %w", err)
	}
	defer rows.Close()

	var out []harness.SurfaceRow
	for rows.Next() {
		var r harness.SurfaceRow
		var a string
		if err := rows.Scan(&a, &r.Rho0, &r.Alpha, &r.MeanError, &r.MedianError, &r.P90Error,
			&r.Samples, &r.Excluded, &r.Fallbacks, &r.Degenerate, &r.Unreliable); err != nil {
			return nil, fmt.Errorf("scanning surface cell: %w", err)
		}
		r.Algorithm = types.Algorithm(a)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Best returns the selected parameters of a run.
func (s *Store) Best(ctx context.Context, runID int64) ([]types.BestParameters, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT algorithm, rho0, alpha, mean_error, samples, unreliable
		 FROM best_parameters WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying best parameters: %w", err)
	}
	defer rows.Close()

	var out []types.BestParameters
	for rows.Next() {
		var b types.BestParameters
		var a string
		if err := rows.Scan(&a, &b.Params.Rho0, &b.Params.Alpha, &b.MeanError, &b.Samples, &b.Unreliable); err != nil {
			return nil, fmt.Errorf("scanning best parameters: %w", err)
		}
		b.Algorithm = types.Algorithm(a)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) checkRun(ctx context.Context, runID int64) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return fmt.Errorf("querying run %d: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}
