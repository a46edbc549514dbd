// Package postgres implements the run store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/driftcast/driftcast/internal/persistence"
)

// Schema creates the run tables. Applied idempotently on connect.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	window_size      INT NOT NULL,
	max_p            INT NOT NULL,
	max_q            INT NOT NULL,
	windows          INT NOT NULL,
	holds            INT NOT NULL,
	strategy_sharpe  DOUBLE PRECISION NOT NULL,
	benchmark_sharpe DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS run_signals (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	date          DATE NOT NULL,
	direction     INT NOT NULL,
	p             INT,
	q             INT,
	forecast_mean DOUBLE PRECISION,
	PRIMARY KEY (run_id, date)
);
CREATE TABLE IF NOT EXISTS run_curves (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	date          DATE NOT NULL,
	strategy      DOUBLE PRECISION NOT NULL,
	benchmark     DOUBLE PRECISION NOT NULL,
	strategy_cum  DOUBLE PRECISION NOT NULL,
	benchmark_cum DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, date)
);`

// ErrDuplicateRun maps the unique-violation class.
var ErrDuplicateRun = errors.New("postgres: run already stored")

// runsRepo implements persistence.RunsRepo.
type runsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens the DSN, verifies connectivity, and ensures the schema.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (persistence.RunsRepo, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return NewRunsRepo(db, timeout), nil
}

// NewRunsRepo wraps an existing connection.
func NewRunsRepo(db *sqlx.DB, timeout time.Duration) persistence.RunsRepo {
	return &runsRepo{db: db, timeout: timeout}
}

func (r *runsRepo) InsertRun(ctx context.Context, run persistence.Run) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO runs (id, symbol, started_at, window_size, max_p, max_q, windows, holds, strategy_sharpe, benchmark_sharpe)
		VALUES (:id, :symbol, :started_at, :window_size, :max_p, :max_q, :windows, :holds, :strategy_sharpe, :benchmark_sharpe)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return mapError("insert run", err)
	}
	return nil
}

func (r *runsRepo) InsertSignals(ctx context.Context, rows []persistence.SignalRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO run_signals (run_id, date, direction, p, q, forecast_mean)
		VALUES (:run_id, :date, :direction, :p, :q, :forecast_mean)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return mapError("insert signal", err)
		}
	}
	return tx.Commit()
}

func (r *runsRepo) InsertCurve(ctx context.Context, rows []persistence.CurveRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO run_curves (run_id, date, strategy, benchmark, strategy_cum, benchmark_cum)
		VALUES (:run_id, :date, :strategy, :benchmark, :strategy_cum, :benchmark_cum)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return mapError("insert curve point", err)
		}
	}
	return tx.Commit()
}

func (r *runsRepo) GetRun(ctx context.Context, id string) (*persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var run persistence.Run
	err := r.db.GetContext(ctx, &run, `
		SELECT id, symbol, started_at, window_size, max_p, max_q, windows, holds, strategy_sharpe, benchmark_sharpe
		FROM runs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, mapError("get run", err)
	}
	return &run, nil
}

// mapError surfaces the unique-violation class and wraps everything else.
func mapError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicateRun)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
