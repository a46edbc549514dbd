// Package persistence defines the optional run store. Runs, their signal
// series, and their cumulative curves can be written to Postgres for later
// comparison across configurations; nothing in the engine depends on it.
package persistence

import (
	"context"
	"time"
)

// Run is one completed walk-forward run.
type Run struct {
	ID               string    `db:"id"`
	Symbol           string    `db:"symbol"`
	StartedAt        time.Time `db:"started_at"`
	WindowSize       int       `db:"window_size"`
	MaxP             int       `db:"max_p"`
	MaxQ             int       `db:"max_q"`
	Windows          int       `db:"windows"`
	Holds            int       `db:"holds"`
	StrategySharpe   float64   `db:"strategy_sharpe"`
	BenchmarkSharpe  float64   `db:"benchmark_sharpe"`
}

// SignalRow is one window's decision.
type SignalRow struct {
	RunID     string    `db:"run_id"`
	Date      time.Time `db:"date"`
	Direction int       `db:"direction"`
	P         *int      `db:"p"`
	Q         *int      `db:"q"`
	Mean      *float64  `db:"forecast_mean"`
}

// CurveRow is one date of the accumulated curves.
type CurveRow struct {
	RunID        string    `db:"run_id"`
	Date         time.Time `db:"date"`
	Strategy     float64   `db:"strategy"`
	Benchmark    float64   `db:"benchmark"`
	StrategyCum  float64   `db:"strategy_cum"`
	BenchmarkCum float64   `db:"benchmark_cum"`
}

// RunsRepo stores completed runs.
type RunsRepo interface {
	InsertRun(ctx context.Context, run Run) error
	InsertSignals(ctx context.Context, rows []SignalRow) error
	InsertCurve(ctx context.Context, rows []CurveRow) error
	GetRun(ctx context.Context, id string) (*Run, error)
}
