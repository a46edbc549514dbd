package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	osignal "os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftcast/driftcast/internal/backtest"
	"github.com/driftcast/driftcast/internal/perf"
	"github.com/driftcast/driftcast/internal/report"
	sig "github.com/driftcast/driftcast/internal/signal"
)

// runBacktest reloads a signals artifact and recomputes the curves and the
// performance summaries against the configured price source, without
// re-fitting any model.
func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := osignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	returns, symbol, err := loadReturns(ctx, cfg)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("signals")
	signals, err := readSignalsArtifact(path)
	if err != nil {
		return err
	}

	curves, err := backtest.Accumulate(signals, returns, cfg.Engine.WindowSize)
	if err != nil {
		return err
	}

	start, end, err := cfg.EvalRange(curves.Strategy[0].Date, curves.Strategy[len(curves.Strategy)-1].Date)
	if err != nil {
		return err
	}

	stratPerf, err := perf.Evaluate(curves.Strategy, start, end, cfg.Eval.RiskFreeAnnual, cfg.Eval.PeriodsPerYear)
	if err != nil {
		return fmt.Errorf("strategy evaluation failed: %w", err)
	}
	benchPerf, err := perf.Evaluate(curves.Benchmark, start, end, cfg.Eval.RiskFreeAnnual, cfg.Eval.PeriodsPerYear)
	if err != nil {
		return fmt.Errorf("benchmark evaluation failed: %w", err)
	}

	holds := 0
	for _, s := range signals {
		if s.Direction == sig.Hold {
			holds++
		}
	}

	printSummary(&report.Summary{
		RunID:     "recomputed",
		Symbol:    symbol,
		StartedAt: time.Now().UTC(),
		Windows:   len(signals),
		Holds:     holds,
		Strategy:  stratPerf,
		Benchmark: benchPerf,
	}, path)
	return nil
}

// readSignalsArtifact parses the date and signal columns of a signals.csv.
func readSignalsArtifact(path string) ([]sig.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signals artifact: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	var signals []sig.Signal
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("signals artifact read failed: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "date") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("signals artifact row %d has %d fields", line, len(rec))
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("signals artifact row %d: bad date %q", line, rec[0])
		}
		dir, err := sig.Parse(rec[1])
		if err != nil {
			return nil, fmt.Errorf("signals artifact row %d: %w", line, err)
		}
		signals = append(signals, sig.Signal{Date: date, Direction: dir})
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("signals artifact %s is empty", path)
	}
	return signals, nil
}
