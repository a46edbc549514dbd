package main

import (
	"context"
	"fmt"
	"os"
	osignal "os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/driftcast/driftcast/internal/algo/adf"
	"github.com/driftcast/driftcast/internal/algo/arma"
	"github.com/driftcast/driftcast/internal/algo/garch"
	"github.com/driftcast/driftcast/internal/backtest"
	"github.com/driftcast/driftcast/internal/config"
	"github.com/driftcast/driftcast/internal/data"
	"github.com/driftcast/driftcast/internal/engine"
	httpmetrics "github.com/driftcast/driftcast/internal/interfaces/http"
	dlog "github.com/driftcast/driftcast/internal/log"
	"github.com/driftcast/driftcast/internal/perf"
	"github.com/driftcast/driftcast/internal/persistence"
	"github.com/driftcast/driftcast/internal/persistence/postgres"
	"github.com/driftcast/driftcast/internal/report"
	"github.com/driftcast/driftcast/internal/search"
	"github.com/driftcast/driftcast/internal/series"
	sig "github.com/driftcast/driftcast/internal/signal"
)

// loadConfig reads the config file named by the persistent flag and applies
// the command's data-source and engine overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if csv, _ := cmd.Flags().GetString("csv"); csv != "" {
		cfg.Data.CSVPath = csv
		cfg.Data.StooqSymbol = ""
	}
	if symbol, _ := cmd.Flags().GetString("symbol"); symbol != "" {
		cfg.Data.StooqSymbol = symbol
		cfg.Data.CSVPath = ""
	}
	if from, ok := dateFlag(cmd.Flags(), "from"); ok {
		cfg.Data.From = from.Format("2006-01-02")
	}
	if to, ok := dateFlag(cmd.Flags(), "to"); ok {
		cfg.Data.To = to.Format("2006-01-02")
	}
	if start, ok := dateFlag(cmd.Flags(), "start"); ok {
		cfg.Eval.Start = start.Format("2006-01-02")
	}
	if end, ok := dateFlag(cmd.Flags(), "end"); ok {
		cfg.Eval.End = end.Format("2006-01-02")
	}
	if cmd.Flags().Lookup("workers") != nil {
		if workers, _ := cmd.Flags().GetInt("workers"); workers >= 0 {
			cfg.Engine.Workers = workers
		}
	}
	if cmd.Flags().Lookup("out") != nil {
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			cfg.Output.Dir = out
		}
	}
	return cfg, nil
}

// buildProvider assembles the provider chain: source, guard (remote sources
// only), optional Redis cache.
func buildProvider(cfg *config.Config) (data.Provider, string, error) {
	var provider data.Provider
	var symbol string

	switch {
	case cfg.Data.CSVPath != "":
		provider = &data.CSVProvider{Path: cfg.Data.CSVPath}
		symbol = strings.TrimSuffix(filepath.Base(cfg.Data.CSVPath), filepath.Ext(cfg.Data.CSVPath))
	case cfg.Data.StooqSymbol != "":
		provider = data.NewGuardedProvider("stooq", data.NewStooqProvider(), 1.0, 2)
		symbol = cfg.Data.StooqSymbol
	default:
		return nil, "", fmt.Errorf("no data source configured: set data.csv_path or data.stooq_symbol")
	}

	if cfg.Cache.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr})
		provider = data.NewCache(provider, client, cfg.Cache.TTL())
		log.Info().Str("addr", cfg.Cache.Addr).Msg("price cache enabled")
	}
	return provider, symbol, nil
}

// loadReturns fetches prices through the provider chain and converts them to
// the daily log-return series.
func loadReturns(ctx context.Context, cfg *config.Config) (*series.Series, string, error) {
	provider, symbol, err := buildProvider(cfg)
	if err != nil {
		return nil, "", err
	}

	from := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if cfg.Data.From != "" {
		from, _ = time.Parse("2006-01-02", cfg.Data.From)
	}
	if cfg.Data.To != "" {
		to, _ = time.Parse("2006-01-02", cfg.Data.To)
	}

	prices, err := provider.DailyCloses(ctx, symbol, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("price fetch failed: %w", err)
	}
	log.Info().Str("symbol", symbol).Int("points", len(prices)).Msg("prices loaded")

	returns, err := series.FromPrices(prices)
	if err != nil {
		return nil, "", fmt.Errorf("return series construction failed: %w", err)
	}
	return returns, symbol, nil
}

// runObserver fans window completions out to metrics and the progress bar.
type runObserver struct {
	metrics  *httpmetrics.MetricsRegistry
	progress *dlog.ProgressIndicator
}

func (o *runObserver) WindowDone(res engine.WindowResult) {
	o.metrics.WindowDone(res)
	o.progress.Increment()
}

func runRun(cmd *cobra.Command, args []string) error {
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

	// One-time stationarity precondition; not part of the forecasting loop.
	adfRes, err := adf.Test(returns.Values(), -1)
	if err != nil {
		return fmt.Errorf("stationarity check failed: %w", err)
	}
	rejected := adfRes.Rejected("5%")
	log.Info().
		Float64("stat", adfRes.Stat).
		Int("lags", adfRes.Lags).
		Bool("unit_root_rejected_5pct", rejected).
		Msg("ADF stationarity check")
	if strict, _ := cmd.Flags().GetBool("strict-stationarity"); strict && !rejected {
		return fmt.Errorf("series failed stationarity precondition: ADF stat %.4f did not reject at 5%%", adfRes.Stat)
	}

	searcher, err := search.New(arma.NewEstimator(), cfg.Engine.MaxP, cfg.Engine.MaxQ)
	if err != nil {
		return err
	}

	progressMode := dlog.ModeAuto
	if raw, _ := cmd.Flags().GetString("progress"); raw != "" {
		if progressMode, err = dlog.ParseMode(raw); err != nil {
			return err
		}
	}

	metrics := httpmetrics.NewMetricsRegistry()
	metrics.RunsTotal.Inc()

	foreLength := returns.Len() - cfg.Engine.WindowSize
	progress := dlog.NewProgressIndicator("walk-forward", foreLength, progressMode, term.IsTerminal(int(os.Stderr.Fd())))

	runner, err := engine.New(engine.Config{
		WindowSize: cfg.Engine.WindowSize,
		MaxP:       cfg.Engine.MaxP,
		MaxQ:       cfg.Engine.MaxQ,
		Workers:    cfg.Engine.Workers,
	}, searcher, engine.GarchFitter{Est: garch.NewEstimator()}, &runObserver{metrics: metrics, progress: progress})
	if err != nil {
		return err
	}

	startedAt := time.Now().UTC()
	results, err := runner.Run(ctx, returns)
	if err != nil {
		return err
	}
	progress.Finish()

	holds := 0
	for _, r := range results {
		if r.Signal.Direction == sig.Hold {
			holds++
		}
	}

	curves, err := backtest.Accumulate(engine.Signals(results), returns, cfg.Engine.WindowSize)
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

	writer, err := report.NewWriter(cfg.Output.Dir)
	if err != nil {
		return err
	}
	summary := &report.Summary{
		RunID:     writer.RunID(),
		Symbol:    symbol,
		StartedAt: startedAt,
		Windows:   len(results),
		Holds:     holds,
		Strategy:  stratPerf,
		Benchmark: benchPerf,
	}
	if err := writer.WriteAll(results, curves, summary); err != nil {
		return err
	}

	if cfg.Postgres.DSN != "" {
		if err := persistRun(ctx, cfg, summary, results, curves); err != nil {
			log.Warn().Err(err).Msg("run persistence failed")
		}
	}

	printSummary(summary, writer.Dir())
	return nil
}

func persistRun(ctx context.Context, cfg *config.Config, summary *report.Summary, results []engine.WindowResult, curves *backtest.Curves) error {
	repo, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.Timeout())
	if err != nil {
		return err
	}

	run := persistence.Run{
		ID:              summary.RunID,
		Symbol:          summary.Symbol,
		StartedAt:       summary.StartedAt,
		WindowSize:      cfg.Engine.WindowSize,
		MaxP:            cfg.Engine.MaxP,
		MaxQ:            cfg.Engine.MaxQ,
		Windows:         summary.Windows,
		Holds:           summary.Holds,
		StrategySharpe:  summary.Strategy.AnnualizedSharpe,
		BenchmarkSharpe: summary.Benchmark.AnnualizedSharpe,
	}
	if err := repo.InsertRun(ctx, run); err != nil {
		return err
	}

	sigRows := make([]persistence.SignalRow, len(results))
	for i, r := range results {
		row := persistence.SignalRow{RunID: run.ID, Date: r.Date, Direction: int(r.Signal.Direction)}
		if r.Order != nil {
			p, q := r.Order.P, r.Order.Q
			row.P, row.Q = &p, &q
		}
		if r.Forecast != nil {
			mean := r.Forecast.Mean
			row.Mean = &mean
		}
		sigRows[i] = row
	}
	if err := repo.InsertSignals(ctx, sigRows); err != nil {
		return err
	}

	curveRows := make([]persistence.CurveRow, len(curves.Strategy))
	for k := range curves.Strategy {
		curveRows[k] = persistence.CurveRow{
			RunID:        run.ID,
			Date:         curves.Strategy[k].Date,
			Strategy:     curves.Strategy[k].Value,
			Benchmark:    curves.Benchmark[k].Value,
			StrategyCum:  curves.StrategyCum[k].Value,
			BenchmarkCum: curves.BenchmarkCum[k].Value,
		}
	}
	if err := repo.InsertCurve(ctx, curveRows); err != nil {
		return err
	}

	log.Info().Str("run_id", run.ID).Msg("run persisted")
	return nil
}

func printSummary(s *report.Summary, dir string) {
	fmt.Printf("\nRun %s (%s): %d windows, %d holds\n", s.RunID, s.Symbol, s.Windows, s.Holds)
	fmt.Printf("%-10s %6s %12s %12s %8s %8s\n", "leg", "n", "mean", "stddev", "daily", "annual")
	for _, leg := range []struct {
		name string
		sum  *perf.Summary
	}{{"strategy", s.Strategy}, {"benchmark", s.Benchmark}} {
		fmt.Printf("%-10s %6d %12.6g %12.6g %8.4f %8.4f\n",
			leg.name, leg.sum.N, leg.sum.Mean, leg.sum.Stddev, leg.sum.DailySharpe, leg.sum.AnnualizedSharpe)
	}
	fmt.Printf("\nArtifacts: %s\n", dir)
}
