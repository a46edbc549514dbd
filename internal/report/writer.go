// Package report writes run artifacts: the signal table, the backtest
// curves, the performance summaries, and a human-readable report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/driftcast/driftcast/internal/backtest"
	"github.com/driftcast/driftcast/internal/engine"
	"github.com/driftcast/driftcast/internal/perf"
)

// Summary is the JSON artifact tying one run together.
type Summary struct {
	RunID     string        `json:"run_id"`
	Symbol    string        `json:"symbol"`
	StartedAt time.Time     `json:"started_at"`
	Windows   int           `json:"windows"`
	Holds     int           `json:"holds"`
	Strategy  *perf.Summary `json:"strategy"`
	Benchmark *perf.Summary `json:"benchmark"`
}

// Writer materializes one run's artifacts under a run-scoped directory.
type Writer struct {
	runID string
	dir   string
}

// NewWriter allocates a run id and creates <baseDir>/<run id>/.
func NewWriter(baseDir string) (*Writer, error) {
	runID := uuid.New().String()
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &Writer{runID: runID, dir: dir}, nil
}

// RunID returns the run identifier shared with persistence.
func (w *Writer) RunID() string { return w.runID }

// Dir returns the run-scoped artifact directory.
func (w *Writer) Dir() string { return w.dir }

// WriteAll writes signals.csv, curves.csv, summary.json and report.md.
func (w *Writer) WriteAll(results []engine.WindowResult, curves *backtest.Curves, summary *Summary) error {
	if err := w.writeSignals(results); err != nil {
		return err
	}
	if err := w.writeCurves(curves); err != nil {
		return err
	}
	if err := w.writeSummary(summary); err != nil {
		return err
	}
	if err := w.writeReport(summary); err != nil {
		return err
	}
	log.Info().Str("run_id", w.runID).Str("dir", w.dir).Msg("artifacts written")
	return nil
}

func (w *Writer) writeSignals(results []engine.WindowResult) error {
	var b strings.Builder
	b.WriteString("date,signal,p,q,aic,forecast_mean,forecast_sigma,hold_reason\n")
	for _, r := range results {
		p, q, aic, mean, sigma := "", "", "", "", ""
		if r.Order != nil {
			p = strconv.Itoa(r.Order.P)
			q = strconv.Itoa(r.Order.Q)
			aic = formatFloat(r.AIC)
		}
		if r.Forecast != nil {
			mean = formatFloat(r.Forecast.Mean)
			sigma = formatFloat(r.Forecast.Sigma)
		}
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s,%s,%s\n",
			r.Date.Format("2006-01-02"), r.Signal.Direction, p, q, aic, mean, sigma, r.HoldReason)
	}
	return w.writeFile("signals.csv", b.String())
}

func (w *Writer) writeCurves(curves *backtest.Curves) error {
	var b strings.Builder
	b.WriteString("date,strategy,benchmark,strategy_cum,benchmark_cum\n")
	for k := range curves.Strategy {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s\n",
			curves.Strategy[k].Date.Format("2006-01-02"),
			formatFloat(curves.Strategy[k].Value),
			formatFloat(curves.Benchmark[k].Value),
			formatFloat(curves.StrategyCum[k].Value),
			formatFloat(curves.BenchmarkCum[k].Value))
	}
	return w.writeFile("curves.csv", b.String())
}

func (w *Writer) writeSummary(summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return w.writeFile("summary.json", string(data)+"\n")
}

func (w *Writer) writeReport(s *Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Walk-Forward Run %s\n\n", w.runID)
	fmt.Fprintf(&b, "- Symbol: %s\n", s.Symbol)
	fmt.Fprintf(&b, "- Started: %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Windows: %d (holds: %d)\n\n", s.Windows, s.Holds)
	b.WriteString("| Leg | N | Mean | Stddev | Daily Sharpe | Annualized Sharpe |\n")
	b.WriteString("|-----|---|------|--------|--------------|-------------------|\n")
	for _, leg := range []struct {
		name string
		sum  *perf.Summary
	}{{"strategy", s.Strategy}, {"benchmark", s.Benchmark}} {
		if leg.sum == nil {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %.6g | %.6g | %.4f | %.4f |\n",
			leg.name, leg.sum.N, leg.sum.Mean, leg.sum.Stddev, leg.sum.DailySharpe, leg.sum.AnnualizedSharpe)
	}
	return w.writeFile("report.md", b.String())
}

func (w *Writer) writeFile(name, content string) error {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}
