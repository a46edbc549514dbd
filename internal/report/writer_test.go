package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcast/driftcast/internal/algo/arma"
	"github.com/driftcast/driftcast/internal/algo/garch"
	"github.com/driftcast/driftcast/internal/backtest"
	"github.com/driftcast/driftcast/internal/engine"
	"github.com/driftcast/driftcast/internal/perf"
	"github.com/driftcast/driftcast/internal/series"
	"github.com/driftcast/driftcast/internal/signal"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func sampleArtifacts() ([]engine.WindowResult, *backtest.Curves, *Summary) {
	order := arma.Order{P: 1, Q: 0}
	fc := garch.Forecast{Mean: 0.002, Sigma: 0.01}
	results := []engine.WindowResult{
		{Index: 0, Date: day(0), Signal: signal.Signal{Date: day(0), Direction: signal.Buy}, Order: &order, AIC: -1234.5, Forecast: &fc},
		{Index: 1, Date: day(1), Signal: signal.Signal{Date: day(1), Direction: signal.Hold}, HoldReason: engine.ReasonFitFailed},
	}
	curves := &backtest.Curves{
		Strategy:     []series.Point{{Date: day(0)}, {Date: day(1), Value: 0.002}},
		Benchmark:    []series.Point{{Date: day(0)}, {Date: day(1), Value: 0.002}},
		StrategyCum:  []series.Point{{Date: day(0)}, {Date: day(1), Value: 0.002}},
		BenchmarkCum: []series.Point{{Date: day(0)}, {Date: day(1), Value: 0.002}},
	}
	summary := &Summary{
		Symbol:    "spy.us",
		StartedAt: day(10),
		Windows:   2,
		Holds:     1,
		Strategy:  &perf.Summary{N: 2, Mean: 0.001, Stddev: 0.0005, DailySharpe: 1.84, AnnualizedSharpe: 29.2},
		Benchmark: &perf.Summary{N: 2, Mean: 0.001, Stddev: 0.0005, DailySharpe: 1.84, AnnualizedSharpe: 29.2},
	}
	return results, curves, summary
}

func TestWriterProducesAllArtifacts(t *testing.T) {
	base := t.TempDir()
	w, err := NewWriter(base)
	require.NoError(t, err)

	_, err = uuid.Parse(w.RunID())
	require.NoError(t, err, "run id must be a uuid")
	assert.Equal(t, filepath.Join(base, w.RunID()), w.Dir())

	results, curves, summary := sampleArtifacts()
	summary.RunID = w.RunID()
	require.NoError(t, w.WriteAll(results, curves, summary))

	for _, name := range []string{"signals.csv", "curves.csv", "summary.json", "report.md"} {
		_, err := os.Stat(filepath.Join(w.Dir(), name))
		assert.NoError(t, err, name)
	}
}

func TestSignalsArtifactShape(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	results, curves, summary := sampleArtifacts()
	require.NoError(t, w.WriteAll(results, curves, summary))

	data, err := os.ReadFile(filepath.Join(w.Dir(), "signals.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,signal,p,q,aic,forecast_mean,forecast_sigma,hold_reason", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,buy,1,0,"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-01-02,hold,,,,,,"+engine.ReasonFitFailed))
}

func TestSummaryArtifactRoundTrips(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	results, curves, summary := sampleArtifacts()
	summary.RunID = w.RunID()
	require.NoError(t, w.WriteAll(results, curves, summary))

	data, err := os.ReadFile(filepath.Join(w.Dir(), "summary.json"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, w.RunID(), decoded["run_id"])
	assert.Equal(t, "spy.us", decoded["symbol"])
	assert.Equal(t, float64(2), decoded["windows"])
}

func TestCurvesArtifactShape(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	results, curves, summary := sampleArtifacts()
	require.NoError(t, w.WriteAll(results, curves, summary))

	data, err := os.ReadFile(filepath.Join(w.Dir(), "curves.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,strategy,benchmark,strategy_cum,benchmark_cum", lines[0])
	assert.Equal(t, "2024-01-01,0,0,0,0", lines[1])
}
