package perf

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcast/driftcast/internal/series"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func points(values ...float64) []series.Point {
	out := make([]series.Point, len(values))
	for i, v := range values {
		out[i] = series.Point{Date: day(i), Value: v}
	}
	return out
}

// Hand-computed 3-day slice: mean, sample stddev, and both Sharpe ratios to
// 1e-6.
func TestHandComputedSharpe(t *testing.T) {
	rets := points(0.01, 0.02, -0.01)
	s, err := Evaluate(rets, day(0), day(2), 0.02, 252)
	require.NoError(t, err)

	mean := (0.01 + 0.02 - 0.01) / 3 // 0.00666666...
	// Sample variance: ((0.01-m)^2 + (0.02-m)^2 + (-0.01-m)^2) / 2
	variance := (math.Pow(0.01-mean, 2) + math.Pow(0.02-mean, 2) + math.Pow(-0.01-mean, 2)) / 2
	sd := math.Sqrt(variance)
	dailyRf := 0.02 / 252
	daily := (mean - dailyRf) / sd

	assert.Equal(t, 3, s.N)
	assert.InDelta(t, mean, s.Mean, 1e-6)
	assert.InDelta(t, sd, s.Stddev, 1e-6)
	assert.InDelta(t, daily, s.DailySharpe, 1e-6)
	assert.InDelta(t, daily*math.Sqrt(252), s.AnnualizedSharpe, 1e-6)
}

func TestDateRangeFilterInclusive(t *testing.T) {
	rets := points(1, 2, 3, 4, 5)
	s, err := Evaluate(rets, day(1), day(3), 0, 252)
	require.NoError(t, err)
	assert.Equal(t, 3, s.N)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
}

// An all-zero sub-range must not crash: the sentinel is signed infinity (or 0
// when the excess return is exactly 0).
func TestZeroVarianceSentinel(t *testing.T) {
	zeros := points(0, 0, 0)

	s, err := Evaluate(zeros, day(0), day(2), 0.02, 252)
	require.NoError(t, err)
	assert.True(t, math.IsInf(s.DailySharpe, -1), "positive risk-free over zero returns is -Inf")
	assert.True(t, math.IsInf(s.AnnualizedSharpe, -1))

	s, err = Evaluate(zeros, day(0), day(2), 0, 252)
	require.NoError(t, err)
	assert.Zero(t, s.DailySharpe, "zero excess over zero variance is 0")

	s, err = Evaluate(points(0.01, 0.01, 0.01), day(0), day(2), 0, 252)
	require.NoError(t, err)
	assert.True(t, math.IsInf(s.DailySharpe, 1))
}

func TestNaNObservationsIgnored(t *testing.T) {
	rets := points(0.01, math.NaN(), 0.03)
	s, err := Evaluate(rets, day(0), day(2), 0, 252)
	require.NoError(t, err)
	assert.Equal(t, 2, s.N)
	assert.InDelta(t, 0.02, s.Mean, 1e-12)
}

func TestEvaluateValidation(t *testing.T) {
	rets := points(0.01, 0.02)
	_, err := Evaluate(rets, day(1), day(0), 0, 252)
	assert.Error(t, err, "inverted range")
	_, err = Evaluate(rets, day(5), day(9), 0, 252)
	assert.Error(t, err, "empty range")
	_, err = Evaluate(rets, day(0), day(1), 0, 0)
	assert.Error(t, err, "zero periods per year")
}

func TestSummaryJSONWithInfiniteSharpe(t *testing.T) {
	s, err := Evaluate(points(0, 0, 0), day(0), day(2), 0.02, 252)
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err, "infinite sentinels must stay encodable")
	assert.Contains(t, string(data), `"-inf"`)
}
