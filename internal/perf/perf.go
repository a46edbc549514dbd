// Package perf computes risk-adjusted performance statistics over a dated
// sub-range of a per-period return series.
package perf

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/driftcast/driftcast/internal/series"
)

// Summary is the annualized-Sharpe report for one return series over one
// evaluation sub-range.
type Summary struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	N                int       `json:"n"`
	Mean             float64   `json:"mean"`
	Stddev           float64   `json:"stddev"`
	DailySharpe      float64   `json:"daily_sharpe"`
	AnnualizedSharpe float64   `json:"annualized_sharpe"`
}

// sentinelFloat renders IEEE infinities and NaN as JSON strings; encoding/json
// rejects them as bare numbers.
type sentinelFloat float64

func (f sentinelFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"+inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	case math.IsNaN(v):
		return []byte(`"nan"`), nil
	}
	return json.Marshal(v)
}

// MarshalJSON keeps summaries encodable when a zero-variance sub-range drove
// the Sharpe ratio to an infinite sentinel.
func (s *Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start            time.Time     `json:"start"`
		End              time.Time     `json:"end"`
		N                int           `json:"n"`
		Mean             float64       `json:"mean"`
		Stddev           float64       `json:"stddev"`
		DailySharpe      sentinelFloat `json:"daily_sharpe"`
		AnnualizedSharpe sentinelFloat `json:"annualized_sharpe"`
	}{s.Start, s.End, s.N, s.Mean, s.Stddev, sentinelFloat(s.DailySharpe), sentinelFloat(s.AnnualizedSharpe)})
}

// Evaluate filters the per-period returns to [start, end] inclusive and
// computes mean, sample standard deviation, and the daily and annualized
// Sharpe ratios against riskFreeAnnual/periodsPerYear.
//
// Zero-variance sub-ranges are well-defined rather than a fault: daily Sharpe
// is +Inf when the mean excess return is positive, -Inf when negative, and 0
// when the excess is exactly 0. The annualized value carries the same sign.
// NaN observations are ignored.
func Evaluate(returns []series.Point, start, end time.Time, riskFreeAnnual float64, periodsPerYear int) (*Summary, error) {
	if periodsPerYear <= 0 {
		return nil, fmt.Errorf("perf: periods per year must be positive, got %d", periodsPerYear)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("perf: evaluation range ends %s before it starts %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var vals []float64
	for _, p := range returns {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		if math.IsNaN(p.Value) {
			continue
		}
		vals = append(vals, p.Value)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("perf: no observations in [%s, %s]",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	mean := stat.Mean(vals, nil)
	sd := 0.0
	if len(vals) > 1 {
		sd = stat.StdDev(vals, nil)
	}

	dailyRf := riskFreeAnnual / float64(periodsPerYear)
	excess := mean - dailyRf

	var daily float64
	switch {
	case sd > 0:
		daily = excess / sd
	case excess > 0:
		daily = math.Inf(1)
	case excess < 0:
		daily = math.Inf(-1)
	default:
		daily = 0
	}

	return &Summary{
		Start:            start,
		End:              end,
		N:                len(vals),
		Mean:             mean,
		Stddev:           sd,
		DailySharpe:      daily,
		AnnualizedSharpe: daily * math.Sqrt(float64(periodsPerYear)),
	}, nil
}
