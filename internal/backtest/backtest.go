// Package backtest aligns the signal series with realized returns and
// accumulates the strategy and benchmark cumulative log-return curves.
//
// Signals are dated with the trading day they apply to (the day after the
// window they were fit on), so the one-period lag of the reference design is
// realized purely by date alignment: the strategy return at date D is the
// signal dated D times the realized return at D. A signal is never applied to
// the return of a date inside its own window.
package backtest

import (
	"fmt"

	"github.com/driftcast/driftcast/internal/series"
	"github.com/driftcast/driftcast/internal/signal"
)

// Curves holds the per-period and cumulative return series of one backtest.
// All four share the same date domain: the return series from index
// windowSize onward. The first per-period value of both legs is forced to 0,
// reflecting no position entering the backtest.
type Curves struct {
	Strategy     []series.Point
	Benchmark    []series.Point
	StrategyCum  []series.Point
	BenchmarkCum []series.Point
}

// Accumulate consumes the full signal series plus the return series it was
// generated from. It validates the alignment invariants and fails fast on
// any mismatch rather than producing silently shifted curves.
func Accumulate(signals []signal.Signal, returns *series.Series, windowSize int) (*Curves, error) {
	if windowSize < 1 || windowSize >= returns.Len() {
		return nil, fmt.Errorf("backtest: window size %d out of range for series of length %d", windowSize, returns.Len())
	}
	n := returns.Len() - windowSize
	if len(signals) != n {
		return nil, fmt.Errorf("backtest: %d signals for %d forecast dates", len(signals), n)
	}

	c := &Curves{
		Strategy:     make([]series.Point, n),
		Benchmark:    make([]series.Point, n),
		StrategyCum:  make([]series.Point, n),
		BenchmarkCum: make([]series.Point, n),
	}

	stratSum, benchSum := 0.0, 0.0
	for k := 0; k < n; k++ {
		date := returns.Date(windowSize + k)
		if !signals[k].Date.Equal(date) {
			return nil, fmt.Errorf("backtest: signal %d dated %s, expected %s",
				k, signals[k].Date.Format("2006-01-02"), date.Format("2006-01-02"))
		}

		ret := returns.Value(windowSize + k)
		strat := signals[k].Direction.Value() * ret
		bench := ret
		if k == 0 {
			strat, bench = 0, 0
		}

		c.Strategy[k] = series.Point{Date: date, Value: strat}
		c.Benchmark[k] = series.Point{Date: date, Value: bench}

		stratSum += strat
		benchSum += bench
		c.StrategyCum[k] = series.Point{Date: date, Value: stratSum}
		c.BenchmarkCum[k] = series.Point{Date: date, Value: benchSum}
	}

	return c, nil
}
