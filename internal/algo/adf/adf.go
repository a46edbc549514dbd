// Package adf implements the augmented Dickey-Fuller unit-root test used as a
// one-time stationarity precondition on the return series. It is not part of
// the forecasting loop. The regression includes a constant and no trend; lag
// depth defaults to the Schwert rule; critical values use the MacKinnon
// response-surface approximation for the constant-only case.
package adf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Result is the outcome of one test.
type Result struct {
	Stat     float64            `json:"stat"` // t-statistic on the lagged level
	Lags     int                `json:"lags"`
	N        int                `json:"n"` // effective regression observations
	Critical map[string]float64 `json:"critical"`
}

// Rejected reports whether the unit-root null is rejected at the given level
// ("1%", "5%" or "10%"). More negative statistics reject.
func (r *Result) Rejected(level string) bool {
	cv, ok := r.Critical[level]
	if !ok {
		return false
	}
	return r.Stat < cv
}

// SchwertLag is the default lag depth floor(12*(n/100)^0.25).
func SchwertLag(n int) int {
	return int(12 * math.Pow(float64(n)/100, 0.25))
}

// Test runs the ADF regression on y with the given lag depth; lags < 0 means
// the Schwert default.
//
// The regression is dy[t] = a + rho*y[t-1] + sum_i d_i*dy[t-i] + e; the
// reported statistic is the OLS t-ratio on rho.
func Test(y []float64, lags int) (*Result, error) {
	if lags < 0 {
		lags = SchwertLag(len(y))
	}
	n := len(y)
	rows := n - 1 - lags
	cols := 2 + lags
	if rows <= cols {
		return nil, fmt.Errorf("adf: %d observations too few for %d lags", n, lags)
	}

	dy := make([]float64, n-1)
	for t := 1; t < n; t++ {
		dy[t-1] = y[t] - y[t-1]
	}

	X := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + lags // index into dy; level index is t+lags in y terms
		X.Set(r, 0, 1)
		X.Set(r, 1, y[t])
		for i := 1; i <= lags; i++ {
			X.Set(r, 1+i, dy[t-i])
		}
		b.SetVec(r, dy[t])
	}

	var qr mat.QR
	qr.Factorize(X)
	beta := mat.NewVecDense(cols, nil)
	if err := qr.SolveVecTo(beta, false, b); err != nil {
		return nil, fmt.Errorf("adf: regression is singular: %w", err)
	}

	// Residual variance and the (X'X)^-1 diagonal entry for rho.
	var fitted mat.VecDense
	fitted.MulVec(X, beta)
	rss := 0.0
	for r := 0; r < rows; r++ {
		e := b.AtVec(r) - fitted.AtVec(r)
		rss += e * e
	}
	s2 := rss / float64(rows-cols)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("adf: X'X not invertible: %w", err)
	}
	se := math.Sqrt(s2 * inv.At(1, 1))
	if se == 0 || math.IsNaN(se) {
		return nil, fmt.Errorf("adf: degenerate standard error")
	}

	return &Result{
		Stat:     beta.AtVec(1) / se,
		Lags:     lags,
		N:        rows,
		Critical: criticalValues(rows),
	}, nil
}

// criticalValues evaluates the MacKinnon response surface for the
// constant-no-trend case at the effective sample size.
func criticalValues(n int) map[string]float64 {
	fn := float64(n)
	surface := map[string][3]float64{
		"1%":  {-3.43035, -6.5393, -16.786},
		"5%":  {-2.86154, -2.8903, -4.234},
		"10%": {-2.56677, -1.5384, -2.809},
	}
	out := make(map[string]float64, len(surface))
	for level, c := range surface {
		out[level] = c[0] + c[1]/fn + c[2]/(fn*fn)
	}
	return out
}
