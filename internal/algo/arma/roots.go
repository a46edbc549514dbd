package arma

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// polyStable reports whether the lag polynomial 1 - c1*z - ... - ck*z^k has
// all roots outside the unit circle, checked through the spectral radius of
// the companion matrix. Coefficients follow the AR sign convention; negate MA
// coefficients before calling.
func polyStable(coef []float64) bool {
	k := len(coef)
	if k == 0 {
		return true
	}
	m := mat.NewDense(k, k, nil)
	for j := 0; j < k; j++ {
		m.Set(0, j, coef[j])
	}
	for i := 1; i < k; i++ {
		m.Set(i, i-1, 1)
	}
	var eig mat.Eigen
	if !eig.Factorize(m, mat.EigenNone) {
		return false
	}
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) >= 1-1e-8 {
			return false
		}
	}
	return true
}

// Stationary reports whether the AR coefficient vector describes a stationary
// process.
func Stationary(phi []float64) bool {
	return polyStable(phi)
}

// Invertible reports whether the MA coefficient vector describes an invertible
// process.
func Invertible(theta []float64) bool {
	neg := make([]float64, len(theta))
	for i, t := range theta {
		neg[i] = -t
	}
	return polyStable(neg)
}
