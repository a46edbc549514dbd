package arma

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ar1Series simulates x[t] = phi*x[t-1] + e with seeded Gaussian noise.
func ar1Series(n int, phi, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for t := 1; t < n; t++ {
		x[t] = phi*x[t-1] + sigma*rng.NormFloat64()
	}
	return x
}

func TestOrderValidate(t *testing.T) {
	assert.NoError(t, Order{P: 0, Q: 1}.Validate())
	assert.Error(t, Order{P: -1, Q: 0}.Validate())
	assert.Error(t, Order{P: 0, Q: -2}.Validate())
}

func TestOrderNumParams(t *testing.T) {
	// Coefficients plus intercept plus innovation variance.
	assert.Equal(t, 2, Order{}.NumParams())
	assert.Equal(t, 5, Order{P: 2, Q: 1}.NumParams())
}

func TestFitRecoversAR1(t *testing.T) {
	w := ar1Series(500, 0.6, 0.01, 42)
	fit, err := NewEstimator().Fit(w, Order{P: 1, Q: 0})
	require.NoError(t, err)

	require.Len(t, fit.AR, 1)
	assert.InDelta(t, 0.6, fit.AR[0], 0.15, "AR coefficient should be near the generating value")
	assert.Greater(t, fit.Sigma2, 0.0)
	assert.False(t, math.IsNaN(fit.AIC))
	assert.False(t, math.IsInf(fit.AIC, 0))
	assert.Equal(t, 2*float64(fit.Order.NumParams())-2*fit.LogLik, fit.AIC)
}

func TestFitDoesNotMutateWindow(t *testing.T) {
	w := ar1Series(300, 0.4, 0.01, 7)
	before := append([]float64(nil), w...)

	_, err := NewEstimator().Fit(w, Order{P: 1, Q: 1})
	require.NoError(t, err)
	assert.Equal(t, before, w)
}

func TestFitInsufficientData(t *testing.T) {
	w := ar1Series(10, 0.5, 0.01, 1)
	_, err := NewEstimator().Fit(w, Order{P: 4, Q: 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestFitRejectsNegativeOrder(t *testing.T) {
	w := ar1Series(100, 0.5, 0.01, 1)
	_, err := NewEstimator().Fit(w, Order{P: -1, Q: 0})
	require.Error(t, err)
}

func TestStationaryInvertible(t *testing.T) {
	assert.True(t, Stationary(nil))
	assert.True(t, Stationary([]float64{0.5}))
	assert.False(t, Stationary([]float64{1.01}))
	assert.True(t, Invertible([]float64{0.5}))
	assert.False(t, Invertible([]float64{-1.2}))
}
