package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcast/driftcast/internal/algo/arma"
)

// scriptedEstimator returns a fixed AIC per order and fails everything else.
type scriptedEstimator struct {
	aic    map[arma.Order]float64
	visits []arma.Order
}

func (s *scriptedEstimator) Fit(window []float64, order arma.Order) (*arma.Fit, error) {
	s.visits = append(s.visits, order)
	aic, ok := s.aic[order]
	if !ok {
		return nil, fmt.Errorf("%w: scripted failure", arma.ErrNoConvergence)
	}
	return &arma.Fit{Order: order, AIC: aic}, nil
}

func TestNewValidatesBounds(t *testing.T) {
	est := &scriptedEstimator{}
	_, err := New(nil, 1, 1)
	assert.Error(t, err)
	_, err = New(est, -1, 2)
	assert.Error(t, err)
	_, err = New(est, 0, 0)
	assert.Error(t, err, "empty candidate grid must be rejected up front")
	_, err = New(est, 0, 1)
	assert.NoError(t, err)
}

func TestEnumerationOrderAndZeroZeroExcluded(t *testing.T) {
	est := &scriptedEstimator{aic: map[arma.Order]float64{}}
	s, err := New(est, 2, 2)
	require.NoError(t, err)

	_, err = s.Search([]float64{1, 2, 3})
	require.Error(t, err)

	want := []arma.Order{
		{P: 0, Q: 1}, {P: 0, Q: 2},
		{P: 1, Q: 0}, {P: 1, Q: 1}, {P: 1, Q: 2},
		{P: 2, Q: 0}, {P: 2, Q: 1}, {P: 2, Q: 2},
	}
	assert.Equal(t, want, est.visits, "p outer ascending, q inner ascending, (0,0) skipped")
	assert.Equal(t, want, s.Candidates())
}

func TestStrictLowestAICWins(t *testing.T) {
	est := &scriptedEstimator{aic: map[arma.Order]float64{
		{P: 0, Q: 1}: -100,
		{P: 1, Q: 0}: -250,
		{P: 1, Q: 1}: -200,
		{P: 2, Q: 2}: -249.5,
	}}
	s, _ := New(est, 2, 2)

	res, err := s.Search([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, arma.Order{P: 1, Q: 0}, res.Order)
	assert.Equal(t, -250.0, res.AIC)
	assert.Equal(t, 8, res.Tried)
	assert.Equal(t, 4, res.Failed)
}

func TestTieBreakFirstEncounteredWins(t *testing.T) {
	// (0,2) and (1,0) tie; (0,2) comes first in the p-outer/q-inner walk.
	est := &scriptedEstimator{aic: map[arma.Order]float64{
		{P: 0, Q: 2}: -300,
		{P: 1, Q: 0}: -300,
		{P: 1, Q: 1}: -300,
	}}
	s, _ := New(est, 2, 2)

	res, err := s.Search([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, arma.Order{P: 0, Q: 2}, res.Order, "strict < keeps the first-encountered order on ties")
}

func TestCandidateFailuresAreTolerated(t *testing.T) {
	// Only one candidate succeeds; everything else failing is non-fatal.
	est := &scriptedEstimator{aic: map[arma.Order]float64{
		{P: 3, Q: 2}: -10,
	}}
	s, _ := New(est, 4, 4)

	res, err := s.Search([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, arma.Order{P: 3, Q: 2}, res.Order)
	assert.Equal(t, 23, res.Failed)
}

func TestAllCandidatesFailing(t *testing.T) {
	est := &scriptedEstimator{}
	s, _ := New(est, 4, 4)

	_, err := s.Search([]float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCandidates))
}
