// Package search implements the exhaustive conditional-mean order search: it
// evaluates every candidate (p,q) up to the configured bounds on a single
// window and keeps the one with the lowest Akaike Information Criterion among
// fits that succeeded. A failed candidate is ineligible, not merely worse.
package search

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/driftcast/driftcast/internal/algo/arma"
)

// MeanEstimator is the conditional-mean fitting capability the search drives.
// *arma.Estimator is the production implementation.
type MeanEstimator interface {
	Fit(window []float64, order arma.Order) (*arma.Fit, error)
}

// ErrNoCandidates marks a window where every candidate order failed to fit.
// The caller degrades the window to a Hold decision; nothing is retried.
var ErrNoCandidates = errors.New("search: no candidate order fit successfully")

// Result is the winning candidate of one window's search.
type Result struct {
	Order arma.Order
	AIC   float64
	Fit   *arma.Fit

	// Candidate bookkeeping, surfaced in diagnostics and metrics.
	Tried  int
	Failed int
}

// Searcher runs the grid search. It holds no per-window state and is safe for
// concurrent use across windows.
type Searcher struct {
	est  MeanEstimator
	maxP int
	maxQ int
}

// New validates the order bounds and returns a Searcher. Bounds of (0,0) are
// rejected: the (0,0) candidate is excluded from the grid, so such a search
// could never succeed.
func New(est MeanEstimator, maxP, maxQ int) (*Searcher, error) {
	if est == nil {
		return nil, fmt.Errorf("search: nil estimator")
	}
	if maxP < 0 || maxQ < 0 {
		return nil, fmt.Errorf("search: negative order bound (maxP=%d maxQ=%d)", maxP, maxQ)
	}
	if maxP == 0 && maxQ == 0 {
		return nil, fmt.Errorf("search: order bounds (0,0) leave an empty candidate grid")
	}
	return &Searcher{est: est, maxP: maxP, maxQ: maxQ}, nil
}

// Search evaluates candidates with p ascending in the outer loop and q
// ascending in the inner loop, skipping (0,0). Comparison uses strict <, so
// the first-encountered order wins ties. Candidate failures are tolerated;
// only a fully failed grid returns ErrNoCandidates.
func (s *Searcher) Search(window []float64) (*Result, error) {
	var best *Result
	tried, failed := 0, 0

	for p := 0; p <= s.maxP; p++ {
		for q := 0; q <= s.maxQ; q++ {
			if p == 0 && q == 0 {
				continue
			}
			order := arma.Order{P: p, Q: q}
			tried++

			fit, err := s.est.Fit(window, order)
			if err != nil {
				failed++
				log.Trace().Str("order", order.String()).Err(err).Msg("order candidate failed")
				continue
			}
			if best == nil || fit.AIC < best.AIC {
				best = &Result{Order: order, AIC: fit.AIC, Fit: fit}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: %d candidates tried", ErrNoCandidates, tried)
	}
	best.Tried = tried
	best.Failed = failed
	return best, nil
}

// Candidates returns the enumeration the search walks, in search order.
// The one-window diagnostic command uses it to print the full AIC table.
func (s *Searcher) Candidates() []arma.Order {
	out := make([]arma.Order, 0, (s.maxP+1)*(s.maxQ+1)-1)
	for p := 0; p <= s.maxP; p++ {
		for q := 0; q <= s.maxQ; q++ {
			if p == 0 && q == 0 {
				continue
			}
			out = append(out, arma.Order{P: p, Q: q})
		}
	}
	return out
}
