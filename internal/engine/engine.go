// Package engine drives the walk-forward loop: for each rolling window of the
// return series it runs the order search, the joint conditional fit, the
// one-step forecast, and the signal mapping, producing exactly one dated
// signal per window. Windows are independent and run on a worker pool; each
// worker writes to its own slot of a pre-sized result slice, so no lock is
// needed on the results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftcast/driftcast/internal/algo/arma"
	"github.com/driftcast/driftcast/internal/algo/garch"
	"github.com/driftcast/driftcast/internal/search"
	"github.com/driftcast/driftcast/internal/series"
	"github.com/driftcast/driftcast/internal/signal"
)

// OrderSearcher finds the best conditional-mean order on a window.
// *search.Searcher is the production implementation.
type OrderSearcher interface {
	Search(window []float64) (*search.Result, error)
}

// Model is the fitted-model capability the runner needs: a one-step-ahead
// forecast.
type Model interface {
	Forecast() garch.Forecast
}

// Fitter estimates the joint conditional mean/variance model for a chosen
// order. GarchFitter is the production implementation.
type Fitter interface {
	Fit(window []float64, order arma.Order) (Model, error)
}

// GarchFitter adapts *garch.Estimator to the Fitter interface.
type GarchFitter struct {
	Est *garch.Estimator
}

func (f GarchFitter) Fit(window []float64, order arma.Order) (Model, error) {
	m, err := f.Est.Fit(window, order)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Observer receives completed window results as they finish, out of order.
// Implementations must be safe for concurrent calls.
type Observer interface {
	WindowDone(res WindowResult)
}

// Hold reasons recorded on degraded windows.
const (
	ReasonSearchFailed = "search_failed"
	ReasonFitFailed    = "fit_failed"
)

// Config bounds the walk-forward run.
type Config struct {
	WindowSize int
	MaxP       int
	MaxQ       int
	Workers    int // 0 means runtime.NumCPU()
}

// Validate applies the fail-fast input checks: a malformed configuration must
// abort the run before any window is fit.
func (c Config) Validate(seriesLen int) error {
	if c.WindowSize < 2 {
		return fmt.Errorf("engine: window size %d too small", c.WindowSize)
	}
	if c.MaxP < 0 || c.MaxQ < 0 {
		return fmt.Errorf("engine: negative order bound (maxP=%d maxQ=%d)", c.MaxP, c.MaxQ)
	}
	if c.Workers < 0 {
		return fmt.Errorf("engine: negative worker count %d", c.Workers)
	}
	if seriesLen < c.WindowSize+1 {
		return fmt.Errorf("engine: series length %d leaves no forecast beyond window size %d", seriesLen, c.WindowSize)
	}
	return nil
}

// WindowResult is the outcome of one window's search-fit-forecast-signal pass.
type WindowResult struct {
	Index  int           `json:"index"`
	Date   time.Time     `json:"date"`
	Signal signal.Signal `json:"signal"`

	// Populated only when the window converged.
	Order    *arma.Order     `json:"order,omitempty"`
	AIC      float64         `json:"aic,omitempty"`
	Forecast *garch.Forecast `json:"forecast,omitempty"`

	// Populated only when the window degraded to Hold.
	HoldReason string `json:"hold_reason,omitempty"`

	// Wall time of the window's search-fit-forecast pass.
	Elapsed time.Duration `json:"elapsed"`
}

// Runner owns one walk-forward configuration. The searcher and fitter carry
// no per-window state, so a single Runner serves concurrent windows.
type Runner struct {
	cfg      Config
	searcher OrderSearcher
	fitter   Fitter
	observer Observer
}

// New builds a Runner. observer may be nil.
func New(cfg Config, searcher OrderSearcher, fitter Fitter, observer Observer) (*Runner, error) {
	if searcher == nil || fitter == nil {
		return nil, fmt.Errorf("engine: nil searcher or fitter")
	}
	return &Runner{cfg: cfg, searcher: searcher, fitter: fitter, observer: observer}, nil
}

// Run walks every window start offset i = 0 … len-W-1, producing len-W
// results in window order. Per-window failures degrade that window to Hold;
// only invalid input or context cancellation abort the run.
func (r *Runner) Run(ctx context.Context, returns *series.Series) ([]WindowResult, error) {
	if err := r.cfg.Validate(returns.Len()); err != nil {
		return nil, err
	}

	foreLength := returns.Len() - r.cfg.WindowSize
	results := make([]WindowResult, foreLength)

	workers := r.cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > foreLength {
		workers = foreLength
	}

	log.Info().
		Int("windows", foreLength).
		Int("window_size", r.cfg.WindowSize).
		Int("workers", workers).
		Msg("walk-forward run starting")

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				started := time.Now()
				results[i] = r.window(returns, i)
				results[i].Elapsed = time.Since(started)
				if r.observer != nil {
					r.observer.WindowDone(results[i])
				}
			}
		}()
	}

	var runErr error
feed:
	for i := 0; i < foreLength; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		return nil, fmt.Errorf("engine: run aborted: %w", runErr)
	}
	return results, nil
}

// window runs one index's full pass. The slice handed to the searcher and
// fitter is a fresh copy; nothing here can outlive or mutate shared state.
func (r *Runner) window(returns *series.Series, i int) WindowResult {
	date := returns.Date(i + r.cfg.WindowSize)
	res := WindowResult{Index: i, Date: date}

	w, err := returns.Window(i, r.cfg.WindowSize)
	if err != nil {
		// Unreachable after Validate; treated as a degraded window anyway.
		res.Signal = signal.Signal{Date: date, Direction: signal.Hold}
		res.HoldReason = ReasonSearchFailed
		return res
	}

	best, err := r.searcher.Search(w)
	if err != nil {
		if !errors.Is(err, search.ErrNoCandidates) {
			log.Warn().Int("window", i).Err(err).Msg("order search error")
		}
		res.Signal = signal.Signal{Date: date, Direction: signal.Hold}
		res.HoldReason = ReasonSearchFailed
		return res
	}

	model, err := r.fitter.Fit(w, best.Order)
	if err != nil {
		res.Signal = signal.Signal{Date: date, Direction: signal.Hold}
		res.HoldReason = ReasonFitFailed
		return res
	}

	fc := model.Forecast()
	res.Order = &best.Order
	res.AIC = best.AIC
	res.Forecast = &fc
	res.Signal = signal.Signal{Date: date, Direction: signal.FromForecast(fc.Mean)}
	return res
}

// Signals extracts the dated signal series from window results, in window
// order.
func Signals(results []WindowResult) []signal.Signal {
	out := make([]signal.Signal, len(results))
	for i, r := range results {
		out[i] = r.Signal
	}
	return out
}
