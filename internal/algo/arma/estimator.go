// Package arma estimates conditional-mean ARMA(p,q) models on stationary
// return windows by conditional-sum-of-squares Gaussian maximum likelihood.
// It backs the order search; the joint conditional-variance fit lives in the
// garch package.
package arma

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Order is the (p, q) order pair of a conditional-mean model. The differencing
// order is fixed at zero throughout: the engine operates on log returns that
// are assumed already stationary.
type Order struct {
	P int `json:"p"`
	Q int `json:"q"`
}

func (o Order) String() string { return fmt.Sprintf("(%d,%d)", o.P, o.Q) }

// Validate rejects negative components.
func (o Order) Validate() error {
	if o.P < 0 || o.Q < 0 {
		return fmt.Errorf("order %s has negative component", o)
	}
	return nil
}

// NumParams returns the estimated-parameter count used for the information
// criterion: AR and MA coefficients, the intercept, and the innovation
// variance.
func (o Order) NumParams() int { return o.P + o.Q + 2 }

// Estimation failure classes. The order search treats any of them as a failed
// candidate; none of them aborts a window.
var (
	ErrInsufficientData = errors.New("arma: window too short for requested order")
	ErrNoConvergence    = errors.New("arma: optimizer did not converge")
	ErrNonStationaryAR  = errors.New("arma: non-stationary AR part")
	ErrNonInvertibleMA  = errors.New("arma: non-invertible MA part")
)

// Fit is a converged conditional-mean fit.
type Fit struct {
	Order  Order   `json:"order"`
	Mean   float64 `json:"mean"`
	AR     []float64 `json:"ar,omitempty"`
	MA     []float64 `json:"ma,omitempty"`
	Sigma2 float64 `json:"sigma2"`
	LogLik float64 `json:"log_lik"`
	AIC    float64 `json:"aic"`
}

// Estimator fits ARMA models. A zero-value Estimator is not usable; construct
// with NewEstimator. Each Fit call carries its own optimizer state, so a
// single Estimator is safe for concurrent use across windows.
type Estimator struct {
	maxIter int
	funcTol float64
}

// NewEstimator returns an estimator with the default optimizer budget.
func NewEstimator() *Estimator {
	return &Estimator{maxIter: 2000, funcTol: 1e-10}
}

// Fit estimates an ARMA model of the given order on the window. The window is
// never modified. Errors mark the candidate as failed; they carry one of the
// package sentinel errors.
func (e *Estimator) Fit(window []float64, order Order) (*Fit, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	n := len(window)
	if n < order.NumParams()+10 || n <= order.P+order.Q {
		return nil, fmt.Errorf("%w: n=%d order=%s", ErrInsufficientData, n, order)
	}

	obj := cssObjective{w: window, p: order.P, q: order.Q}
	x0 := make([]float64, 1+order.P+order.Q)
	x0[0] = stat.Mean(window, nil)

	problem := optimize.Problem{Func: obj.negLogLik}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{Absolute: e.funcTol, Iterations: 100},
	}
	settings.MajorIterations = e.maxIter

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil || result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, fmt.Errorf("%w: order=%s", ErrNoConvergence, order)
	}
	if !optimizerConverged(result.Status) {
		return nil, fmt.Errorf("%w: order=%s status=%s", ErrNoConvergence, order, result.Status)
	}

	mean := result.X[0]
	ar := append([]float64(nil), result.X[1:1+order.P]...)
	ma := append([]float64(nil), result.X[1+order.P:]...)
	if !Stationary(ar) {
		return nil, fmt.Errorf("%w: order=%s", ErrNonStationaryAR, order)
	}
	if !Invertible(ma) {
		return nil, fmt.Errorf("%w: order=%s", ErrNonInvertibleMA, order)
	}

	logLik := -result.F
	sigma2 := obj.sigma2(result.X)
	if sigma2 <= 0 || math.IsNaN(sigma2) {
		return nil, fmt.Errorf("%w: degenerate innovation variance", ErrNoConvergence)
	}

	return &Fit{
		Order:  order,
		Mean:   mean,
		AR:     ar,
		MA:     ma,
		Sigma2: sigma2,
		LogLik: logLik,
		AIC:    2*float64(order.NumParams()) - 2*logLik,
	}, nil
}

// optimizerConverged reports whether the termination status indicates a
// converged solution rather than a budget or method failure.
func optimizerConverged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// cssObjective is the conditional-sum-of-squares Gaussian negative
// log-likelihood with the innovation variance concentrated out. State is
// per-call; the struct only captures the immutable window and orders.
type cssObjective struct {
	w []float64
	p int
	q int
}

// residuals runs the ARMA recursion conditioning on the first p observations
// with zero pre-sample innovations.
func (o cssObjective) residuals(x []float64, eps []float64) float64 {
	mean := x[0]
	phi := x[1 : 1+o.p]
	theta := x[1+o.p:]

	css := 0.0
	for t := o.p; t < len(o.w); t++ {
		r := o.w[t] - mean
		for i := 0; i < o.p; i++ {
			r -= phi[i] * (o.w[t-i-1] - mean)
		}
		for j := 0; j < o.q; j++ {
			if t-j-1 >= o.p {
				r -= theta[j] * eps[t-j-1]
			}
		}
		eps[t] = r
		css += r * r
	}
	return css
}

func (o cssObjective) negLogLik(x []float64) float64 {
	eps := make([]float64, len(o.w))
	css := o.residuals(x, eps)
	neff := float64(len(o.w) - o.p)
	if css <= 0 || math.IsNaN(css) || math.IsInf(css, 0) {
		return math.Inf(1)
	}
	s2 := css / neff
	return 0.5 * neff * (math.Log(2*math.Pi) + math.Log(s2) + 1)
}

func (o cssObjective) sigma2(x []float64) float64 {
	eps := make([]float64, len(o.w))
	css := o.residuals(x, eps)
	return css / float64(len(o.w)-o.p)
}
