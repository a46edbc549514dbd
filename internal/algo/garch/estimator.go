// Package garch fits the joint conditional model used for forecasting: an
// ARMA(p,q) conditional mean with a GARCH(1,1) conditional variance and
// skew-GED innovations, estimated by maximum likelihood through a hybrid
// optimizer strategy. Any estimation error or non-converged termination is
// reported as ErrNonConverged; the caller downgrades the window to a Hold
// decision rather than trading on an unstable fit.
package garch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/driftcast/driftcast/internal/algo/arma"
)

// ErrNonConverged marks a failed joint fit. Estimation errors and estimation
// warnings are deliberately collapsed into this one class.
var ErrNonConverged = errors.New("garch: joint fit did not converge")

// shapeFloor keeps the GED shape away from the degenerate small-nu region.
const shapeFloor = 0.1

// Model is a fitted joint conditional mean/variance model. It is produced
// fresh per window, consumed immediately by the forecaster, and never shared
// across windows.
type Model struct {
	Order arma.Order

	Mean  float64
	AR    []float64
	MA    []float64
	Omega float64
	Alpha float64
	Beta  float64
	Skew  float64
	Shape float64

	LogLik float64

	// Recursion tail, retained for forecasting.
	lastObs    []float64 // most recent max(p,1) observations, oldest first
	lastEps    []float64 // most recent max(q,1) innovations, oldest first
	lastSigma2 float64
}

// Estimator fits joint models. Each Fit call uses independently initialized
// optimizer state, so one Estimator may be shared by concurrent windows.
type Estimator struct {
	maxIter int
}

// NewEstimator returns an estimator with the default optimizer budget.
func NewEstimator() *Estimator {
	return &Estimator{maxIter: 4000}
}

// Fit estimates the joint model of the given mean order on the window. The
// window is copied before use and never modified. All failure modes wrap
// ErrNonConverged.
func (e *Estimator) Fit(window []float64, order arma.Order) (*Model, error) {
	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonConverged, err)
	}
	n := len(window)
	if n < order.P+order.Q+30 {
		return nil, fmt.Errorf("%w: window too short (n=%d)", ErrNonConverged, n)
	}

	obj := jointObjective{w: append([]float64(nil), window...), p: order.P, q: order.Q}

	result, err := e.solve(obj, e.startingPoint(obj.w, order))
	if err != nil {
		return nil, err
	}

	pr := decodeParams(result.X, order)
	if !pr.valid() {
		return nil, fmt.Errorf("%w: parameters outside admissible region", ErrNonConverged)
	}

	model := &Model{
		Order:  order,
		Mean:   pr.mean,
		AR:     pr.ar,
		MA:     pr.ma,
		Omega:  pr.omega,
		Alpha:  pr.alpha,
		Beta:   pr.beta,
		Skew:   pr.skew,
		Shape:  pr.shape,
		LogLik: -result.F,
	}
	if err := model.captureState(obj, pr); err != nil {
		return nil, err
	}
	return model, nil
}

// solve runs the hybrid strategy: Nelder-Mead from the data-driven start, a
// BFGS polish of its solution, then Nelder-Mead from a perturbed start. The
// first converged, finite attempt wins.
func (e *Estimator) solve(obj jointObjective, x0 []float64) (*optimize.Result, error) {
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{Absolute: 1e-9, Iterations: 200},
	}
	settings.MajorIterations = e.maxIter

	problem := optimize.Problem{Func: obj.negLogLik}

	nm, nmErr := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if attemptOK(nm, nmErr) {
		if pol, polErr := optimize.Minimize(problem, nm.X, settings, &optimize.BFGS{}); attemptOK(pol, polErr) && pol.F <= nm.F {
			return pol, nil
		}
		return nm, nil
	}

	perturbed := append([]float64(nil), x0...)
	for i := range perturbed {
		if i%2 == 0 {
			perturbed[i] += 0.1
		} else {
			perturbed[i] -= 0.1
		}
	}
	if retry, retryErr := optimize.Minimize(problem, perturbed, settings, &optimize.NelderMead{}); attemptOK(retry, retryErr) {
		return retry, nil
	}

	return nil, fmt.Errorf("%w: all solver attempts failed", ErrNonConverged)
}

func attemptOK(r *optimize.Result, err error) bool {
	if err != nil || r == nil {
		return false
	}
	if math.IsNaN(r.F) || math.IsInf(r.F, 0) {
		return false
	}
	switch r.Status {
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

// startingPoint builds the transformed initial vector: sample mean, zero ARMA
// coefficients, omega at a tenth of the sample variance, alpha 0.05 and beta
// 0.90 on the persistence simplex, symmetric skew, near-Gaussian shape.
func (e *Estimator) startingPoint(w []float64, order arma.Order) []float64 {
	variance := stat.Variance(w, nil)
	if variance <= 0 || math.IsNaN(variance) {
		variance = 1e-6
	}

	x := make([]float64, numParams(order))
	x[0] = stat.Mean(w, nil)
	base := 1 + order.P + order.Q
	x[base+0] = math.Log(0.1 * variance)
	x[base+1] = 0                       // alpha share equals the free share
	x[base+2] = math.Log(0.90 / 0.05)   // beta share
	x[base+3] = 0                       // skew = 1
	x[base+4] = math.Log(2 - shapeFloor) // shape = 2
	return x
}

func numParams(order arma.Order) int { return 1 + order.P + order.Q + 5 }

// params is the decoded, constraint-satisfying parameter set.
type params struct {
	mean  float64
	ar    []float64
	ma    []float64
	omega float64
	alpha float64
	beta  float64
	skew  float64
	shape float64
}

// decodeParams maps the unconstrained optimizer vector into the admissible
// region: omega > 0 by exponentiation, (alpha, beta) on the open simplex so
// alpha + beta < 1, skew > 0, shape > shapeFloor.
func decodeParams(x []float64, order arma.Order) params {
	base := 1 + order.P + order.Q
	ea := math.Exp(x[base+1])
	eb := math.Exp(x[base+2])
	den := 1 + ea + eb
	return params{
		mean:  x[0],
		ar:    append([]float64(nil), x[1:1+order.P]...),
		ma:    append([]float64(nil), x[1+order.P:base]...),
		omega: math.Exp(x[base+0]),
		alpha: ea / den,
		beta:  eb / den,
		skew:  math.Exp(x[base+3]),
		shape: shapeFloor + math.Exp(x[base+4]),
	}
}

func (p params) valid() bool {
	if !(p.omega > 0) || math.IsInf(p.omega, 0) {
		return false
	}
	if p.alpha < 0 || p.beta < 0 || p.alpha+p.beta >= 1 {
		return false
	}
	if !(p.skew > 0) || !(p.shape > shapeFloor/2) {
		return false
	}
	return arma.Stationary(p.ar) && arma.Invertible(p.ma)
}

// jointObjective is the negative log-likelihood of the joint model under the
// conditioning convention shared with the arma package: the recursion starts
// at t = p with zero pre-sample innovations, and the variance recursion is
// seeded with the sample variance of the mean residuals.
type jointObjective struct {
	w []float64
	p int
	q int
}

// meanResiduals runs the ARMA recursion, filling eps and returning the
// conditional sum of squares.
func (o jointObjective) meanResiduals(pr params, eps []float64) float64 {
	css := 0.0
	for t := o.p; t < len(o.w); t++ {
		r := o.w[t] - pr.mean
		for i := 0; i < o.p; i++ {
			r -= pr.ar[i] * (o.w[t-i-1] - pr.mean)
		}
		for j := 0; j < o.q; j++ {
			if t-j-1 >= o.p {
				r -= pr.ma[j] * eps[t-j-1]
			}
		}
		eps[t] = r
		css += r * r
	}
	return css
}

func (o jointObjective) negLogLik(x []float64) float64 {
	pr := decodeParams(x, arma.Order{P: o.p, Q: o.q})
	if pr.alpha+pr.beta >= 1-1e-10 || pr.shape > 100 || pr.skew > 100 || pr.skew < 1e-2 {
		return math.Inf(1)
	}

	n := len(o.w)
	neff := n - o.p
	if neff <= 0 {
		return math.Inf(1)
	}
	eps := make([]float64, n)
	css := o.meanResiduals(pr, eps)
	initVar := css / float64(neff)
	if initVar <= 0 || math.IsNaN(initVar) || math.IsInf(initVar, 0) {
		return math.Inf(1)
	}

	nll := 0.0
	sigma2 := initVar
	for t := o.p; t < n; t++ {
		if t > o.p {
			sigma2 = pr.omega + pr.alpha*eps[t-1]*eps[t-1] + pr.beta*sigma2
		}
		if sigma2 <= 0 || math.IsNaN(sigma2) || math.IsInf(sigma2, 0) {
			return math.Inf(1)
		}
		z := eps[t] / math.Sqrt(sigma2)
		ld := sgedLogDensity(z, pr.skew, pr.shape)
		if math.IsNaN(ld) || math.IsInf(ld, 1) {
			return math.Inf(1)
		}
		nll -= ld - 0.5*math.Log(sigma2)
	}
	if math.IsNaN(nll) {
		return math.Inf(1)
	}
	return nll
}

// captureState reruns the fitted recursion once to retain the tail needed for
// one-step forecasting.
func (m *Model) captureState(obj jointObjective, pr params) error {
	n := len(obj.w)
	eps := make([]float64, n)
	css := obj.meanResiduals(pr, eps)
	sigma2 := css / float64(n-obj.p)
	for t := obj.p + 1; t < n; t++ {
		sigma2 = pr.omega + pr.alpha*eps[t-1]*eps[t-1] + pr.beta*sigma2
	}
	if sigma2 <= 0 || math.IsNaN(sigma2) {
		return fmt.Errorf("%w: degenerate terminal variance", ErrNonConverged)
	}

	keepObs := m.Order.P
	if keepObs < 1 {
		keepObs = 1
	}
	keepEps := m.Order.Q
	if keepEps < 1 {
		keepEps = 1
	}
	m.lastObs = append([]float64(nil), obj.w[n-keepObs:]...)
	m.lastEps = append([]float64(nil), eps[n-keepEps:]...)
	m.lastSigma2 = sigma2
	return nil
}
