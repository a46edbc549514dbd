package garch

import "math"

// sgedLogDensity evaluates the log density of the standardized skew
// generalized-error distribution at z, with skew xi > 0 and shape nu > 0.
// The skewing follows Fernandez-Steel with the usual reparameterization to
// zero mean and unit variance, so z is a standardized innovation.
func sgedLogDensity(z, xi, nu float64) float64 {
	lg1, _ := math.Lgamma(1 / nu)
	lg2, _ := math.Lgamma(2 / nu)
	lg3, _ := math.Lgamma(3 / nu)

	// lambda scales the base GED to unit variance.
	logLambda := 0.5 * (-2/nu*math.Ln2 + lg1 - lg3)
	lambda := math.Exp(logLambda)

	// First absolute moment of the unit-variance GED.
	m1 := math.Exp(math.Ln2/nu + logLambda + lg2 - lg1)

	muXi := m1 * (xi - 1/xi)
	sigma2Xi := (1-m1*m1)*(xi*xi+1/(xi*xi)) + 2*m1*m1 - 1
	if sigma2Xi <= 0 {
		return math.Inf(-1)
	}
	sigmaXi := math.Sqrt(sigma2Xi)

	w := sigmaXi*z + muXi
	scale := 1.0
	if w >= 0 {
		scale = xi
	} else {
		scale = 1 / xi
	}
	u := w / scale

	logGED := math.Log(nu) - 0.5*math.Pow(math.Abs(u/lambda), nu) -
		logLambda - (1+1/nu)*math.Ln2 - lg1

	return math.Log(2/(xi+1/xi)) + logGED + math.Log(sigmaXi)
}
