package garch

import "math"

// Forecast is the one-step-ahead conditional forecast of a fitted model.
// Mean drives the trading decision; Sigma is the conditional volatility,
// surfaced in artifacts only.
type Forecast struct {
	Mean  float64 `json:"mean"`
	Sigma float64 `json:"sigma"`
}

// Forecast produces the forecast for the step immediately after the window's
// final observation, from the recursion tail captured at fit time.
func (m *Model) Forecast() Forecast {
	mean := m.Mean
	for i, phi := range m.AR {
		// AR lag i+1 reads the (i+1)-th most recent observation.
		obs := m.lastObs[len(m.lastObs)-1-i]
		mean += phi * (obs - m.Mean)
	}
	for j, theta := range m.MA {
		eps := m.lastEps[len(m.lastEps)-1-j]
		mean += theta * eps
	}

	lastEps := m.lastEps[len(m.lastEps)-1]
	sigma2 := m.Omega + m.Alpha*lastEps*lastEps + m.Beta*m.lastSigma2
	return Forecast{Mean: mean, Sigma: math.Sqrt(sigma2)}
}
