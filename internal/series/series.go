package series

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is a single daily observation of an instrument's adjusted close.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Point is a single dated value in a return or curve series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an ordered sequence of (date, value) pairs with strictly
// increasing dates. It is immutable once constructed; the engine treats it as
// shared read-only state across workers.
type Series struct {
	points []Point
}

// New builds a Series from points, rejecting out-of-order or duplicate dates.
func New(points []Point) (*Series, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return nil, fmt.Errorf("series dates must be strictly increasing: %s followed by %s at index %d",
				points[i-1].Date.Format("2006-01-02"), points[i].Date.Format("2006-01-02"), i)
		}
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Series{points: cp}, nil
}

// FromPrices converts an adjusted-close price series into a daily log-return
// series. The first return is forced to 0 rather than left undefined.
func FromPrices(prices []PricePoint) (*Series, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("price series is empty")
	}
	points := make([]Point, len(prices))
	for i, p := range prices {
		if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			return nil, fmt.Errorf("invalid close %.6f on %s", p.Close, p.Date.Format("2006-01-02"))
		}
		points[i] = Point{Date: p.Date}
		if i > 0 {
			points[i].Value = math.Log(p.Close) - math.Log(prices[i-1].Close)
		}
	}
	return New(points)
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.points) }

// Date returns the date at index i.
func (s *Series) Date(i int) time.Time { return s.points[i].Date }

// Value returns the value at index i.
func (s *Series) Value(i int) float64 { return s.points[i].Value }

// Points returns the underlying observations. Callers must not modify the
// returned slice.
func (s *Series) Points() []Point { return s.points }

// Values returns all values in order. Callers must not modify the returned
// slice.
func (s *Series) Values() []float64 {
	vals := make([]float64, len(s.points))
	for i, p := range s.points {
		vals[i] = p.Value
	}
	return vals
}

// Window returns the contiguous value slice [start, start+size). The returned
// slice aliases no internal state and is safe to hand to a fitter.
func (s *Series) Window(start, size int) ([]float64, error) {
	if start < 0 || size <= 0 || start+size > len(s.points) {
		return nil, fmt.Errorf("window [%d,%d) out of range for series of length %d", start, start+size, len(s.points))
	}
	w := make([]float64, size)
	for i := 0; i < size; i++ {
		w[i] = s.points[start+i].Value
	}
	return w, nil
}

// Between returns the sub-series with dates in [start, end] inclusive.
func (s *Series) Between(start, end time.Time) *Series {
	var pts []Point
	for _, p := range s.points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		pts = append(pts, p)
	}
	return &Series{points: pts}
}

// IndexOf returns the index of the exact date, or -1 when absent.
func (s *Series) IndexOf(date time.Time) int {
	lo, hi := 0, len(s.points)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case s.points[mid].Date.Equal(date):
			return mid
		case s.points[mid].Date.Before(date):
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}
