package series

import (
	"math"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewRejectsNonMonotonicDates(t *testing.T) {
	cases := []struct {
		name   string
		points []Point
	}{
		{"out of order", []Point{{Date: day(1)}, {Date: day(0)}}},
		{"duplicate", []Point{{Date: day(0)}, {Date: day(0)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.points); err == nil {
				t.Fatalf("expected error for %s dates", tc.name)
			}
		})
	}
}

func TestFromPricesLogReturns(t *testing.T) {
	prices := []PricePoint{
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 110},
		{Date: day(2), Close: 99},
	}
	s, err := FromPrices(prices)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Value(0); got != 0 {
		t.Errorf("first return forced to 0, got %v", got)
	}
	want1 := math.Log(110) - math.Log(100)
	if got := s.Value(1); math.Abs(got-want1) > 1e-12 {
		t.Errorf("return[1] = %v, want %v", got, want1)
	}
	want2 := math.Log(99) - math.Log(110)
	if got := s.Value(2); math.Abs(got-want2) > 1e-12 {
		t.Errorf("return[2] = %v, want %v", got, want2)
	}
}

func TestFromPricesRejectsBadCloses(t *testing.T) {
	for _, close := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		prices := []PricePoint{{Date: day(0), Close: 100}, {Date: day(1), Close: close}}
		if _, err := FromPrices(prices); err == nil {
			t.Errorf("expected error for close %v", close)
		}
	}
}

func TestWindowBoundsAndIsolation(t *testing.T) {
	points := make([]Point, 10)
	for i := range points {
		points[i] = Point{Date: day(i), Value: float64(i)}
	}
	s, err := New(points)
	if err != nil {
		t.Fatal(err)
	}

	w, err := s.Window(3, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range w {
		if v != float64(3+i) {
			t.Fatalf("window[%d] = %v", i, v)
		}
	}

	// The window is a copy: mutating it must not touch the series.
	w[0] = 99
	if s.Value(3) != 3 {
		t.Error("window aliases series storage")
	}

	for _, bad := range [][2]int{{-1, 4}, {7, 4}, {0, 0}, {0, 11}} {
		if _, err := s.Window(bad[0], bad[1]); err == nil {
			t.Errorf("expected error for window %v", bad)
		}
	}
}

func TestBetweenAndIndexOf(t *testing.T) {
	points := make([]Point, 10)
	for i := range points {
		points[i] = Point{Date: day(i), Value: float64(i)}
	}
	s, _ := New(points)

	sub := s.Between(day(2), day(5))
	if sub.Len() != 4 || !sub.Date(0).Equal(day(2)) || !sub.Date(3).Equal(day(5)) {
		t.Fatalf("Between returned wrong range, len=%d", sub.Len())
	}

	if got := s.IndexOf(day(7)); got != 7 {
		t.Errorf("IndexOf(day 7) = %d", got)
	}
	if got := s.IndexOf(day(42)); got != -1 {
		t.Errorf("IndexOf(absent) = %d, want -1", got)
	}
}
