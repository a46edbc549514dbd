package signal

import (
	"math"
	"testing"
)

func TestFromForecastBoundary(t *testing.T) {
	cases := []struct {
		mean float64
		want Direction
	}{
		{0.01, Buy},
		{0.0, Buy}, // zero boundary belongs to Buy, never Hold
		{math.Copysign(0, -1), Buy},
		{-1e-12, Sell},
		{-0.05, Sell},
	}
	for _, tc := range cases {
		if got := FromForecast(tc.mean); got != tc.want {
			t.Errorf("FromForecast(%v) = %v, want %v", tc.mean, got, tc.want)
		}
	}
}

func TestDirectionValue(t *testing.T) {
	if Buy.Value() != 1 || Sell.Value() != -1 || Hold.Value() != 0 {
		t.Error("direction values must be +1/-1/0")
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, d := range []Direction{Buy, Sell, Hold} {
		got, err := Parse(d.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", d.String(), err)
		}
		if got != d {
			t.Errorf("Parse(%q) = %v", d.String(), got)
		}
	}
	if _, err := Parse("long"); err == nil {
		t.Error("expected error for unknown direction")
	}
}
