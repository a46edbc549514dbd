// Package signal maps one-step forecasts to discrete trading decisions.
package signal

import (
	"fmt"
	"time"
)

// Direction is a ternary trading decision.
type Direction int

const (
	Sell Direction = -1
	Hold Direction = 0
	Buy  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Hold:
		return "hold"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Value returns the position multiplier applied to realized returns.
func (d Direction) Value() float64 { return float64(d) }

// Parse inverts String. The backtest command uses it to reload a signals
// artifact without re-fitting.
func Parse(s string) (Direction, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "hold":
		return Hold, nil
	}
	return Hold, fmt.Errorf("signal: unknown direction %q", s)
}

// Signal is a dated trading decision. Date is the trading day the decision
// applies to: the day after the window the forecast was fit on.
type Signal struct {
	Date      time.Time `json:"date"`
	Direction Direction `json:"direction"`
}

// FromForecast maps a forecast mean to a direction. The zero boundary belongs
// to Buy: a forecast of exactly 0.0 is a Buy, never a Hold.
func FromForecast(mean float64) Direction {
	if mean >= 0 {
		return Buy
	}
	return Sell
}
