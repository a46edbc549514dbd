// Package log provides progress feedback for long-running runs on top of
// zerolog.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Mode selects how progress is rendered.
type Mode string

const (
	ModeAuto  Mode = "auto"  // bar on a TTY, log lines otherwise
	ModePlain Mode = "plain" // periodic log lines only
	ModeJSON  Mode = "json"  // structured log events only
)

// ParseMode validates a --progress flag value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModePlain, ModeJSON:
		return Mode(s), nil
	}
	return ModePlain, fmt.Errorf("unknown progress mode %q (auto|plain|json)", s)
}

// ProgressIndicator tracks completion of a fixed number of items and renders
// a bar with percent and ETA. Safe for concurrent Increment calls from worker
// goroutines.
type ProgressIndicator struct {
	mu        sync.Mutex
	name      string
	total     int
	current   int
	startTime time.Time
	lastDraw  time.Time
	mode      Mode
	isTTY     bool
}

// NewProgressIndicator starts tracking total items under the given name.
func NewProgressIndicator(name string, total int, mode Mode, isTTY bool) *ProgressIndicator {
	return &ProgressIndicator{
		name:      name,
		total:     total,
		startTime: time.Now(),
		mode:      mode,
		isTTY:     isTTY,
	}
}

// Increment marks one item complete and redraws at most every 250ms.
func (pi *ProgressIndicator) Increment() {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.current++
	if pi.current < pi.total && time.Since(pi.lastDraw) < 250*time.Millisecond {
		return
	}
	pi.lastDraw = time.Now()
	pi.draw()
}

// Finish prints the completion line.
func (pi *ProgressIndicator) Finish() {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	duration := time.Since(pi.startTime).Round(time.Millisecond)
	if pi.useBar() {
		fmt.Fprintf(os.Stderr, "\r%s: done (%d items, %v)%s\n", pi.name, pi.total, duration, strings.Repeat(" ", 20))
		return
	}
	log.Info().Str("task", pi.name).Int("items", pi.total).Dur("duration", duration).Msg("progress complete")
}

func (pi *ProgressIndicator) useBar() bool {
	return pi.mode == ModeAuto && pi.isTTY
}

func (pi *ProgressIndicator) draw() {
	pct := 0.0
	if pi.total > 0 {
		pct = float64(pi.current) / float64(pi.total)
	}

	eta := time.Duration(0)
	if pi.current > 0 {
		perItem := time.Since(pi.startTime) / time.Duration(pi.current)
		eta = (perItem * time.Duration(pi.total-pi.current)).Round(time.Second)
	}

	if pi.useBar() {
		const width = 30
		filled := int(pct * width)
		bar := strings.Repeat("=", filled) + strings.Repeat(" ", width-filled)
		fmt.Fprintf(os.Stderr, "\r%s [%s] %3.0f%% (%d/%d) ETA %v", pi.name, bar, pct*100, pi.current, pi.total, eta)
		return
	}

	log.Info().
		Str("task", pi.name).
		Int("current", pi.current).
		Int("total", pi.total).
		Float64("pct", pct*100).
		Dur("eta", eta).
		Msg("progress")
}
