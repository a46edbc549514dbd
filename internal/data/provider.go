// Package data supplies daily adjusted-close price series to the engine. The
// engine itself never fetches: it consumes an ordered price sequence from a
// Provider, optionally decorated with rate-limit/circuit-breaker guards and a
// Redis cache.
package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/driftcast/driftcast/internal/series"
)

// Provider returns the daily closes for one symbol over [from, to] inclusive,
// in ascending date order.
type Provider interface {
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]series.PricePoint, error)
}

// CSVProvider reads a local date,adj_close file. The symbol argument is
// ignored; the file is the instrument.
type CSVProvider struct {
	Path string
}

// DailyCloses parses the file and filters to [from, to]. A header row is
// detected and skipped. Rows must already be date-ascending.
func (p *CSVProvider) DailyCloses(_ context.Context, _ string, from, to time.Time) ([]series.PricePoint, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price csv: %w", err)
	}
	defer f.Close()

	points, err := parseCloseCSV(f, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path, err)
	}
	return clipRange(points, from, to), nil
}

// parseCloseCSV reads (date, close) pairs from the given column indices,
// skipping a leading header row when the date column does not parse.
func parseCloseCSV(r io.Reader, dateCol, closeCol int) ([]series.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var points []series.PricePoint
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read failed: %w", err)
		}
		line++
		if len(rec) <= closeCol || len(rec) <= dateCol {
			return nil, fmt.Errorf("row %d has %d fields", line, len(rec))
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[dateCol]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: bad date %q", line, rec[dateCol])
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad close %q", line, rec[closeCol])
		}
		points = append(points, series.PricePoint{Date: date, Close: close})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no price rows")
	}
	if !sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) }) {
		return nil, fmt.Errorf("price rows are not date-ascending")
	}
	return points, nil
}

func clipRange(points []series.PricePoint, from, to time.Time) []series.PricePoint {
	var out []series.PricePoint
	for _, p := range points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
