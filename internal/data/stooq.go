package data

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/driftcast/driftcast/internal/series"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

// StooqProvider fetches daily bars from the stooq CSV endpoint. Stooq serves
// split/dividend-adjusted closes for its daily interval, which is what the
// return computation wants.
type StooqProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewStooqProvider returns a provider against the public endpoint.
func NewStooqProvider() *StooqProvider {
	return &StooqProvider{
		BaseURL: stooqBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// DailyCloses fetches s=<symbol>&d1=<from>&d2=<to>&i=d and parses the
// Date,Open,High,Low,Close,Volume payload.
func (p *StooqProvider) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]series.PricePoint, error) {
	if symbol == "" {
		return nil, fmt.Errorf("stooq: empty symbol")
	}
	url := fmt.Sprintf("%s?s=%s&d1=%s&d2=%s&i=d",
		p.BaseURL, symbol, from.Format("20060102"), to.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stooq: build request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stooq: fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq: fetch %s: status %d", symbol, resp.StatusCode)
	}

	// Date is column 0, Close column 4.
	points, err := parseCloseCSV(resp.Body, 0, 4)
	if err != nil {
		return nil, fmt.Errorf("stooq: parse %s: %w", symbol, err)
	}
	return points, nil
}
