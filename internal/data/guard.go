package data

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	cb "github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/driftcast/driftcast/internal/series"
)

// GuardedProvider decorates a Provider with a token-bucket rate limiter and a
// circuit breaker, so a misbehaving upstream degrades to fast failures
// instead of hammering the endpoint.
type GuardedProvider struct {
	inner   Provider
	limiter *rate.Limiter
	breaker *cb.CircuitBreaker
}

// NewGuardedProvider wraps inner. rps bounds sustained request rate; the
// breaker opens after 3 consecutive failures or a >5% failure rate over at
// least 20 requests, and probes again after 60s.
func NewGuardedProvider(name string, inner Provider, rps float64, burst int) *GuardedProvider {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
	}

	return &GuardedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: cb.NewCircuitBreaker(st),
	}
}

// DailyCloses waits for a rate token, then runs the inner fetch through the
// breaker.
func (g *GuardedProvider) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]series.PricePoint, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.DailyCloses(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("guarded fetch %s: %w", symbol, err)
	}
	return out.([]series.PricePoint), nil
}
