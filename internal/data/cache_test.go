package data

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcast/driftcast/internal/series"
)

type staticProvider struct {
	calls  int
	points []series.PricePoint
	err    error
}

func (s *staticProvider) DailyCloses(_ context.Context, _ string, _, _ time.Time) ([]series.PricePoint, error) {
	s.calls++
	return s.points, s.err
}

func samplePoints() []series.PricePoint {
	return []series.PricePoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 101.5},
	}
}

func sampleRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestCacheMissFetchesAndStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &staticProvider{points: samplePoints()}
	from, to := sampleRange()

	key := cacheKey("spy.us", from, to)
	payload, err := json.Marshal(samplePoints())
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Hour).SetVal("OK")

	c := NewCache(inner, client, time.Hour)
	points, err := c.DailyCloses(context.Background(), "spy.us", from, to)
	require.NoError(t, err)
	assert.Equal(t, samplePoints(), points)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheHitSkipsProvider(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &staticProvider{points: samplePoints()}
	from, to := sampleRange()

	payload, err := json.Marshal(samplePoints())
	require.NoError(t, err)
	mock.ExpectGet(cacheKey("spy.us", from, to)).SetVal(string(payload))

	c := NewCache(inner, client, time.Hour)
	points, err := c.DailyCloses(context.Background(), "spy.us", from, to)
	require.NoError(t, err)
	assert.Equal(t, samplePoints(), points)
	assert.Equal(t, 0, inner.calls, "a hit must not touch the inner provider")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheReadFailureFallsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &staticProvider{points: samplePoints()}
	from, to := sampleRange()

	key := cacheKey("spy.us", from, to)
	payload, _ := json.Marshal(samplePoints())
	mock.ExpectGet(key).SetErr(errors.New("redis down"))
	mock.ExpectSet(key, payload, time.Hour).SetErr(errors.New("redis down"))

	c := NewCache(inner, client, time.Hour)
	points, err := c.DailyCloses(context.Background(), "spy.us", from, to)
	require.NoError(t, err, "cache faults are non-fatal")
	assert.Equal(t, samplePoints(), points)
	assert.Equal(t, 1, inner.calls)
}

func TestCacheCorruptEntryRefetches(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &staticProvider{points: samplePoints()}
	from, to := sampleRange()

	key := cacheKey("spy.us", from, to)
	payload, _ := json.Marshal(samplePoints())
	mock.ExpectGet(key).SetVal("{not json")
	mock.ExpectSet(key, payload, time.Hour).SetVal("OK")

	c := NewCache(inner, client, time.Hour)
	points, err := c.DailyCloses(context.Background(), "spy.us", from, to)
	require.NoError(t, err)
	assert.Equal(t, samplePoints(), points)
	assert.Equal(t, 1, inner.calls)
}

func TestCachePropagatesProviderError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &staticProvider{err: errors.New("fetch failed")}
	from, to := sampleRange()

	mock.ExpectGet(cacheKey("spy.us", from, to)).RedisNil()

	c := NewCache(inner, client, time.Hour)
	_, err := c.DailyCloses(context.Background(), "spy.us", from, to)
	assert.Error(t, err)
}
