package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*CalibrationCache, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		server.Close()
	})

	return NewCalibrationCache(rdb, ttl, nil), server
}

func sampleCalibration(market string) *models.CalibrationData {
	return &models.CalibrationData{
		ID:         "cal-1",
		Market:     market,
		WindowDays: 30,
		Points: []models.CalibrationPoint{
			{RawConfidence: 0, CalibratedConfidence: 0},
			{RawConfidence: 0.75, CalibratedConfidence: 0.6},
			{RawConfidence: 1, CalibratedConfidence: 0.6},
		},
		SampleSize: 12,
		CreatedAt:  time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewCalibrationCache_NilClient(t *testing.T) {
	assert.Nil(t, NewCalibrationCache(nil, time.Minute, nil))
}

func TestCalibrationCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	_, ok := c.Get(ctx, "BTC")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleCalibration("BTC")))

	got, ok := c.Get(ctx, "BTC")
	require.True(t, ok)
	assert.Equal(t, "cal-1", got.ID)
	assert.Equal(t, sampleCalibration("BTC").Points, got.Points)
	assert.True(t, sampleCalibration("BTC").CreatedAt.Equal(got.CreatedAt))

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 50.0, c.HitRate(), 1e-9)
}

func TestCalibrationCache_Expiry(t *testing.T) {
	c, server := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleCalibration("ETH")))
	server.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "ETH")
	assert.False(t, ok)
}

func TestCalibrationCache_InvalidateAndClear(t *testing.T) {
	c, server := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleCalibration("BTC")))
	require.NoError(t, c.Set(ctx, sampleCalibration("ETH")))
	require.NoError(t, server.Set("unrelated", "keep"))

	require.NoError(t, c.Invalidate(ctx, "BTC"))
	_, ok := c.Get(ctx, "BTC")
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	_, ok = c.Get(ctx, "ETH")
	assert.False(t, ok)
	assert.True(t, server.Exists("unrelated"))
}

func TestCalibrationCache_CorruptEntryIsMiss(t *testing.T) {
	c, server := newTestCache(t, time.Hour)
	require.NoError(t, server.Set(defaultCalibrationKeyPrefix+"SOL", "{not json"))

	_, ok := c.Get(context.Background(), "SOL")
	assert.False(t, ok)
}

func TestCalibrationCache_SetNil(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	assert.Error(t, c.Set(context.Background(), nil))
}
