package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultCalibrationKeyPrefix = "calibration:latest:"

type calibrationCacheEntry struct {
	Data     *models.CalibrationData `json:"data"`
	CachedAt time.Time               `json:"cached_at"`
}

// CalibrationCacheStats counts cache traffic.
type CalibrationCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// CalibrationCache keeps the latest calibration per market in Redis.
type CalibrationCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *zaplogrus.Logger

	mu    sync.RWMutex
	stats CalibrationCacheStats
}

// NewCalibrationCache returns nil when redisClient is nil so callers can
// treat a missing Redis as a disabled cache.
func NewCalibrationCache(redisClient *redis.Client, ttl time.Duration, logger *zaplogrus.Logger) *CalibrationCache {
	if redisClient == nil {
		return nil
	}
	if logger == nil {
		logger = zaplogrus.NewNop()
	}
	return &CalibrationCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: defaultCalibrationKeyPrefix,
		logger: logger,
	}
}

func (c *CalibrationCache) key(market string) string {
	return c.prefix + market
}

// Get returns the cached record for market. Redis and decode errors count as misses.
func (c *CalibrationCache) Get(ctx context.Context, market string) (*models.CalibrationData, bool) {
	raw, err := c.redis.Get(ctx, c.key(market)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("market", market).Warn("Calibration cache read failed")
		}
		c.record(func(s *CalibrationCacheStats) { s.Misses++ })
		return nil, false
	}

	var entry calibrationCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Data == nil {
		c.logger.WithField("market", market).Warn("Discarding undecodable calibration cache entry")
		c.record(func(s *CalibrationCacheStats) { s.Misses++ })
		return nil, false
	}

	c.record(func(s *CalibrationCacheStats) { s.Hits++ })
	return entry.Data, true
}

// Set stores data as the latest record for its market.
func (c *CalibrationCache) Set(ctx context.Context, data *models.CalibrationData) error {
	if data == nil {
		return fmt.Errorf("calibration data is nil")
	}

	payload, err := json.Marshal(calibrationCacheEntry{Data: data, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal calibration cache entry: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(data.Market), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set calibration cache: %w", err)
	}

	c.record(func(s *CalibrationCacheStats) { s.Sets++ })
	return nil
}

// Invalidate drops the cached record for market.
func (c *CalibrationCache) Invalidate(ctx context.Context, market string) error {
	if err := c.redis.Del(ctx, c.key(market)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate calibration cache: %w", err)
	}
	return nil
}

// Clear removes every cached calibration.
func (c *CalibrationCache) Clear(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to clear calibration cache: %w", err)
		}
		c.logger.Infof("Cleared %d calibration cache entries", len(keys))
	}
	return nil
}

func (c *CalibrationCache) GetStats() CalibrationCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate is the percentage of lookups served from cache.
func (c *CalibrationCache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}

func (c *CalibrationCache) record(fn func(*CalibrationCacheStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}
