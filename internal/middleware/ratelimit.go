package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/redis/go-redis/v9"
)

const (
	RateLimitHeader          = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RateLimitResetHeader     = "X-RateLimit-Reset"

	rateLimitKeyPrefix = "ratelimit:"
)

// Fixed window counter; returns {allowed, remaining, ttl_seconds}.
var rateLimitScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if current >= limit then
  return {0, 0, redis.call("TTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
end
return {1, limit - current, redis.call("TTL", KEYS[1])}
`)

// RateLimitConfig defines a fixed-window request budget.
type RateLimitConfig struct {
	// Requests allowed per window.
	Requests int
	// Window length.
	Window time.Duration
	// KeyFunc extracts the budget key from a request.
	KeyFunc func(*gin.Context) string
}

// CalibrationRateLimitConfig budgets calibration runs per client and market.
// Recomputing a market is a full history scan, so the default is small.
func CalibrationRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 5,
		Window:   time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return "calibration:" + c.ClientIP() + ":" + c.Param("market")
		},
	}
}

// RateLimiter enforces a RateLimitConfig, in Redis when a client is given
// and in process memory otherwise.
type RateLimiter struct {
	config RateLimitConfig
	redis  *redis.Client
	logger *zaplogrus.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rateLimitWindow
}

type rateLimitWindow struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a limiter. redisClient and logger may be nil.
func NewRateLimiter(config RateLimitConfig, redisClient *redis.Client, logger *zaplogrus.Logger) *RateLimiter {
	if logger == nil {
		logger = zaplogrus.NewNop()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		config: config,
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
		local:  make(map[string]*rateLimitWindow),
	}
}

// Middleware rejects requests over budget with 429.
// Limiter failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)

		allowed, remaining, resetAt, err := rl.take(c.Request.Context(), key)
		if err != nil {
			rl.logger.WithError(err).WithField("key", key).Error("Rate limit check failed")
			c.Next()
			return
		}

		c.Header(RateLimitHeader, strconv.Itoa(rl.config.Requests))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))
		c.Header(RateLimitResetHeader, strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			rl.logger.WithField("key", key).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": int64(resetAt.Sub(rl.now()).Seconds()),
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) take(ctx context.Context, key string) (bool, int, time.Time, error) {
	if rl.redis != nil {
		return rl.takeRedis(ctx, key)
	}
	allowed, remaining, resetAt := rl.takeLocal(key)
	return allowed, remaining, resetAt, nil
}

func (rl *RateLimiter) takeRedis(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowSeconds := int(rl.config.Window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	values, err := rateLimitScript.Run(ctx, rl.redis, []string{rateLimitKeyPrefix + key}, rl.config.Requests, windowSeconds).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected rate limit response length %d", len(values))
	}

	ttl := values[2]
	if ttl < 0 {
		ttl = int64(windowSeconds)
	}
	return values[0] == 1, int(values[1]), rl.now().Add(time.Duration(ttl) * time.Second), nil
}

func (rl *RateLimiter) takeLocal(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.local) > 100 {
		for k, w := range rl.local {
			if now.After(w.resetAt) {
				delete(rl.local, k)
			}
		}
	}

	w, ok := rl.local[key]
	if !ok || now.After(w.resetAt) {
		w = &rateLimitWindow{resetAt: now.Add(rl.config.Window)}
		rl.local[key] = w
	}
	if w.count >= rl.config.Requests {
		return false, 0, w.resetAt
	}
	w.count++
	return true, rl.config.Requests - w.count, w.resetAt
}

// Reset clears the budget for key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if rl.redis != nil {
		return rl.redis.Del(ctx, rateLimitKeyPrefix+key).Err()
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.local, key)
	return nil
}
