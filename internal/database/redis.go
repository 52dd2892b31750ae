package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/irfndi/neuratrade-eval/internal/config"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient wraps a Redis client used for the calibration cache and
// per-market calibration locks.
type RedisClient struct {
	Client *redis.Client
	logger *zaplogrus.Logger
}

// NewRedisConnection connects to Redis and verifies the connection with a ping.
//
// Parameters:
//
//	cfg: Redis configuration.
//	logger: Optional logger; a no-op logger is used when nil.
//
// Returns:
//
//	*RedisClient: The initialized client.
//	error: Error if connection fails.
func NewRedisConnection(cfg config.RedisConfig, logger *zaplogrus.Logger) (*RedisClient, error) {
	if logger == nil {
		logger = zaplogrus.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	rdb.AddHook(&RedisSentryHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", rdb.Options().Addr).Info("Successfully connected to Redis")

	return &RedisClient{
		Client: rdb,
		logger: logger,
	}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() {
	if r == nil || r.Client == nil {
		return
	}
	logger := r.logger
	if logger == nil {
		logger = zaplogrus.Standard()
	}
	if err := r.Client.Close(); err != nil {
		logger.WithError(err).Error("Error closing Redis client")
		return
	}
	logger.Info("Redis connection closed")
}

// HealthCheck verifies the Redis connection.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Ping(ctx).Err()
}

// AcquireLock sets key to a random token if it is not already held.
// The token must be passed to ReleaseLock.
func (r *RedisClient) AcquireLock(ctx context.Context, key string, expiration time.Duration) (string, bool, error) {
	if r == nil || r.Client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return "", false, fmt.Errorf("lock key cannot be empty")
	}
	if expiration <= 0 {
		return "", false, fmt.Errorf("lock expiration must be positive")
	}

	token := uuid.NewString()
	acquired, err := r.Client.SetNX(ctx, key, token, expiration).Result()
	if err != nil {
		return "", false, err
	}

	if !acquired {
		return "", false, nil
	}

	return token, true, nil
}

// ReleaseLock deletes key only if it still holds token.
func (r *RedisClient) ReleaseLock(ctx context.Context, key, token string) (bool, error) {
	if r == nil || r.Client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return false, fmt.Errorf("lock key cannot be empty")
	}
	if token == "" {
		return false, fmt.Errorf("lock token cannot be empty")
	}

	deleted, err := releaseLockScript.Run(ctx, r.Client, []string{key}, token).Int64()
	if err != nil {
		return false, err
	}

	return deleted == 1, nil
}
