package database

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

type queryStartKey struct{}

type queryStart struct {
	sql     string
	started time.Time
}

// PostgresSentryTracer reports failed queries to Sentry and leaves a
// breadcrumb for every statement.
type PostgresSentryTracer struct{}

var _ pgx.QueryTracer = (*PostgresSentryTracer)(nil)

func (t *PostgresSentryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, started: time.Now()})
}

func (t *PostgresSentryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, _ := ctx.Value(queryStartKey{}).(queryStart)

	observability.AddBreadcrumb("db.query", start.sql, map[string]interface{}{
		"duration_ms": time.Since(start.started).Milliseconds(),
		"rows":        data.CommandTag.RowsAffected(),
	})

	if data.Err == nil || errors.Is(data.Err, pgx.ErrNoRows) || errors.Is(data.Err, context.Canceled) {
		return
	}
	observability.CaptureException(data.Err, map[string]string{
		"component": "postgres",
		"query":     start.sql,
	})
}

// RedisSentryHook reports failed Redis commands to Sentry. Cache misses are not errors.
type RedisSentryHook struct{}

var _ redis.Hook = (*RedisSentryHook)(nil)

func (h *RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			observability.CaptureException(err, map[string]string{"component": "redis", "operation": "dial"})
		}
		return conn, err
	}
}

func (h *RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if reportableRedisError(err) {
			observability.CaptureException(err, map[string]string{"component": "redis", "command": cmd.Name()})
		}
		return err
	}
}

func (h *RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if reportableRedisError(err) {
			observability.CaptureException(err, map[string]string{"component": "redis", "command": "pipeline"})
		}
		return err
	}
}

func reportableRedisError(err error) bool {
	return err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled)
}
