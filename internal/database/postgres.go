package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/config"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errPostgresClosed = errors.New("postgres pool is not initialized")

const (
	// maxPoolConns bounds max_open_conns and max_idle_conns.
	maxPoolConns      int32 = 500
	postgresDialTries       = 3
	postgresDialLimit       = 30 * time.Second
)

// PostgresDB is the shared backend for deployed API instances.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

var _ Database = (*PostgresDB)(nil)

// NewPostgresConnectionWithContext dials PostgreSQL, retrying with
// exponential backoff until ctx or a 30s limit expires.
func NewPostgresConnectionWithContext(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresDB, error) {
	poolConfig, err := postgresPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, postgresDialLimit)
	defer cancel()

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		pool, err := dialPostgres(ctx, poolConfig)
		if err == nil {
			zaplogrus.WithField("attempt", attempt).Info("Connected to PostgreSQL")
			return &PostgresDB{Pool: pool}, nil
		}
		if attempt == postgresDialTries {
			return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", attempt, err)
		}

		zaplogrus.WithFields(zaplogrus.Fields{"attempt": attempt, "retry_in": backoff.String()}).
			WithError(err).Warn("PostgreSQL connection failed")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to postgres: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func dialPostgres(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (db *PostgresDB) pool() (pgxPool, error) {
	if db == nil || db.Pool == nil {
		return pgxPool{}, errPostgresClosed
	}
	return newPgxPool(db.Pool), nil
}

func (db *PostgresDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	p, err := db.pool()
	if err != nil {
		return nil, err
	}
	return p.Query(ctx, query, args...)
}

func (db *PostgresDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	p, err := db.pool()
	if err != nil {
		return errRow{err: err}
	}
	return p.QueryRow(ctx, query, args...)
}

func (db *PostgresDB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	p, err := db.pool()
	if err != nil {
		return nil, err
	}
	return p.Exec(ctx, query, args...)
}

func (db *PostgresDB) Begin(ctx context.Context) (Tx, error) {
	p, err := db.pool()
	if err != nil {
		return nil, err
	}
	return p.Begin(ctx)
}

func (db *PostgresDB) Type() DBType { return DBTypePostgres }

func (db *PostgresDB) IsReady() bool { return db != nil && db.Pool != nil }

func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if !db.IsReady() {
		return errPostgresClosed
	}
	return db.Pool.Ping(ctx)
}

// Close is safe to call more than once.
func (db *PostgresDB) Close() error {
	if !db.IsReady() {
		return nil
	}
	db.Pool.Close()
	db.Pool = nil
	zaplogrus.Info("PostgreSQL connection closed")
	return nil
}

// postgresPoolConfig turns DatabaseConfig into a pgxpool config. A URL may
// be given in DatabaseURL or in Host; otherwise a keyword DSN is built.
func postgresPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	dsn := cfg.DatabaseURL
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		dsn = cfg.Host
	}
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.ConnectTimeout)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = poolSize(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = poolSize(cfg.MaxIdleConns)
	}
	if poolConfig.MinConns > poolConfig.MaxConns {
		return nil, fmt.Errorf("invalid pool sizing: max_idle_conns (%d) > max_open_conns (%d)", poolConfig.MinConns, poolConfig.MaxConns)
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"conn_max_lifetime", cfg.ConnMaxLifetime, &poolConfig.MaxConnLifetime},
		{"conn_max_idle_time", cfg.ConnMaxIdleTime, &poolConfig.MaxConnIdleTime},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.key, d.value, err)
		}
		*d.dst = parsed
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.Itoa(cfg.StatementTimeout)
	}
	poolConfig.ConnConfig.Tracer = &PostgresSentryTracer{}

	return poolConfig, nil
}

// poolSize clamps a configured connection count into (0, maxPoolConns].
func poolSize(n int) int32 {
	switch {
	case n <= 0:
		return 0
	case n > int(maxPoolConns):
		zaplogrus.WithFields(zaplogrus.Fields{"requested": n, "limit": maxPoolConns}).Warn("Clamping PostgreSQL pool size")
		return maxPoolConns
	default:
		return int32(n)
	}
}
