package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()

	db, err := NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestSQLiteConnection tests SQLite connection creation
func TestSQLiteConnection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewSQLiteConnection(dbPath)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.True(t, db.IsReady())
	assert.Equal(t, DBTypeSQLite, db.Type())
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestSQLiteConnection_EmptyPath(t *testing.T) {
	db, err := NewSQLiteConnection("  ")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestSQLiteDB_CloseIsIdempotent(t *testing.T) {
	db, err := NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	assert.NoError(t, db.Close())
	assert.NoError(t, db.Close())
	assert.False(t, db.IsReady())
}

// Repositories share $n placeholders across drivers.
func TestSQLiteDB_NumberedPlaceholders(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT, at DATETIME)`)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	res, err := db.Exec(ctx, "INSERT INTO kv (key, value, at) VALUES ($1, $2, $3)", "a", "alpha", at)
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var (
		value string
		got   time.Time
	)
	require.NoError(t, db.QueryRow(ctx, "SELECT value, at FROM kv WHERE key = $1 AND at >= $2", "a", at).Scan(&value, &got))
	assert.Equal(t, "alpha", value)
	assert.True(t, at.Equal(got))
}

func TestSQLiteDB_TransactionCommitAndRollback(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `CREATE TABLE test_tx (id INTEGER PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO test_tx (value) VALUES ($1)", "committed")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO test_tx (value) VALUES ($1)", "rolled_back")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	rows, err := db.Query(ctx, "SELECT value FROM test_tx ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		values = append(values, v)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"committed"}, values)
}

// TestSQLiteDB_NilDatabase tests operations with nil database
func TestSQLiteDB_NilDatabase(t *testing.T) {
	var db *SQLiteDB
	ctx := context.Background()

	_, err := db.Query(ctx, "SELECT 1")
	assert.Error(t, err)

	_, err = db.Exec(ctx, "SELECT 1")
	assert.Error(t, err)

	_, err = db.Begin(ctx)
	assert.Error(t, err)

	var v int
	assert.ErrorIs(t, db.QueryRow(ctx, "SELECT 1").Scan(&v), errSQLiteClosed)

	assert.Error(t, db.HealthCheck(ctx))
	assert.False(t, db.IsReady())

	assert.NotPanics(t, func() {
		assert.NoError(t, db.Close())
	})
}

// TestNewDatabaseConnection tests the unified database connection factory
func TestNewDatabaseConnectionWithContext(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := NewDatabaseConnectionWithContext(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	assert.True(t, db.IsReady())
	assert.IsType(t, &SQLiteDB{}, db)
}

func TestNewDatabaseConnection_DefaultDriver(t *testing.T) {
	db, err := NewDatabaseConnectionWithContext(context.Background(), &config.DatabaseConfig{SQLitePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DBTypeSQLite, db.Type())
}

func TestNewDatabaseConnection_UnknownDriver(t *testing.T) {
	db, err := NewDatabaseConnectionWithContext(context.Background(), &config.DatabaseConfig{Driver: "unknown_driver"})
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = NewDatabaseConnectionWithContext(context.Background(), nil)
	assert.Error(t, err)
}

// TestDetectDBType tests database type detection
func TestDetectDBType(t *testing.T) {
	tests := []struct {
		driver   string
		expected DBType
		known    bool
	}{
		{"sqlite", DBTypeSQLite, true},
		{"sqlite3", DBTypeSQLite, true},
		{"postgres", DBTypePostgres, true},
		{"postgresql", DBTypePostgres, true},
		{"pgx", DBTypePostgres, true},
		{"", DBTypeSQLite, true},
		{"unknown", DBTypeSQLite, false},
		{" POSTGRES ", DBTypePostgres, true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, ok := DetectDBType(tt.driver)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.known, ok)
		})
	}
}

func TestDBType_Schema(t *testing.T) {
	assert.Contains(t, DBTypeSQLite.Schema(), "AUTOINCREMENT")
	assert.Contains(t, DBTypePostgres.Schema(), "BIGSERIAL")
	assert.Contains(t, DBTypePostgres.Schema(), "TIMESTAMPTZ")
}

func TestPostgresPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:             "db.internal",
		Port:             5433,
		User:             "eval",
		Password:         "secret",
		DBName:           "evaluation",
		SSLMode:          "disable",
		ConnectTimeout:   5,
		MaxOpenConns:     20,
		MaxIdleConns:     2,
		ConnMaxLifetime:  "10m",
		ConnMaxIdleTime:  "1m",
		ApplicationName:  "neuratrade-eval",
		StatementTimeout: 3000,
	}

	poolConfig, err := postgresPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolConfig.ConnConfig.Port)
	assert.Equal(t, "evaluation", poolConfig.ConnConfig.Database)
	assert.Equal(t, int32(20), poolConfig.MaxConns)
	assert.Equal(t, int32(2), poolConfig.MinConns)
	assert.Equal(t, 10*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, "neuratrade-eval", poolConfig.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "3000", poolConfig.ConnConfig.RuntimeParams["statement_timeout"])
	assert.IsType(t, &PostgresSentryTracer{}, poolConfig.ConnConfig.Tracer)
}

func TestPostgresPoolConfig_URLAndErrors(t *testing.T) {
	poolConfig, err := postgresPoolConfig(&config.DatabaseConfig{DatabaseURL: "postgres://u:p@example.com:6543/evals?sslmode=disable"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", poolConfig.ConnConfig.Host)
	assert.Equal(t, "evals", poolConfig.ConnConfig.Database)

	_, err = postgresPoolConfig(&config.DatabaseConfig{DatabaseURL: "postgres://x", MaxOpenConns: 1, MaxIdleConns: 5})
	assert.ErrorContains(t, err, "invalid pool sizing")

	_, err = postgresPoolConfig(&config.DatabaseConfig{DatabaseURL: "postgres://x", ConnMaxLifetime: "soon"})
	assert.ErrorContains(t, err, "invalid conn_max_lifetime")
}

func TestPoolSize(t *testing.T) {
	assert.Equal(t, int32(0), poolSize(-1))
	assert.Equal(t, int32(25), poolSize(25))
	assert.Equal(t, maxPoolConns, poolSize(50000))
}

func TestPostgresDB_NilPool(t *testing.T) {
	db := &PostgresDB{}
	ctx := context.Background()

	_, err := db.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, errPostgresClosed)
	_, err = db.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, errPostgresClosed)
	_, err = db.Begin(ctx)
	assert.ErrorIs(t, err, errPostgresClosed)

	var v int
	assert.ErrorIs(t, db.QueryRow(ctx, "SELECT 1").Scan(&v), errPostgresClosed)
	assert.ErrorIs(t, db.HealthCheck(ctx), errPostgresClosed)
	assert.False(t, db.IsReady())
	assert.NoError(t, db.Close())
}
