package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/irfndi/neuratrade-eval/internal/config"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
)

// Database is an open evaluation store backend. EvaluationRepository only
// needs the embedded DBPool; the rest serves bootstrap, Migrate and /health.
type Database interface {
	DBPool
	Type() DBType
	IsReady() bool
	HealthCheck(ctx context.Context) error
	Close() error
}

// DBType names a backend and selects its schema dialect.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
)

// DefaultSQLitePath is used when the sqlite driver is selected without a path.
const DefaultSQLitePath = "neuratrade-eval.db"

// DetectDBType maps a configured driver name to a DBType. Empty and unknown
// names resolve to sqlite; ok is false for unknown names.
func DetectDBType(driver string) (DBType, bool) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DBTypeSQLite, true
	case "postgres", "postgresql", "pgx":
		return DBTypePostgres, true
	default:
		return DBTypeSQLite, false
	}
}

// NewDatabaseConnectionWithContext opens the backend named by cfg.Driver.
func NewDatabaseConnectionWithContext(ctx context.Context, cfg *config.DatabaseConfig) (Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	dbType, ok := DetectDBType(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}

	if dbType == DBTypePostgres {
		zaplogrus.WithFields(zaplogrus.Fields{
			"host":     cfg.Host,
			"port":     cfg.Port,
			"database": cfg.DBName,
		}).Info("Opening PostgreSQL evaluation store")
		return NewPostgresConnectionWithContext(ctx, cfg)
	}

	path := strings.TrimSpace(cfg.SQLitePath)
	if path == "" {
		path = DefaultSQLitePath
	}
	zaplogrus.WithField("path", path).Info("Opening SQLite evaluation store")
	return NewSQLiteConnection(path)
}
