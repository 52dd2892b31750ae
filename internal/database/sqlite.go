package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var errSQLiteClosed = errors.New("sqlite database is not initialized")

// sqliteDSNOptions are go-sqlite3 connection parameters, applied to every
// pooled connection. WAL lets API readers run while seed or calibrate writes.
const sqliteDSNOptions = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// SQLiteDB is the single-file backend for local runs, the CLI and tests.
type SQLiteDB struct {
	DB *sql.DB
}

var _ Database = (*SQLiteDB)(nil)

// NewSQLiteConnection opens the evaluation database at path.
func NewSQLiteConnection(path string) (*SQLiteDB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+sqliteDSNOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	return &SQLiteDB{DB: db}, nil
}

func (db *SQLiteDB) querier() (sqlQuerier, error) {
	if db == nil || db.DB == nil {
		return sqlQuerier{}, errSQLiteClosed
	}
	return sqlQuerier{conn: db.DB}, nil
}

func (db *SQLiteDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	q, err := db.querier()
	if err != nil {
		return nil, err
	}
	return q.Query(ctx, query, args...)
}

func (db *SQLiteDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	q, err := db.querier()
	if err != nil {
		return errRow{err: err}
	}
	return q.QueryRow(ctx, query, args...)
}

func (db *SQLiteDB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	q, err := db.querier()
	if err != nil {
		return nil, err
	}
	return q.Exec(ctx, query, args...)
}

func (db *SQLiteDB) Begin(ctx context.Context) (Tx, error) {
	if db == nil || db.DB == nil {
		return nil, errSQLiteClosed
	}
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{sqlQuerier: sqlQuerier{conn: tx}, tx: tx}, nil
}

func (db *SQLiteDB) Type() DBType { return DBTypeSQLite }

func (db *SQLiteDB) IsReady() bool { return db != nil && db.DB != nil }

func (db *SQLiteDB) HealthCheck(ctx context.Context) error {
	if !db.IsReady() {
		return errSQLiteClosed
	}
	return db.DB.PingContext(ctx)
}

// Close is safe to call more than once.
func (db *SQLiteDB) Close() error {
	if !db.IsReady() {
		return nil
	}
	err := db.DB.Close()
	db.DB = nil
	return err
}
