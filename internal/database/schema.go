package database

import (
	"context"
	"fmt"
	"strings"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS recommendations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	market      TEXT     NOT NULL,
	event_time  DATETIME NOT NULL,
	price       REAL     NOT NULL,
	action      TEXT     NOT NULL,
	confidence  REAL     NOT NULL,
	size_usd    REAL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_recommendations_market_time ON recommendations (market, event_time);
CREATE INDEX IF NOT EXISTS idx_recommendations_time ON recommendations (event_time);

CREATE TABLE IF NOT EXISTS calibration_history (
	id                 TEXT     PRIMARY KEY,
	market             TEXT     NOT NULL,
	window_days        INTEGER  NOT NULL,
	points             TEXT     NOT NULL,
	buckets            TEXT     NOT NULL,
	sample_size        INTEGER  NOT NULL,
	event_count        INTEGER  NOT NULL,
	correlation        REAL     NOT NULL,
	high_conf_win_rate REAL     NOT NULL,
	low_conf_win_rate  REAL     NOT NULL,
	created_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calibration_history_market_created ON calibration_history (market, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS recommendations (
	id          BIGSERIAL        PRIMARY KEY,
	market      TEXT             NOT NULL,
	event_time  TIMESTAMPTZ      NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	action      TEXT             NOT NULL CHECK (action IN ('long', 'short', 'hold', 'close')),
	confidence  DOUBLE PRECISION NOT NULL,
	size_usd    DOUBLE PRECISION,
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_recommendations_market_time ON recommendations (market, event_time);
CREATE INDEX IF NOT EXISTS idx_recommendations_time ON recommendations (event_time);

CREATE TABLE IF NOT EXISTS calibration_history (
	id                 TEXT             PRIMARY KEY,
	market             TEXT             NOT NULL,
	window_days        INTEGER          NOT NULL,
	points             TEXT             NOT NULL,
	buckets            TEXT             NOT NULL,
	sample_size        INTEGER          NOT NULL,
	event_count        INTEGER          NOT NULL,
	correlation        DOUBLE PRECISION NOT NULL,
	high_conf_win_rate DOUBLE PRECISION NOT NULL,
	low_conf_win_rate  DOUBLE PRECISION NOT NULL,
	created_at         TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calibration_history_market_created ON calibration_history (market, created_at DESC);
`

// Schema returns the DDL for the backend's SQL dialect.
func (t DBType) Schema() string {
	if t == DBTypePostgres {
		return postgresSchema
	}
	return sqliteSchema
}

// Migrate creates the evaluation tables if they do not exist, in one
// transaction so a failed statement leaves no partial schema behind.
func Migrate(ctx context.Context, db Database) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	for _, stmt := range splitStatements(db.Type().Schema()) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to apply %s schema: %w", db.Type(), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
