package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/pkg/interfaces"
	"github.com/jackc/pgx/v5"
)

const (
	eventColumns       = "id, market, event_time, price, action, confidence, size_usd"
	calibrationColumns = "id, market, window_days, points, buckets, sample_size, event_count, correlation, high_conf_win_rate, low_conf_win_rate, created_at"
)

// EvaluationRepository stores recommendation history and calibration records.
// Calibration records are append-only.
type EvaluationRepository struct {
	pool   DBPool
	logger *zaplogrus.Logger
	newID  func() string
	now    func() time.Time
}

var _ interfaces.EvaluationStore = (*EvaluationRepository)(nil)

// NewEvaluationRepository creates a repository over pool.
func NewEvaluationRepository(pool DBPool, logger *zaplogrus.Logger) *EvaluationRepository {
	if logger == nil {
		logger = zaplogrus.NewNop()
	}
	return &EvaluationRepository{
		pool:   pool,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// GetEvents returns the events matching q ordered by time, then insertion order.
func (r *EvaluationRepository) GetEvents(ctx context.Context, q interfaces.EventQuery) ([]models.RecommendationEvent, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Market != "" {
		where = append(where, "market = "+arg(q.Market))
	}
	if !q.Since.IsZero() {
		where = append(where, "event_time >= "+arg(q.Since.UTC()))
	}
	if !q.Until.IsZero() {
		where = append(where, "event_time < "+arg(q.Until.UTC()))
	}

	query := "SELECT " + eventColumns + " FROM recommendations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY event_time ASC, id ASC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var events []models.RecommendationEvent
	for rows.Next() {
		var (
			e      models.RecommendationEvent
			action string
			size   sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Market, &e.Timestamp, &e.Price, &action, &e.Confidence, &size); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}

		parsed, err := models.ParseAction(action)
		if err != nil {
			r.logger.WithFields(zaplogrus.Fields{"id": e.ID, "action": action}).Warn("Skipping recommendation with unknown action")
			continue
		}
		e.Action = parsed
		e.Timestamp = e.Timestamp.UTC()
		if size.Valid {
			v := size.Float64
			e.SizeUSD = &v
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}
	return events, nil
}

// SaveEvents validates and inserts events in a single transaction.
func (r *EvaluationRepository) SaveEvents(ctx context.Context, events []models.RecommendationEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	const insert = `INSERT INTO recommendations (market, event_time, price, action, confidence, size_usd)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range events {
		var size sql.NullFloat64
		if e.SizeUSD != nil {
			size = sql.NullFloat64{Float64: *e.SizeUSD, Valid: true}
		}
		if _, err := tx.Exec(ctx, insert, e.Market, e.Timestamp.UTC(), e.Price, string(e.Action), e.Confidence, size); err != nil {
			return 0, fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit recommendations: %w", err)
	}
	committed = true

	r.logger.WithField("count", len(events)).Debug("Recommendations stored")
	return len(events), nil
}

// SaveCalibration appends data and returns the generated identifier.
func (r *EvaluationRepository) SaveCalibration(ctx context.Context, data *models.CalibrationData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("calibration data is nil")
	}

	points, err := json.Marshal(nonNilPoints(data.Points))
	if err != nil {
		return "", fmt.Errorf("failed to marshal calibration points: %w", err)
	}
	buckets, err := json.Marshal(nonNilBuckets(data.Buckets))
	if err != nil {
		return "", fmt.Errorf("failed to marshal calibration buckets: %w", err)
	}

	createdAt := data.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	id := r.newID()
	query := "INSERT INTO calibration_history (" + calibrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.pool.Exec(ctx, query,
		id,
		data.Market,
		data.WindowDays,
		string(points),
		string(buckets),
		data.SampleSize,
		data.EventCount,
		data.Correlation,
		data.HighConfWinRate,
		data.LowConfWinRate,
		createdAt.UTC(),
	); err != nil {
		return "", fmt.Errorf("failed to insert calibration: %w", err)
	}

	return id, nil
}

// GetLatestCalibration returns the newest record for market, or nil when none exists.
func (r *EvaluationRepository) GetLatestCalibration(ctx context.Context, market string) (*models.CalibrationData, error) {
	query := "SELECT " + calibrationColumns + ` FROM calibration_history
		WHERE market = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		data            models.CalibrationData
		points, buckets string
	)
	err := r.pool.QueryRow(ctx, query, market).Scan(
		&data.ID,
		&data.Market,
		&data.WindowDays,
		&points,
		&buckets,
		&data.SampleSize,
		&data.EventCount,
		&data.Correlation,
		&data.HighConfWinRate,
		&data.LowConfWinRate,
		&data.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration: %w", err)
	}

	if err := json.Unmarshal([]byte(points), &data.Points); err != nil {
		return nil, fmt.Errorf("failed to decode calibration points: %w", err)
	}
	if err := json.Unmarshal([]byte(buckets), &data.Buckets); err != nil {
		return nil, fmt.Errorf("failed to decode calibration buckets: %w", err)
	}
	data.CreatedAt = data.CreatedAt.UTC()
	return &data, nil
}

// ListMarkets returns the distinct markets with events at or after since.
func (r *EvaluationRepository) ListMarkets(ctx context.Context, since time.Time) ([]string, error) {
	query := "SELECT DISTINCT market FROM recommendations"
	var args []any
	if !since.IsZero() {
		query += " WHERE event_time >= $1"
		args = append(args, since.UTC())
	}
	query += " ORDER BY market"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	defer rows.Close()

	var markets []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func nonNilPoints(p []models.CalibrationPoint) []models.CalibrationPoint {
	if p == nil {
		return []models.CalibrationPoint{}
	}
	return p
}

func nonNilBuckets(b []models.ConfidenceBucket) []models.ConfidenceBucket {
	if b == nil {
		return []models.ConfidenceBucket{}
	}
	return b
}
