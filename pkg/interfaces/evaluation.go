package interfaces

import (
	"context"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
)

// EventQuery selects recommendation events from the history store.
type EventQuery struct {
	// Market restricts results to one market; empty means all markets
	Market string
	// Since is the inclusive lower bound on event time; zero means no bound
	Since time.Time
	// Until is the exclusive upper bound on event time; zero means no bound
	Until time.Time
	// Limit caps the number of events returned; zero means no limit
	Limit int
}

// EventSource reads recommendation history.
type EventSource interface {
	// GetEvents returns matching events ordered by ascending timestamp
	GetEvents(ctx context.Context, q EventQuery) ([]models.RecommendationEvent, error)
}

// EventSink appends recommendation history.
type EventSink interface {
	// SaveEvents inserts events and returns how many were written
	SaveEvents(ctx context.Context, events []models.RecommendationEvent) (int, error)
}

// CalibrationStore persists calibration records append-only.
type CalibrationStore interface {
	// SaveCalibration appends a record and returns its identifier
	SaveCalibration(ctx context.Context, data *models.CalibrationData) (string, error)
	// GetLatestCalibration returns the newest record for market, or nil when none exists
	GetLatestCalibration(ctx context.Context, market string) (*models.CalibrationData, error)
}

// EvaluationStore is the full storage surface used by the evaluation services.
type EvaluationStore interface {
	EventSource
	EventSink
	CalibrationStore
	// ListMarkets returns the distinct markets with events since the given time
	ListMarkets(ctx context.Context, since time.Time) ([]string, error)
}
