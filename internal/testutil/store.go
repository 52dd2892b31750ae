package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/pkg/interfaces"
)

// MemoryStore is an in-memory interfaces.EvaluationStore for tests.
// Setting Err makes every call fail with it.
type MemoryStore struct {
	mu           sync.Mutex
	events       []models.RecommendationEvent
	calibrations []*models.CalibrationData
	nextID       int

	Err     error
	Queries []interfaces.EventQuery
}

var _ interfaces.EvaluationStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with events.
func NewMemoryStore(events ...models.RecommendationEvent) *MemoryStore {
	s := &MemoryStore{}
	s.events = append(s.events, events...)
	return s
}

// GetEvents filters like the SQL store: market, [Since, Until), ascending time.
func (s *MemoryStore) GetEvents(_ context.Context, q interfaces.EventQuery) ([]models.RecommendationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Queries = append(s.Queries, q)
	if s.Err != nil {
		return nil, s.Err
	}

	var out []models.RecommendationEvent
	for _, e := range s.events {
		if q.Market != "" && e.Market != q.Market {
			continue
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !e.Timestamp.Before(q.Until) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveEvents(_ context.Context, events []models.RecommendationEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return 0, s.Err
	}
	s.events = append(s.events, events...)
	return len(events), nil
}

func (s *MemoryStore) SaveCalibration(_ context.Context, data *models.CalibrationData) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	s.nextID++
	stored := *data
	stored.ID = fmt.Sprintf("cal-%d", s.nextID)
	s.calibrations = append(s.calibrations, &stored)
	return stored.ID, nil
}

func (s *MemoryStore) GetLatestCalibration(_ context.Context, market string) (*models.CalibrationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	var latest *models.CalibrationData
	for _, c := range s.calibrations {
		if c.Market != market {
			continue
		}
		if latest == nil || !c.CreatedAt.Before(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	seen := make(map[string]bool)
	var markets []string
	for _, e := range s.events {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if !seen[e.Market] {
			seen[e.Market] = true
			markets = append(markets, e.Market)
		}
	}
	sort.Strings(markets)
	return markets, nil
}

// AddCalibration stores data verbatim, keeping its ID and CreatedAt.
func (s *MemoryStore) AddCalibration(data *models.CalibrationData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *data
	s.calibrations = append(s.calibrations, &stored)
}

// Calibrations returns the number of stored calibration records.
func (s *MemoryStore) Calibrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calibrations)
}
