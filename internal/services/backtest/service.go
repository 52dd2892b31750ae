package backtest

import (
	"context"
	"time"

	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
	"github.com/irfndi/neuratrade-eval/pkg/interfaces"
)

// DefaultDays is the look-back window used when a request does not set one.
const DefaultDays = 30

// Request selects the history to backtest.
type Request struct {
	// Market limits the run to one market; empty runs every market.
	Market   string
	Days     int
	HoldMode string
}

// Service loads recommendation history and runs the simulator over it.
type Service struct {
	simulator   *Simulator
	events      interfaces.EventSource
	logger      *zaplogrus.Logger
	defaultDays int
	holdMode    string
	now         func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithDefaultDays overrides DefaultDays.
func WithDefaultDays(days int) ServiceOption {
	return func(s *Service) {
		if days > 0 {
			s.defaultDays = days
		}
	}
}

// WithDefaultHoldMode sets the hold mode used when a request leaves it empty.
func WithDefaultHoldMode(mode string) ServiceOption {
	return func(s *Service) { s.holdMode = mode }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
		s.simulator.now = now
	}
}

// NewService creates a backtest service.
func NewService(simulator *Simulator, events interfaces.EventSource, logger *zaplogrus.Logger, opts ...ServiceOption) *Service {
	if simulator == nil {
		simulator = NewSimulator(DefaultConfig())
	}
	if logger == nil {
		logger = zaplogrus.NewNop()
	}
	s := &Service{
		simulator:   simulator,
		events:      events,
		logger:      logger,
		defaultDays: DefaultDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run backtests the last req.Days of history. Storage errors are returned
// unchanged; an empty window fails with ErrInsufficientData.
func (s *Service) Run(ctx context.Context, req Request) (*models.BacktestResult, error) {
	if req.HoldMode == "" {
		req.HoldMode = s.holdMode
	}
	holdMode, err := ParseHoldMode(req.HoldMode)
	if err != nil {
		return nil, err
	}
	days := req.Days
	if days <= 0 {
		days = s.defaultDays
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	history, err := s.events.GetEvents(ctx, interfaces.EventQuery{Market: req.Market, Since: since})
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, evaluation.NewInsufficientDataError(req.Market, 1, 0)
	}

	result, err := s.simulator.Run(history, holdMode)
	if err != nil {
		return nil, err
	}
	result.Days = days
	if req.Market != "" {
		result.Market = req.Market
	}

	s.logger.WithFields(zaplogrus.Fields{
		"market":          req.Market,
		"days":            days,
		"events":          result.EventCount,
		"trades":          result.Recommended.TradeCount,
		"win_rate":        result.Recommended.WinRate,
		"total_pnl_usd":   result.Recommended.TotalPnLUSD,
		"perfect_pnl_usd": result.Perfect.TotalPnLUSD,
		"suggestions":     len(result.Suggestions),
		"hold_mode":       result.HoldMode,
	}).Info("Backtest completed")

	return result, nil
}
