package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/observability"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
	"github.com/irfndi/neuratrade-eval/pkg/interfaces"
)

// Store is the storage surface the calibration service needs.
type Store interface {
	interfaces.EventSource
	interfaces.CalibrationStore
}

// CurveCache caches the latest calibration per market.
type CurveCache interface {
	Get(ctx context.Context, market string) (*models.CalibrationData, bool)
	Set(ctx context.Context, data *models.CalibrationData) error
	Invalidate(ctx context.Context, market string) error
}

// Locker serialises calibration of a market across processes.
type Locker interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// Fallback reasons reported by ApplyDetailed.
const (
	ReasonApplied      = "applied"
	ReasonMissing      = "missing"
	ReasonStale        = "stale"
	ReasonLookupFailed = "lookup_failed"
	ReasonInvalidCurve = "invalid_curve"
)

// ServiceConfig configures the calibration service.
type ServiceConfig struct {
	// WindowDays is used when ComputeAndSave is called with a non-positive window.
	WindowDays int
	// MaxAgeDays is the age beyond which a calibration is ignored by Apply.
	MaxAgeDays int
	// LockTTL bounds how long a market calibration lock is held.
	LockTTL time.Duration
}

// DefaultServiceConfig returns the standard service settings.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		WindowDays: 30,
		MaxAgeDays: 7,
		LockTTL:    2 * time.Minute,
	}
}

// ApplyResult describes how a raw confidence was adjusted.
type ApplyResult struct {
	Market        string  `json:"market"`
	Raw           float64 `json:"raw_confidence"`
	Calibrated    float64 `json:"calibrated_confidence"`
	Applied       bool    `json:"applied"`
	Reason        string  `json:"reason"`
	CalibrationID string  `json:"calibration_id,omitempty"`
}

// Service computes, stores and applies calibrations.
type Service struct {
	engine  *Engine
	store   Store
	cache   CurveCache
	locker  Locker
	config  ServiceConfig
	logger  *zaplogrus.Logger
	now     func() time.Time
	capture func(err error, tags map[string]string)
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithCache enables the latest-calibration cache.
func WithCache(c CurveCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithLocker enables per-market calibration locking.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) { s.locker = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
		s.engine.now = now
	}
}

// WithErrorReporter overrides where unexpected application failures are reported.
func WithErrorReporter(fn func(err error, tags map[string]string)) ServiceOption {
	return func(s *Service) { s.capture = fn }
}

// NewService creates a calibration service.
func NewService(engine *Engine, store Store, cfg ServiceConfig, logger *zaplogrus.Logger, opts ...ServiceOption) *Service {
	def := DefaultServiceConfig()
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = def.MaxAgeDays
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if logger == nil {
		logger = zaplogrus.NewNop()
	}
	if engine == nil {
		engine = NewEngine(DefaultEngineConfig())
	}

	s := &Service{
		engine:  engine,
		store:   store,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
		capture: observability.CaptureException,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeAndSave calibrates market over the last windowDays of history and
// appends the result to the store.
func (s *Service) ComputeAndSave(ctx context.Context, market string, windowDays int) (*models.CalibrationData, error) {
	if market == "" {
		return nil, fmt.Errorf("market is required")
	}
	if windowDays <= 0 {
		windowDays = s.config.WindowDays
	}

	if s.locker != nil {
		key := "calibration:lock:" + market
		token, acquired, err := s.locker.AcquireLock(ctx, key, s.config.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire calibration lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %s", evaluation.ErrCalibrationInProgress, market)
		}
		defer func() {
			if _, err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
				s.logger.WithError(err).WithField("market", market).Warn("Failed to release calibration lock")
			}
		}()
	}

	since := s.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	events, err := s.store.GetEvents(ctx, interfaces.EventQuery{Market: market, Since: since})
	if err != nil {
		return nil, err
	}

	data, err := s.engine.Compute(market, events, windowDays)
	if err != nil {
		return nil, err
	}

	id, err := s.store.SaveCalibration(ctx, data)
	if err != nil {
		return nil, err
	}
	data.ID = id

	if s.cache != nil {
		if err := s.cache.Set(ctx, data); err != nil {
			s.logger.WithError(err).WithField("market", market).Warn("Failed to cache calibration")
			// A failed write must not leave the previous record cached.
			if err := s.cache.Invalidate(ctx, market); err != nil {
				s.logger.WithError(err).WithField("market", market).Warn("Failed to invalidate cached calibration")
			}
		}
	}

	s.logger.WithFields(zaplogrus.Fields{
		"market":      market,
		"window_days": windowDays,
		"events":      data.EventCount,
		"outcomes":    data.SampleSize,
		"points":      len(data.Points),
		"correlation": data.Correlation,
	}).Info("Calibration computed")

	return data, nil
}

// Latest returns the newest calibration for market, or nil when none exists.
func (s *Service) Latest(ctx context.Context, market string) (*models.CalibrationData, error) {
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, market); ok {
			return data, nil
		}
	}

	data, err := s.store.GetLatestCalibration(ctx, market)
	if err != nil {
		return nil, err
	}
	if data != nil && s.cache != nil {
		if err := s.cache.Set(ctx, data); err != nil {
			s.logger.WithError(err).WithField("market", market).Debug("Failed to warm calibration cache")
		}
	}
	return data, nil
}

// IsStale reports whether market has no calibration or one older than maxAgeDays.
func (s *Service) IsStale(ctx context.Context, market string, maxAgeDays int) (bool, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = s.config.MaxAgeDays
	}
	data, err := s.Latest(ctx, market)
	if err != nil {
		return false, err
	}
	return IsStaleAt(data, MaxAgeFromDays(maxAgeDays), s.now()), nil
}

// Apply returns the calibrated confidence for market, falling back to the
// raw score when no usable calibration exists.
func (s *Service) Apply(ctx context.Context, raw float64, market string) float64 {
	return s.ApplyDetailed(ctx, raw, market).Calibrated
}

// ApplyDetailed is Apply with the fallback reason exposed.
func (s *Service) ApplyDetailed(ctx context.Context, raw float64, market string) ApplyResult {
	res := ApplyResult{Market: market, Raw: raw, Calibrated: raw}

	data, err := s.Latest(ctx, market)
	if err != nil {
		res.Reason = ReasonLookupFailed
		s.fallback(res, err)
		return res
	}
	if data == nil {
		res.Reason = ReasonMissing
		s.fallback(res, nil)
		return res
	}
	res.CalibrationID = data.ID

	if IsStaleAt(data, MaxAgeFromDays(s.config.MaxAgeDays), s.now()) {
		res.Reason = ReasonStale
		s.fallback(res, nil)
		return res
	}

	calibrated, err := ApplyChecked(raw, data)
	if err != nil {
		res.Reason = ReasonInvalidCurve
		s.capture(err, map[string]string{"market": market, "calibration_id": data.ID})
		s.fallback(res, err)
		return res
	}

	res.Calibrated = calibrated
	res.Applied = true
	res.Reason = ReasonApplied
	return res
}

func (s *Service) fallback(res ApplyResult, cause error) {
	entry := s.logger.WithFields(zaplogrus.Fields{
		"market":         res.Market,
		"reason":         res.Reason,
		"raw_confidence": res.Raw,
	})
	if cause != nil {
		entry = entry.WithError(cause)
	}
	if errors.Is(cause, evaluation.ErrCalibrationApplication) || res.Reason == ReasonLookupFailed {
		entry.Warn("Calibration unavailable, using raw confidence")
		return
	}
	entry.Info("Calibration unavailable, using raw confidence")
}
