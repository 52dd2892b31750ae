package calibration

import (
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// Engine computes calibration curves from recommendation history.
type Engine struct {
	cfg EngineConfig
	now func() time.Time
}

// NewEngine creates an engine. Zero-valued structural fields in cfg take defaults.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg.withDefaults(), now: time.Now}
}

// Config returns the effective engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Compute builds a calibration record for one market's ordered history.
// It fails with ErrInsufficientData when fewer than MinEvents qualifying
// events exist or no outcome could be extracted.
func (e *Engine) Compute(market string, events []models.RecommendationEvent, windowDays int) (*models.CalibrationData, error) {
	qualifying := make([]models.RecommendationEvent, 0, len(events))
	for _, ev := range events {
		if ev.Action.Valid() {
			qualifying = append(qualifying, ev)
		}
	}
	if len(qualifying) < e.cfg.MinEvents {
		return nil, evaluation.NewInsufficientDataError(market, e.cfg.MinEvents, len(qualifying))
	}

	outcomes := ExtractOutcomes(qualifying, e.cfg)
	if len(outcomes) == 0 {
		return nil, &evaluation.InsufficientDataError{Market: market, Required: 1, Got: 0, Unit: "outcomes"}
	}

	buckets := Isotonic(Bucketize(outcomes, e.cfg.BucketCount))

	confidences := make([]float64, len(outcomes))
	pnls := make([]float64, len(outcomes))
	var highWins, highTotal, lowWins, lowTotal int
	for i, o := range outcomes {
		confidences[i] = o.Confidence
		pnls[i] = o.PnLPercent
		if o.Confidence >= e.cfg.HighConfidenceThreshold {
			highTotal++
			if o.IsWinner {
				highWins++
			}
		} else {
			lowTotal++
			if o.IsWinner {
				lowWins++
			}
		}
	}

	return &models.CalibrationData{
		Market:          market,
		WindowDays:      windowDays,
		Points:          BuildCurve(buckets),
		Buckets:         buckets,
		SampleSize:      len(outcomes),
		EventCount:      len(qualifying),
		Correlation:     evaluation.Pearson(confidences, pnls),
		HighConfWinRate: evaluation.WinRatePercent(highWins, highTotal),
		LowConfWinRate:  evaluation.WinRatePercent(lowWins, lowTotal),
		CreatedAt:       e.now().UTC(),
	}, nil
}
