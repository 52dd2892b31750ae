package calibration

import "github.com/irfndi/neuratrade-eval/internal/services/evaluation"

// EngineConfig holds the tunable thresholds of the calibration walk.
// Percent thresholds are expressed in percentage points.
type EngineConfig struct {
	// OpportunityThreshold is the move (in %) a Hold must have missed to be penalised.
	OpportunityThreshold float64
	// MinConfidenceForEvaluation gates Hold and Close evaluation.
	MinConfidenceForEvaluation float64
	// HoldPenaltyWeight scales the synthetic Hold penalty.
	HoldPenaltyWeight float64
	// CloseTooEarlyThreshold is the gain (in %) a Close must have forgone to be penalised.
	CloseTooEarlyThreshold float64
	// ClosePenaltyWeight scales the synthetic early-close penalty.
	ClosePenaltyWeight float64
	// HighConfidenceThreshold splits high and low confidence win rates.
	HighConfidenceThreshold float64
	// MinEvents is the minimum number of events required to calibrate.
	MinEvents int
	// BucketCount is the number of equal-width confidence buckets.
	BucketCount int
	// DefaultSizeUSD is the position size for events without one.
	DefaultSizeUSD float64
}

// DefaultEngineConfig returns the standard calibration thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		OpportunityThreshold:       0.5,
		MinConfidenceForEvaluation: 0.5,
		HoldPenaltyWeight:          1.0,
		CloseTooEarlyThreshold:     0.5,
		ClosePenaltyWeight:         1.0,
		HighConfidenceThreshold:    0.7,
		MinEvents:                  10,
		BucketCount:                10,
		DefaultSizeUSD:             evaluation.DefaultSizeUSD,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	def := DefaultEngineConfig()
	if c.BucketCount <= 0 {
		c.BucketCount = def.BucketCount
	}
	if c.MinEvents <= 0 {
		c.MinEvents = def.MinEvents
	}
	if c.HighConfidenceThreshold <= 0 {
		c.HighConfidenceThreshold = def.HighConfidenceThreshold
	}
	if c.DefaultSizeUSD <= 0 {
		c.DefaultSizeUSD = def.DefaultSizeUSD
	}
	return c
}
