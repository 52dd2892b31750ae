package models

import "time"

// OutcomeSource tags where a calibration outcome came from.
type OutcomeSource string

const (
	// OutcomeSourceTrade is a real (possibly force-closed) position.
	OutcomeSourceTrade OutcomeSource = "trade"
	// OutcomeSourceHoldPenalty is a synthetic penalty for holding through a move.
	OutcomeSourceHoldPenalty OutcomeSource = "hold_penalty"
	// OutcomeSourceCloseEvaluation is a synthetic judgement of an explicit close.
	OutcomeSourceCloseEvaluation OutcomeSource = "close_evaluation"
)

// TradeOutcome is a single calibration training sample.
type TradeOutcome struct {
	Confidence float64       `json:"confidence" yaml:"confidence"`
	IsWinner   bool          `json:"is_winner" yaml:"is_winner"`
	PnLPercent float64       `json:"pnl_percent" yaml:"pnl_percent"`
	Source     OutcomeSource `json:"source" yaml:"source"`
}

// ConfidenceBucket groups outcomes over a confidence range.
type ConfidenceBucket struct {
	MinConfidence float64        `json:"min_confidence" yaml:"min_confidence"`
	MaxConfidence float64        `json:"max_confidence" yaml:"max_confidence"`
	Outcomes      []TradeOutcome `json:"-" yaml:"-"`
	WinRate       float64        `json:"win_rate" yaml:"win_rate"`
	Count         int            `json:"count" yaml:"count"`
}

// Midpoint is the raw confidence the bucket contributes to a curve.
func (b ConfidenceBucket) Midpoint() float64 {
	return (b.MinConfidence + b.MaxConfidence) / 2
}

// CalibrationPoint is one knot of a piecewise-linear calibration curve.
type CalibrationPoint struct {
	RawConfidence        float64 `json:"raw_confidence" yaml:"raw_confidence"`
	CalibratedConfidence float64 `json:"calibrated_confidence" yaml:"calibrated_confidence"`
}

// CalibrationData is an immutable calibration record for one market.
// Win rates are percentages; bucket win rates are fractions.
type CalibrationData struct {
	ID              string             `json:"id" yaml:"id" db:"id"`
	Market          string             `json:"market" yaml:"market" db:"market"`
	WindowDays      int                `json:"window_days" yaml:"window_days" db:"window_days"`
	Points          []CalibrationPoint `json:"points" yaml:"points" db:"points"`
	Buckets         []ConfidenceBucket `json:"buckets,omitempty" yaml:"buckets,omitempty" db:"buckets"`
	SampleSize      int                `json:"sample_size" yaml:"sample_size" db:"sample_size"`
	EventCount      int                `json:"event_count" yaml:"event_count" db:"event_count"`
	Correlation     float64            `json:"correlation" yaml:"correlation" db:"correlation"`
	HighConfWinRate float64            `json:"high_conf_win_rate" yaml:"high_conf_win_rate" db:"high_conf_win_rate"`
	LowConfWinRate  float64            `json:"low_conf_win_rate" yaml:"low_conf_win_rate" db:"low_conf_win_rate"`
	CreatedAt       time.Time          `json:"created_at" yaml:"created_at" db:"created_at"`
}

// Age returns how old the record is at now.
func (c *CalibrationData) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}
