package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// Apply maps a raw confidence through curve. A nil curve returns the
// clamped raw value.
func Apply(raw float64, curve *models.CalibrationData) float64 {
	if curve == nil {
		return evaluation.Clamp(raw, 0, 1)
	}
	return ApplyPoints(raw, curve.Points)
}

// ApplyPoints linearly interpolates raw through points sorted by raw confidence.
func ApplyPoints(raw float64, points []models.CalibrationPoint) float64 {
	raw = evaluation.Clamp(raw, 0, 1)

	switch len(points) {
	case 0:
		return raw
	case 1:
		return points[0].CalibratedConfidence
	}

	lo, hi := points[0], points[len(points)-1]
	for i := 0; i+1 < len(points); i++ {
		if points[i].RawConfidence <= raw && raw <= points[i+1].RawConfidence {
			lo, hi = points[i], points[i+1]
			break
		}
	}

	if raw == lo.RawConfidence {
		return lo.CalibratedConfidence
	}
	if raw == hi.RawConfidence {
		return hi.CalibratedConfidence
	}
	if hi.RawConfidence == lo.RawConfidence {
		return lo.CalibratedConfidence
	}

	frac := (raw - lo.RawConfidence) / (hi.RawConfidence - lo.RawConfidence)
	return evaluation.Clamp(lo.CalibratedConfidence+frac*(hi.CalibratedConfidence-lo.CalibratedConfidence), 0, 1)
}

// ValidateCurve rejects curves that cannot be interpolated meaningfully.
// Errors wrap ErrCalibrationApplication.
func ValidateCurve(points []models.CalibrationPoint) error {
	prev := math.Inf(-1)
	for i, p := range points {
		if !isFinite(p.RawConfidence) || !isFinite(p.CalibratedConfidence) {
			return fmt.Errorf("%w: point %d is not finite", evaluation.ErrCalibrationApplication, i)
		}
		if p.RawConfidence < 0 || p.RawConfidence > 1 {
			return fmt.Errorf("%w: point %d raw confidence %v outside [0,1]", evaluation.ErrCalibrationApplication, i, p.RawConfidence)
		}
		if p.RawConfidence < prev {
			return fmt.Errorf("%w: points not sorted at index %d", evaluation.ErrCalibrationApplication, i)
		}
		prev = p.RawConfidence
	}
	return nil
}

// ApplyChecked validates the curve before applying it.
func ApplyChecked(raw float64, curve *models.CalibrationData) (float64, error) {
	if math.IsNaN(raw) {
		return raw, fmt.Errorf("%w: raw confidence is NaN", evaluation.ErrCalibrationApplication)
	}
	if curve == nil {
		return evaluation.Clamp(raw, 0, 1), nil
	}
	if err := ValidateCurve(curve.Points); err != nil {
		return raw, err
	}
	return ApplyPoints(raw, curve.Points), nil
}

// IsStaleAt reports whether curve is missing or older than maxAge at now.
func IsStaleAt(curve *models.CalibrationData, maxAge time.Duration, now time.Time) bool {
	if curve == nil {
		return true
	}
	return curve.Age(now) > maxAge
}

// MaxAgeFromDays converts a day count into a duration.
func MaxAgeFromDays(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
