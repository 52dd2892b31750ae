package calibration

import (
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// BuildCurve turns calibrated buckets into curve points. The curve starts
// at (0,0) and places one point at each bucket midpoint. When the last
// midpoint is below 1.0, the terminal point at 1.0 repeats the previous
// calibrated value instead of being derived from data.
func BuildCurve(buckets []models.ConfidenceBucket) []models.CalibrationPoint {
	points := make([]models.CalibrationPoint, 0, len(buckets)+2)
	points = append(points, models.CalibrationPoint{RawConfidence: 0, CalibratedConfidence: 0})

	for _, b := range buckets {
		points = append(points, models.CalibrationPoint{
			RawConfidence:        b.Midpoint(),
			CalibratedConfidence: evaluation.Clamp(b.WinRate, 0, 1),
		})
	}

	last := points[len(points)-1]
	if last.RawConfidence < 1.0 {
		points = append(points, models.CalibrationPoint{
			RawConfidence:        1.0,
			CalibratedConfidence: last.CalibratedConfidence,
		})
	}
	return points
}
