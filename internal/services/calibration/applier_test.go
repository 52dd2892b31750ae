package calibration

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveOf(points ...models.CalibrationPoint) *models.CalibrationData {
	return &models.CalibrationData{Market: "BTC", Points: points, CreatedAt: t0}
}

func pt(raw, cal float64) models.CalibrationPoint {
	return models.CalibrationPoint{RawConfidence: raw, CalibratedConfidence: cal}
}

func TestApply_LinearInterpolation(t *testing.T) {
	curve := curveOf(pt(0, 0), pt(1, 0.8))

	tests := map[float64]float64{
		0:    0,
		0.25: 0.2,
		0.5:  0.4,
		1:    0.8,
	}
	for raw, want := range tests {
		assert.InDelta(t, want, Apply(raw, curve), 1e-9, "raw=%v", raw)
	}
}

func TestApply_ClampsRawToCurveEnds(t *testing.T) {
	curve := curveOf(pt(0, 0.1), pt(0.5, 0.4), pt(1, 0.9))

	assert.InDelta(t, 0.1, Apply(-0.5, curve), 1e-9)
	assert.InDelta(t, 0.9, Apply(1.5, curve), 1e-9)
}

func TestApply_ExactKnotsReturnCalibratedValue(t *testing.T) {
	curve := curveOf(pt(0, 0), pt(0.35, 0.2), pt(0.85, 1), pt(1, 1))

	assert.Equal(t, 0.2, Apply(0.35, curve))
	assert.Equal(t, 1.0, Apply(0.85, curve))
	assert.InDelta(t, 0.6, Apply(0.6, curve), 1e-9)
}

func TestApply_DegenerateCurves(t *testing.T) {
	assert.Equal(t, 0.42, Apply(0.42, nil))
	assert.Equal(t, 1.0, Apply(3, nil))
	assert.Equal(t, 0.42, Apply(0.42, curveOf()))
	assert.Equal(t, 0.7, Apply(0.1, curveOf(pt(0.5, 0.7))))
}

func TestApply_DuplicateRawConfidence(t *testing.T) {
	curve := curveOf(pt(0, 0), pt(0.5, 0.3), pt(0.5, 0.6), pt(1, 1))

	assert.Equal(t, 0.3, Apply(0.5, curve))
	assert.InDelta(t, 0.8, Apply(0.75, curve), 1e-9)
}

func TestApply_OutputStaysInUnitRange(t *testing.T) {
	curve := curveOf(pt(0, -0.4), pt(1, 1.6))

	for _, raw := range []float64{0.01, 0.1, 0.5, 0.9, 0.99} {
		got := Apply(raw, curve)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestValidateCurve(t *testing.T) {
	tests := map[string]struct {
		points  []models.CalibrationPoint
		wantErr bool
	}{
		"empty":          {nil, false},
		"valid":          {[]models.CalibrationPoint{pt(0, 0), pt(0.5, 0.5), pt(1, 1)}, false},
		"duplicate raw":  {[]models.CalibrationPoint{pt(0, 0), pt(0.5, 0.2), pt(0.5, 0.4)}, false},
		"unsorted":       {[]models.CalibrationPoint{pt(0.5, 0.5), pt(0.2, 0.1)}, true},
		"raw above one":  {[]models.CalibrationPoint{pt(0, 0), pt(1.2, 1)}, true},
		"nan calibrated": {[]models.CalibrationPoint{pt(0, math.NaN())}, true},
		"infinite raw":   {[]models.CalibrationPoint{pt(math.Inf(1), 1)}, true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := ValidateCurve(tt.points)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, evaluation.ErrCalibrationApplication))
		})
	}
}

func TestApplyChecked(t *testing.T) {
	got, err := ApplyChecked(0.5, curveOf(pt(0, 0), pt(1, 0.8)))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got, 1e-9)

	got, err = ApplyChecked(1.4, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	_, err = ApplyChecked(math.NaN(), curveOf(pt(0, 0), pt(1, 1)))
	assert.ErrorIs(t, err, evaluation.ErrCalibrationApplication)

	got, err = ApplyChecked(0.3, curveOf(pt(0.8, 0.5), pt(0.1, 0.2)))
	assert.ErrorIs(t, err, evaluation.ErrCalibrationApplication)
	assert.Equal(t, 0.3, got)
}

func TestIsStaleAt(t *testing.T) {
	maxAge := MaxAgeFromDays(7)
	curve := curveOf(pt(0, 0), pt(1, 1))

	assert.True(t, IsStaleAt(nil, maxAge, t0))
	assert.False(t, IsStaleAt(curve, maxAge, t0.Add(24*time.Hour)))
	assert.False(t, IsStaleAt(curve, maxAge, t0.Add(maxAge)))
	assert.True(t, IsStaleAt(curve, maxAge, t0.Add(maxAge+time.Second)))
}

func TestMaxAgeFromDays(t *testing.T) {
	assert.Equal(t, 72*time.Hour, MaxAgeFromDays(3))
	assert.Equal(t, time.Duration(0), MaxAgeFromDays(0))
}
