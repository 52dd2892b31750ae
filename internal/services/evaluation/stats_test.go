package evaluation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Zero(t, StdDev(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3}, []float64{2, 4, 6}, 1},
		{"perfect negative", []float64{1, 2, 3}, []float64{3, 2, 1}, -1},
		{"single pair", []float64{1}, []float64{1}, 0},
		{"constant x", []float64{0.8, 0.8, 0.8}, []float64{1, -2, 3}, 0},
		{"constant y", []float64{0.1, 0.5, 0.9}, []float64{4, 4, 4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Pearson(tt.xs, tt.ys), 1e-9)
		})
	}
}

func TestWinRatePercentAndClamp(t *testing.T) {
	assert.Zero(t, WinRatePercent(0, 0))
	assert.InDelta(t, 25.0, WinRatePercent(1, 4), 1e-12)

	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.3, Clamp(0.3, 0, 1))
}

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError("ETH", 10, 3)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrInsufficientData))
	assert.EqualError(t, err, "insufficient data for ETH: need at least 10 events, got 3")

	var typed *InsufficientDataError
	assert.True(t, errors.As(err, &typed))
	assert.Equal(t, 3, typed.Got)

	assert.Contains(t, NewInsufficientDataError("", 1, 0).Error(), "all markets")
}
