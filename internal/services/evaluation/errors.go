package evaluation

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when there are too few events to evaluate.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrCalibrationApplication is returned when a stored curve cannot be applied.
	ErrCalibrationApplication = errors.New("calibration application failed")
	// ErrCalibrationInProgress is returned when another worker holds the market's calibration lock.
	ErrCalibrationInProgress = errors.New("calibration already in progress")
)

// InsufficientDataError carries the counts behind an ErrInsufficientData.
type InsufficientDataError struct {
	Market   string
	Required int
	Got      int
	// Unit names what was counted; empty means events.
	Unit string
}

func (e *InsufficientDataError) Error() string {
	market := e.Market
	if market == "" {
		market = "all markets"
	}
	unit := e.Unit
	if unit == "" {
		unit = "events"
	}
	return fmt.Sprintf("insufficient data for %s: need at least %d %s, got %d", market, e.Required, unit, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// NewInsufficientDataError builds an InsufficientDataError.
func NewInsufficientDataError(market string, required, got int) error {
	return &InsufficientDataError{Market: market, Required: required, Got: got}
}
