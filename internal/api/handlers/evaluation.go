package handlers

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade-eval/internal/middleware"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/backtest"
	"github.com/irfndi/neuratrade-eval/internal/services/calibration"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
	"github.com/shopspring/decimal"
)

// BacktestRunner runs backtests.
type BacktestRunner interface {
	Run(ctx context.Context, req backtest.Request) (*models.BacktestResult, error)
}

// Calibrator computes, reads and applies calibrations.
type Calibrator interface {
	ComputeAndSave(ctx context.Context, market string, windowDays int) (*models.CalibrationData, error)
	Latest(ctx context.Context, market string) (*models.CalibrationData, error)
	ApplyDetailed(ctx context.Context, raw float64, market string) calibration.ApplyResult
}

// EvaluationHandler serves backtest and calibration endpoints.
type EvaluationHandler struct {
	backtests    BacktestRunner
	calibrations Calibrator
	maxAgeDays   int
	now          func() time.Time
}

// NewEvaluationHandler creates the handler. maxAgeDays decides the stale
// flag on calibration lookups.
func NewEvaluationHandler(backtests BacktestRunner, calibrations Calibrator, maxAgeDays int) *EvaluationHandler {
	if maxAgeDays <= 0 {
		maxAgeDays = calibration.DefaultServiceConfig().MaxAgeDays
	}
	return &EvaluationHandler{
		backtests:    backtests,
		calibrations: calibrations,
		maxAgeDays:   maxAgeDays,
		now:          time.Now,
	}
}

// BacktestSummary carries the headline USD figures as fixed-point strings.
type BacktestSummary struct {
	RecommendedPnLUSD string `json:"recommended_pnl_usd"`
	PerfectPnLUSD     string `json:"perfect_pnl_usd"`
	MissedPnLUSD      string `json:"missed_pnl_usd"`
}

// BacktestResponse is the JSON body of GET /backtest.
type BacktestResponse struct {
	Summary BacktestSummary        `json:"summary"`
	Result  *models.BacktestResult `json:"result"`
}

// CalibrationResponse is the JSON body of calibration lookups.
type CalibrationResponse struct {
	Calibration *models.CalibrationData `json:"calibration"`
	Stale       bool                    `json:"stale"`
	AgeHours    string                  `json:"age_hours"`
}

// RunBacktest handles GET /api/v1/backtest.
//
// Query parameters: market (empty for all), days, hold_mode, format
// (json, table or yaml).
func (h *EvaluationHandler) RunBacktest(c *gin.Context) {
	days, err := optionalPositiveInt(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	holdMode := c.Query("hold_mode")
	if _, err := backtest.ParseHoldMode(holdMode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", backtest.FormatJSON))

	market := strings.TrimSpace(c.Query("market"))
	middleware.AddSpanAttribute(c, "market", market)

	result, err := h.backtests.Run(c.Request.Context(), backtest.Request{
		Market:   market,
		Days:     days,
		HoldMode: holdMode,
	})
	if err != nil {
		h.writeError(c, err, "backtest")
		return
	}

	switch format {
	case backtest.FormatJSON:
		c.JSON(http.StatusOK, BacktestResponse{Summary: summarize(result), Result: result})
	case backtest.FormatTable, backtest.FormatYAML:
		var buf bytes.Buffer
		if err := backtest.Render(&buf, result, format); err != nil {
			h.writeError(c, err, "render_backtest")
			return
		}
		contentType := "text/plain; charset=utf-8"
		if format == backtest.FormatYAML {
			contentType = "application/yaml"
		}
		c.Data(http.StatusOK, contentType, buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json, table or yaml"})
	}
}

// ComputeCalibration handles POST /api/v1/calibration/:market.
func (h *EvaluationHandler) ComputeCalibration(c *gin.Context) {
	market := c.Param("market")
	windowDays, err := optionalPositiveInt(c.Query("window_days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window_days must be a positive integer"})
		return
	}
	middleware.AddSpanAttribute(c, "market", market)

	data, err := h.calibrations.ComputeAndSave(c.Request.Context(), market, windowDays)
	if err != nil {
		h.writeError(c, err, "calibrate")
		return
	}
	c.JSON(http.StatusCreated, h.calibrationResponse(data))
}

// GetCalibration handles GET /api/v1/calibration/:market.
func (h *EvaluationHandler) GetCalibration(c *gin.Context) {
	market := c.Param("market")

	data, err := h.calibrations.Latest(c.Request.Context(), market)
	if err != nil {
		h.writeError(c, err, "calibration_lookup")
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no calibration for market", "market": market})
		return
	}
	c.JSON(http.StatusOK, h.calibrationResponse(data))
}

// ApplyCalibration handles GET /api/v1/calibration/:market/apply?raw=.
// Fallbacks are not errors: the response carries the reason.
func (h *EvaluationHandler) ApplyCalibration(c *gin.Context) {
	raw, err := strconv.ParseFloat(c.Query("raw"), 64)
	if err != nil || math.IsNaN(raw) || math.IsInf(raw, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw must be a finite number"})
		return
	}
	c.JSON(http.StatusOK, h.calibrations.ApplyDetailed(c.Request.Context(), raw, c.Param("market")))
}

func (h *EvaluationHandler) calibrationResponse(data *models.CalibrationData) CalibrationResponse {
	now := h.now()
	age := decimal.NewFromFloat(data.Age(now).Hours())
	return CalibrationResponse{
		Calibration: data,
		Stale:       calibration.IsStaleAt(data, calibration.MaxAgeFromDays(h.maxAgeDays), now),
		AgeHours:    age.StringFixed(1),
	}
}

func (h *EvaluationHandler) writeError(c *gin.Context, err error, operation string) {
	var insufficient *evaluation.InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"required": insufficient.Required,
			"got":      insufficient.Got,
		})
	case errors.Is(err, evaluation.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, evaluation.ErrCalibrationInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		middleware.RecordError(c, err, operation)
		c.JSON(http.StatusInternalServerError, gin.H{"error": operation + " failed"})
	}
}

func summarize(r *models.BacktestResult) BacktestSummary {
	recommended := decimal.NewFromFloat(r.Recommended.TotalPnLUSD)
	perfect := decimal.NewFromFloat(r.Perfect.TotalPnLUSD)
	return BacktestSummary{
		RecommendedPnLUSD: recommended.StringFixed(2),
		PerfectPnLUSD:     perfect.StringFixed(2),
		MissedPnLUSD:      perfect.Sub(recommended).StringFixed(2),
	}
}

func optionalPositiveInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
