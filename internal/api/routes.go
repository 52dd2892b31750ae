package api

import (
	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade-eval/internal/api/handlers"
	"github.com/irfndi/neuratrade-eval/internal/database"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the services the HTTP API exposes.
type Dependencies struct {
	DB           handlers.HealthChecker
	Redis        *database.RedisClient
	Backtests    handlers.BacktestRunner
	Calibrations handlers.Calibrator
	// MaxAgeDays decides the stale flag on calibration responses.
	MaxAgeDays int
	Version    string
	Logger     *zaplogrus.Logger
	// CalibrationLimit budgets POST /calibration/:market. Zero values use
	// middleware.CalibrationRateLimitConfig.
	CalibrationLimit middleware.RateLimitConfig
}

// SetupRoutes registers health and v1 evaluation routes on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	var redisChecker handlers.HealthChecker
	if deps.Redis != nil {
		redisChecker = deps.Redis
	}
	healthHandler := handlers.NewHealthHandler(deps.DB, redisChecker, deps.Version)

	healthGroup := router.Group("/")
	healthGroup.Use(middleware.HealthCheckTelemetryMiddleware())
	{
		healthGroup.GET("/health", gin.WrapF(healthHandler.HealthCheck))
		healthGroup.HEAD("/health", gin.WrapF(healthHandler.HealthCheck))
		healthGroup.GET("/live", gin.WrapF(healthHandler.LivenessCheck))
	}

	limit := deps.CalibrationLimit
	if limit.Requests <= 0 || limit.Window <= 0 {
		limit = middleware.CalibrationRateLimitConfig()
	}
	var limitStore *redis.Client
	if deps.Redis != nil {
		limitStore = deps.Redis.Client
	}
	limiter := middleware.NewRateLimiter(limit, limitStore, deps.Logger)

	evaluationHandler := handlers.NewEvaluationHandler(deps.Backtests, deps.Calibrations, deps.MaxAgeDays)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelemetryMiddleware())
	{
		v1.GET("/backtest", evaluationHandler.RunBacktest)

		calibrations := v1.Group("/calibration")
		{
			calibrations.POST("/:market", limiter.Middleware(), evaluationHandler.ComputeCalibration)
			calibrations.GET("/:market", evaluationHandler.GetCalibration)
			calibrations.GET("/:market/apply", evaluationHandler.ApplyCalibration)
		}
	}
}
