package main

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/cache"
	"github.com/irfndi/neuratrade-eval/internal/config"
	"github.com/irfndi/neuratrade-eval/internal/database"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/observability"
	"github.com/irfndi/neuratrade-eval/internal/services/backtest"
	"github.com/irfndi/neuratrade-eval/internal/services/calibration"
	"github.com/urfave/cli/v2"
)

// runtimeDeps holds everything a command needs. close releases it.
type runtimeDeps struct {
	cfg          *config.Config
	logger       *zaplogrus.Logger
	db           database.Database
	repo         *database.EvaluationRepository
	redis        *database.RedisClient
	backtests    *backtest.Service
	calibrations *calibration.Service
}

func loadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadFrom(cCtx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// bootstrapCLI opens dependencies for one-shot commands, logging to the
// app's error writer so reports on stdout stay clean.
func bootstrapCLI(cCtx *cli.Context) (*runtimeDeps, error) {
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return nil, err
	}
	logger := zaplogrus.NewConsole(cCtx.App.ErrWriter, zaplogrus.ParseLevel(cfg.LogLevel))
	return openDeps(cCtx.Context, cfg, logger)
}

// openDeps connects storage, runs migrations and builds the evaluation
// services. Redis is optional: without it calibrations are neither cached
// nor locked across processes.
func openDeps(ctx context.Context, cfg *config.Config, logger *zaplogrus.Logger) (*runtimeDeps, error) {
	if err := observability.InitSentry(cfg.Sentry, cfg.Version, cfg.Environment); err != nil {
		logger.WithError(err).Warn("Failed to initialize Sentry")
	}

	db, err := database.NewDatabaseConnectionWithContext(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	d := &runtimeDeps{
		cfg:    cfg,
		logger: logger,
		db:     db,
		repo:   database.NewEvaluationRepository(db, logger),
	}

	var calibrationOpts []calibration.ServiceOption
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis - continuing without cache")
		} else {
			d.redis = redisClient
			ttl := time.Duration(cfg.Evaluation.CacheTTLSeconds) * time.Second
			calibrationOpts = append(calibrationOpts,
				calibration.WithCache(cache.NewCalibrationCache(redisClient.Client, ttl, logger)),
				calibration.WithLocker(redisClient),
			)
		}
	}

	ev := cfg.Evaluation
	d.backtests = backtest.NewService(
		backtest.NewSimulator(backtest.Config{
			DefaultSizeUSD:          ev.DefaultSizeUSD,
			HighConfidenceThreshold: ev.HighConfidenceThreshold,
		}),
		d.repo,
		logger,
		backtest.WithDefaultDays(ev.DefaultBacktestDays),
		backtest.WithDefaultHoldMode(ev.HoldMode),
	)
	d.calibrations = calibration.NewService(
		calibration.NewEngine(engineConfig(ev)),
		d.repo,
		calibration.ServiceConfig{
			WindowDays: ev.CalibrationWindowDays,
			MaxAgeDays: ev.MaxCalibrationAgeDays,
			LockTTL:    time.Duration(ev.LockTTLSeconds) * time.Second,
		},
		logger,
		calibrationOpts...,
	)
	return d, nil
}

func engineConfig(ev config.EvaluationConfig) calibration.EngineConfig {
	return calibration.EngineConfig{
		OpportunityThreshold:       ev.OpportunityThreshold,
		MinConfidenceForEvaluation: ev.MinConfidenceForEvaluation,
		HoldPenaltyWeight:          ev.HoldPenaltyWeight,
		CloseTooEarlyThreshold:     ev.CloseTooEarlyThreshold,
		ClosePenaltyWeight:         ev.ClosePenaltyWeight,
		HighConfidenceThreshold:    ev.HighConfidenceThreshold,
		MinEvents:                  ev.MinCalibrationEvents,
		DefaultSizeUSD:             ev.DefaultSizeUSD,
	}
}

func (d *runtimeDeps) close() {
	if d.redis != nil {
		d.redis.Close()
	}
	if err := d.db.Close(); err != nil {
		d.logger.WithError(err).Error("Failed to close database connection")
	}
	observability.Flush(context.Background())
}
