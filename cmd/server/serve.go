package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade-eval/internal/api"
	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/middleware"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 30 * time.Second

func serveAction(cCtx *cli.Context) error {
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := zaplogrus.New()
	logger.SetLevel(zaplogrus.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(d),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(zaplogrus.Fields{
			"port":        cfg.Server.Port,
			"version":     cfg.Version,
			"environment": cfg.Environment,
			"database":    d.db.Type(),
			"redis":       d.redis != nil,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func newRouter(d *runtimeDeps) *gin.Engine {
	if d.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.cfg.Server.AllowedOrigins))

	api.SetupRoutes(router, api.Dependencies{
		DB:           d.db,
		Redis:        d.redis,
		Backtests:    d.backtests,
		Calibrations: d.calibrations,
		MaxAgeDays:   d.cfg.Evaluation.MaxCalibrationAgeDays,
		Version:      d.cfg.Version,
		Logger:       d.logger,
	})
	return router
}
