package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/backtest"
	"github.com/irfndi/neuratrade-eval/internal/services/calibration"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func backtestAction(cCtx *cli.Context) error {
	format, err := outputFormat(cCtx)
	if err != nil {
		return err
	}

	d, err := bootstrapCLI(cCtx)
	if err != nil {
		return err
	}
	defer d.close()

	result, err := d.backtests.Run(cCtx.Context, backtest.Request{
		Market:   strings.TrimSpace(cCtx.String("market")),
		Days:     cCtx.Int("days"),
		HoldMode: cCtx.String("hold-mode"),
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	return backtest.Render(cCtx.App.Writer, result, format)
}

func calibrateAction(cCtx *cli.Context) error {
	format, err := outputFormat(cCtx)
	if err != nil {
		return err
	}

	d, err := bootstrapCLI(cCtx)
	if err != nil {
		return err
	}
	defer d.close()

	windowDays := cCtx.Int("window-days")
	if windowDays <= 0 {
		windowDays = d.cfg.Evaluation.CalibrationWindowDays
	}

	markets := []string{strings.TrimSpace(cCtx.String("market"))}
	if markets[0] == "" {
		since := time.Now().Add(-time.Duration(windowDays) * 24 * time.Hour)
		markets, err = d.repo.ListMarkets(cCtx.Context, since)
		if err != nil {
			return fmt.Errorf("failed to list markets: %w", err)
		}
		if len(markets) == 0 {
			return fmt.Errorf("no markets with events in the last %d days", windowDays)
		}
	}

	records, err := calibrateMarkets(cCtx.Context, d, markets, windowDays, cCtx.Int("concurrency"))
	if err != nil {
		return err
	}
	return calibration.Render(cCtx.App.Writer, records, format)
}

// calibrateMarkets calibrates each market in parallel. With a single market
// its error is returned; with several, failures are logged and skipped
// unless every market fails.
func calibrateMarkets(ctx context.Context, d *runtimeDeps, markets []string, windowDays, concurrency int) ([]*models.CalibrationData, error) {
	if len(markets) == 1 {
		data, err := d.calibrations.ComputeAndSave(ctx, markets[0], windowDays)
		if err != nil {
			return nil, fmt.Errorf("calibration failed for %s: %w", markets[0], err)
		}
		return []*models.CalibrationData{data}, nil
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		records []*models.CalibrationData
		failed  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, market := range markets {
		g.Go(func() error {
			data, err := d.calibrations.ComputeAndSave(gctx, market, windowDays)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				d.logger.WithFields(zaplogrus.Fields{"market": market}).WithError(err).Warn("Skipping market")
				return nil
			}
			records = append(records, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("calibration failed for all %d markets", failed)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Market < records[j].Market })
	return records, nil
}

func applyAction(cCtx *cli.Context) error {
	raw := cCtx.Float64("raw")
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return fmt.Errorf("--raw must be a finite number, got %v", raw)
	}

	d, err := bootstrapCLI(cCtx)
	if err != nil {
		return err
	}
	defer d.close()

	result := d.calibrations.ApplyDetailed(cCtx.Context, raw, cCtx.String("market"))
	return writeJSON(cCtx, result)
}

// staleReport is printed by the stale command.
type staleReport struct {
	Market        string `json:"market"`
	Stale         bool   `json:"stale"`
	MaxAgeDays    int    `json:"max_age_days"`
	CalibrationID string `json:"calibration_id,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func staleAction(cCtx *cli.Context) error {
	d, err := bootstrapCLI(cCtx)
	if err != nil {
		return err
	}
	defer d.close()

	market := cCtx.String("market")
	maxAge := cCtx.Int("max-age-days")
	if maxAge <= 0 {
		maxAge = d.cfg.Evaluation.MaxCalibrationAgeDays
	}

	stale, err := d.calibrations.IsStale(cCtx.Context, market, maxAge)
	if err != nil {
		return fmt.Errorf("staleness check failed: %w", err)
	}

	report := staleReport{Market: market, Stale: stale, MaxAgeDays: maxAge}
	if latest, err := d.calibrations.Latest(cCtx.Context, market); err == nil && latest != nil {
		report.CalibrationID = latest.ID
		report.CreatedAt = latest.CreatedAt.UTC().Format(time.RFC3339)
	}
	return writeJSON(cCtx, report)
}

func outputFormat(cCtx *cli.Context) (string, error) {
	format := strings.ToLower(strings.TrimSpace(cCtx.String("format")))
	switch format {
	case backtest.FormatTable, backtest.FormatJSON, backtest.FormatYAML:
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format %q (expected table, json or yaml)", cCtx.String("format"))
}

func writeJSON(cCtx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
