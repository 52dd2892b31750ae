package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Reports go to out; logs go to errOut.
func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "neuratrade-eval",
		Usage:     "Backtest and calibrate trade recommendations",
		Version:   version,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (json or yaml)",
				EnvVars: []string{"NEURATRADE_EVAL_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveAction,
			},
			{
				Name:   "backtest",
				Usage:  "Compare recommendations against perfect hindsight",
				Action: backtestAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "market", Aliases: []string{"m"}, Usage: "Market to backtest (default: all markets)"},
					&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Look-back window in days (default: evaluation.default_backtest_days)"},
					&cli.StringFlag{Name: "hold-mode", Usage: "Perfect-strategy hold handling: legacy or dual (default: evaluation.hold_mode)"},
					formatFlag(),
				},
			},
			{
				Name:   "calibrate",
				Usage:  "Compute and store calibration curves",
				Action: calibrateAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "market", Aliases: []string{"m"}, Usage: "Market to calibrate (default: every market with recent events)"},
					&cli.IntFlag{Name: "window-days", Aliases: []string{"w"}, Usage: "Training window in days (default: evaluation.calibration_window_days)"},
					&cli.IntFlag{Name: "concurrency", Value: 4, Usage: "Markets calibrated in parallel"},
					formatFlag(),
				},
			},
			{
				Name:   "apply",
				Usage:  "Calibrate a raw confidence with the latest curve",
				Action: applyAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "market", Aliases: []string{"m"}, Usage: "Market whose curve to use", Required: true},
					&cli.Float64Flag{Name: "raw", Usage: "Raw confidence", Required: true},
				},
			},
			{
				Name:   "stale",
				Usage:  "Report whether a market's calibration is missing or too old",
				Action: staleAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "market", Aliases: []string{"m"}, Usage: "Market to check", Required: true},
					&cli.IntFlag{Name: "max-age-days", Usage: "Maximum age in days (default: evaluation.max_calibration_age_days)"},
				},
			},
			{
				Name:   "seed",
				Usage:  "Import recommendation events from a json or yaml file",
				Action: seedAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Events file", Required: true},
				},
			},
		},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"o"},
		Value:   "table",
		Usage:   "Output format: table, json or yaml",
	}
}
