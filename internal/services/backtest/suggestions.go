package backtest

import (
	"fmt"
	"math"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// Suggestion thresholds.
const (
	MaxSuggestions           = 6
	correlationThreshold     = 0.3
	directionalBiasThreshold = 10.0
	perfectGapThreshold      = 70.0
	minHealthyWinRate        = 50.0
	sizeDispersionRatio      = 0.5
)

type suggestionInput struct {
	recommended models.StrategyPerformance
	perfect     models.StrategyPerformance
	actions     models.ActionBreakdown
	confidence  models.ConfidenceAnalysis
	holdMode    HoldMode
	sizes       []float64
}

type suggestionRule func(in suggestionInput) (string, bool)

// suggestionRules are evaluated in priority order.
var suggestionRules = []suggestionRule{
	recalibrateRule,
	correlationRule,
	directionalBiasRule,
	perfectGapRule,
	holdModeRule,
	winRateRule,
	sizingRule,
}

// suggest returns up to MaxSuggestions improvement hints.
func suggest(in suggestionInput) []string {
	out := make([]string, 0, MaxSuggestions)
	for _, rule := range suggestionRules {
		if len(out) >= MaxSuggestions {
			break
		}
		if s, ok := rule(in); ok {
			out = append(out, s)
		}
	}
	return out
}

func recalibrateRule(in suggestionInput) (string, bool) {
	c := in.confidence
	if c.HighConfidenceWinRate >= c.LowConfidenceWinRate {
		return "", false
	}
	return fmt.Sprintf("High-confidence trades win less often (%.1f%%) than low-confidence trades (%.1f%%); recalibrate confidence scores",
		c.HighConfidenceWinRate, c.LowConfidenceWinRate), true
}

func correlationRule(in suggestionInput) (string, bool) {
	r := in.confidence.Correlation
	switch {
	case r > correlationThreshold:
		return fmt.Sprintf("Confidence tracks returns (r=%.2f); scale position size with confidence", r), true
	case r < -correlationThreshold:
		return fmt.Sprintf("Confidence moves against returns (r=%.2f); invert confidence weighting", r), true
	}
	return "", false
}

func directionalBiasRule(in suggestionInput) (string, bool) {
	long, short := in.actions.Long.WinRate, in.actions.Short.WinRate
	if math.Abs(long-short) <= directionalBiasThreshold {
		return "", false
	}
	if long > short {
		return fmt.Sprintf("Long trades win %.1f%% vs %.1f%% for shorts; bias recommendations toward longs", long, short), true
	}
	return fmt.Sprintf("Short trades win %.1f%% vs %.1f%% for longs; bias recommendations toward shorts", short, long), true
}

func perfectGapRule(in suggestionInput) (string, bool) {
	perfect := in.perfect.TotalPnLUSD
	if perfect <= 0 {
		return "", false
	}
	gap := (perfect - in.recommended.TotalPnLUSD) / perfect * 100
	if gap <= perfectGapThreshold {
		return "", false
	}
	return fmt.Sprintf("Recommendations leave %.1f%% of the perfect-strategy PnL on the table; react faster to price moves", gap), true
}

func holdModeRule(in suggestionInput) (string, bool) {
	if in.holdMode != DeprecatedHoldMode {
		return "", false
	}
	return fmt.Sprintf("Hold mode %q is deprecated; run the dual-mode comparison", string(in.holdMode)), true
}

func winRateRule(in suggestionInput) (string, bool) {
	if in.recommended.WinRate >= minHealthyWinRate {
		return "", false
	}
	return fmt.Sprintf("Win rate %.1f%% is below %.0f%%; raise the confidence threshold or filter weak signals",
		in.recommended.WinRate, minHealthyWinRate), true
}

func sizingRule(in suggestionInput) (string, bool) {
	if len(in.sizes) == 0 {
		return "", false
	}
	mean, std := evaluation.Mean(in.sizes), evaluation.StdDev(in.sizes)
	if std <= sizeDispersionRatio*mean {
		return "", false
	}
	return fmt.Sprintf("Position sizes vary widely (std %.0f vs mean %.0f USD); use normalized or volatility-based sizing", std, mean), true
}
