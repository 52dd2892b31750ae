package backtest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// HoldMode is a reporting flag kept for compatibility with older callers.
// It has no effect on trade simulation.
type HoldMode string

const (
	HoldModeLegacy HoldMode = "legacy"
	HoldModeDual   HoldMode = "dual"

	// DeprecatedHoldMode is the historical default.
	DeprecatedHoldMode = HoldModeLegacy
)

// ParseHoldMode accepts "legacy" or "dual". An empty value is the deprecated default.
func ParseHoldMode(s string) (HoldMode, error) {
	switch HoldMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DeprecatedHoldMode, nil
	case HoldModeLegacy:
		return HoldModeLegacy, nil
	case HoldModeDual:
		return HoldModeDual, nil
	}
	return "", fmt.Errorf("invalid hold mode %q: must be legacy or dual", s)
}

// Config tunes the simulator.
type Config struct {
	DefaultSizeUSD          float64
	HighConfidenceThreshold float64
}

// DefaultConfig returns the standard simulator settings.
func DefaultConfig() Config {
	return Config{
		DefaultSizeUSD:          evaluation.DefaultSizeUSD,
		HighConfidenceThreshold: 0.7,
	}
}

// Simulator replays recommendation history against a clairvoyant baseline.
type Simulator struct {
	cfg     Config
	tracker *evaluation.Tracker
	now     func() time.Time
}

// NewSimulator creates a simulator, filling unset fields from DefaultConfig.
func NewSimulator(cfg Config) *Simulator {
	def := DefaultConfig()
	if cfg.DefaultSizeUSD <= 0 {
		cfg.DefaultSizeUSD = def.DefaultSizeUSD
	}
	if cfg.HighConfidenceThreshold <= 0 || cfg.HighConfidenceThreshold > 1 {
		cfg.HighConfidenceThreshold = def.HighConfidenceThreshold
	}
	return &Simulator{
		cfg:     cfg,
		tracker: evaluation.NewTracker(cfg.DefaultSizeUSD),
		now:     time.Now,
	}
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Run evaluates history, which must be ordered by time. Events from several
// markets are walked per market and their trades merged by entry time.
// Empty history fails with ErrInsufficientData.
func (s *Simulator) Run(history []models.RecommendationEvent, holdMode HoldMode) (*models.BacktestResult, error) {
	if len(history) == 0 {
		return nil, evaluation.NewInsufficientDataError("", 1, 0)
	}
	if holdMode == "" {
		holdMode = DeprecatedHoldMode
	}

	markets, groups := groupByMarket(history)

	var recommended, perfect []models.TradeResult
	for _, market := range markets {
		events := groups[market]
		recommended = append(recommended, s.tracker.Run(events)...)
		perfect = append(perfect, PerfectTrades(events, s.cfg.DefaultSizeUSD)...)
	}
	if len(markets) > 1 {
		sortByEntry(recommended)
		sortByEntry(perfect)
	}

	result := &models.BacktestResult{
		HoldMode:          string(holdMode),
		EventCount:        len(history),
		Markets:           markets,
		Recommended:       Performance(recommended),
		Perfect:           Performance(perfect),
		Actions:           Actions(history, recommended),
		Confidence:        Confidence(recommended, s.cfg.HighConfidenceThreshold),
		RecommendedTrades: recommended,
		PerfectTrades:     perfect,
		GeneratedAt:       s.now().UTC(),
	}
	if len(markets) == 1 {
		result.Market = markets[0]
	}

	sizes := make([]float64, len(recommended))
	for i, tr := range recommended {
		sizes[i] = tr.SizeUSD
	}
	result.Suggestions = suggest(suggestionInput{
		recommended: result.Recommended,
		perfect:     result.Perfect,
		actions:     result.Actions,
		confidence:  result.Confidence,
		holdMode:    holdMode,
		sizes:       sizes,
	})
	return result, nil
}

// groupByMarket splits history per market, keeping first-appearance order.
func groupByMarket(history []models.RecommendationEvent) ([]string, map[string][]models.RecommendationEvent) {
	var markets []string
	groups := make(map[string][]models.RecommendationEvent)
	for _, ev := range history {
		if _, ok := groups[ev.Market]; !ok {
			markets = append(markets, ev.Market)
		}
		groups[ev.Market] = append(groups[ev.Market], ev)
	}
	return markets, groups
}

func sortByEntry(trades []models.TradeResult) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].EntryTime.Before(trades[j].EntryTime)
	})
}
