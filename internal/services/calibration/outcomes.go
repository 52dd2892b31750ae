package calibration

import (
	"math"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// ExtractOutcomes walks events for one market and returns the real and
// synthetic calibration outcomes in emission order.
func ExtractOutcomes(events []models.RecommendationEvent, cfg EngineConfig) []models.TradeOutcome {
	cfg = cfg.withDefaults()
	c := &outcomeCollector{cfg: cfg, events: events}
	evaluation.NewTracker(cfg.DefaultSizeUSD).Walk(events, c)
	return c.outcomes
}

type outcomeCollector struct {
	cfg      EngineConfig
	events   []models.RecommendationEvent
	outcomes []models.TradeOutcome
}

func (c *outcomeCollector) emit(confidence float64, winner bool, pnl float64, src models.OutcomeSource) {
	c.outcomes = append(c.outcomes, models.TradeOutcome{
		Confidence: confidence,
		IsWinner:   winner,
		PnLPercent: pnl,
		Source:     src,
	})
}

// PositionClosed records the entry decision's result against the entry confidence.
func (c *outcomeCollector) PositionClosed(pos evaluation.Position, exit evaluation.Step, _ evaluation.CloseReason) {
	pnl := evaluation.PnLPercent(pos.Direction, pos.EntryPrice, exit.Event.Price)
	c.emit(c.entryConfidence(pos), pnl > 0, pnl, models.OutcomeSourceTrade)
}

// HoldObserved penalises a confident Hold that sat through a tradable move.
func (c *outcomeCollector) HoldObserved(step evaluation.Step, _ *evaluation.Position) {
	if step.Next == nil || step.Event.Confidence < c.cfg.MinConfidenceForEvaluation {
		return
	}

	price, next := step.Event.Price, step.Next.Price
	pnlLong := evaluation.PnLPercent(models.DirectionLong, price, next)
	pnlShort := evaluation.PnLPercent(models.DirectionShort, price, next)
	if pnlLong <= c.cfg.OpportunityThreshold && pnlShort <= c.cfg.OpportunityThreshold {
		return
	}

	missed := math.Max(pnlLong, pnlShort)
	c.emit(step.Event.Confidence, false, -math.Abs(missed)*c.cfg.HoldPenaltyWeight, models.OutcomeSourceHoldPenalty)
}

// CloseRequested judges an explicit Close against the next price.
func (c *outcomeCollector) CloseRequested(step evaluation.Step, pos evaluation.Position) {
	if step.Next == nil || step.Event.Confidence < c.cfg.MinConfidenceForEvaluation {
		return
	}

	pnlAtClose := evaluation.PnLPercent(pos.Direction, pos.EntryPrice, step.Event.Price)
	pnlIfHeld := evaluation.PnLPercent(pos.Direction, pos.EntryPrice, step.Next.Price)
	missed := pnlIfHeld - pnlAtClose

	if missed > c.cfg.CloseTooEarlyThreshold {
		c.emit(step.Event.Confidence, false, -math.Abs(missed)*c.cfg.ClosePenaltyWeight, models.OutcomeSourceCloseEvaluation)
		return
	}
	// Reward is the drawdown avoided by closing.
	c.emit(step.Event.Confidence, true, math.Max(0, -missed), models.OutcomeSourceCloseEvaluation)
}

func (c *outcomeCollector) entryConfidence(pos evaluation.Position) float64 {
	if pos.EntryIndex >= 0 && pos.EntryIndex < len(c.events) {
		return c.events[pos.EntryIndex].Confidence
	}
	return pos.EntryConfidence
}
