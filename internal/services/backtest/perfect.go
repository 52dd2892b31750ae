package backtest

import (
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// PerfectConfidence is the confidence stamped on clairvoyant trades.
const PerfectConfidence = 1.0

// PerfectTrades replays history as a one-step clairvoyant trader: every
// price change between consecutive events becomes a winning trade in the
// direction of the move. Unchanged prices are skipped. Positions are never
// held across more than one step.
func PerfectTrades(history []models.RecommendationEvent, defaultSize float64) []models.TradeResult {
	if defaultSize <= 0 {
		defaultSize = evaluation.DefaultSizeUSD
	}

	var trades []models.TradeResult
	for i := 0; i+1 < len(history); i++ {
		from, to := history[i], history[i+1]
		if from.Price == to.Price {
			continue
		}

		dir := models.DirectionLong
		if to.Price < from.Price {
			dir = models.DirectionShort
		}

		pos := evaluation.Position{
			Market:          from.Market,
			Direction:       dir,
			EntryPrice:      from.Price,
			EntryTime:       from.Timestamp,
			SizeUSD:         from.SizeOr(defaultSize),
			EntryConfidence: PerfectConfidence,
			EntryIndex:      i,
		}
		trades = append(trades, evaluation.CloseTrade(pos, to.Price, to.Timestamp))
	}
	return trades
}
