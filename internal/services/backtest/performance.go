package backtest

import (
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
	"github.com/shopspring/decimal"
)

// Performance summarises trades. Sums are accumulated in decimal so long
// histories do not drift.
func Performance(trades []models.TradeResult) models.StrategyPerformance {
	perf := models.StrategyPerformance{TradeCount: len(trades)}
	if len(trades) == 0 {
		return perf
	}

	totalPnL := decimal.Zero
	totalSize := decimal.Zero
	totalPct := decimal.Zero
	perf.BestTradePnLUSD = trades[0].PnLUSD
	perf.WorstTradePnLUSD = trades[0].PnLUSD

	for _, tr := range trades {
		totalPnL = totalPnL.Add(decimal.NewFromFloat(tr.PnLUSD))
		totalSize = totalSize.Add(decimal.NewFromFloat(tr.SizeUSD))
		totalPct = totalPct.Add(decimal.NewFromFloat(tr.PnLPercent))

		if tr.IsWinner() {
			perf.WinningTrades++
		} else {
			perf.LosingTrades++
		}
		if tr.PnLUSD > perf.BestTradePnLUSD {
			perf.BestTradePnLUSD = tr.PnLUSD
		}
		if tr.PnLUSD < perf.WorstTradePnLUSD {
			perf.WorstTradePnLUSD = tr.PnLUSD
		}
	}

	n := decimal.NewFromInt(int64(len(trades)))
	perf.TotalPnLUSD = totalPnL.InexactFloat64()
	if !totalSize.IsZero() {
		perf.TotalReturnPercent = totalPnL.Div(totalSize).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	perf.WinRate = evaluation.WinRatePercent(perf.WinningTrades, len(trades))
	perf.AvgTradeReturnUSD = totalPnL.Div(n).InexactFloat64()
	perf.AvgTradeReturnPercent = totalPct.Div(n).InexactFloat64()
	return perf
}

// Actions counts every action in history. Long and Short also carry the
// statistics of the trades they opened.
func Actions(history []models.RecommendationEvent, trades []models.TradeResult) models.ActionBreakdown {
	var breakdown models.ActionBreakdown
	for _, ev := range history {
		switch ev.Action {
		case models.ActionLong:
			breakdown.Long.Count++
		case models.ActionShort:
			breakdown.Short.Count++
		case models.ActionHold:
			breakdown.Hold.Count++
		case models.ActionClose:
			breakdown.Close.Count++
		}
	}

	var longs, shorts []models.TradeResult
	for _, tr := range trades {
		if tr.Direction == models.DirectionShort {
			shorts = append(shorts, tr)
		} else {
			longs = append(longs, tr)
		}
	}
	fillTradeStats(&breakdown.Long, longs)
	fillTradeStats(&breakdown.Short, shorts)
	return breakdown
}

func fillTradeStats(stats *models.ActionStats, trades []models.TradeResult) {
	perf := Performance(trades)
	stats.TradeCount = perf.TradeCount
	stats.WinRate = perf.WinRate
	stats.AvgPnLUSD = perf.AvgTradeReturnUSD
	stats.AvgPnLPercent = perf.AvgTradeReturnPercent
}

// Confidence splits trades at threshold and correlates confidence with
// percentage return.
func Confidence(trades []models.TradeResult, threshold float64) models.ConfidenceAnalysis {
	analysis := models.ConfidenceAnalysis{Threshold: threshold}

	var highWins, lowWins int
	confidences := make([]float64, len(trades))
	returns := make([]float64, len(trades))
	for i, tr := range trades {
		confidences[i] = tr.Confidence
		returns[i] = tr.PnLPercent
		if tr.Confidence >= threshold {
			analysis.HighConfidenceTrades++
			if tr.IsWinner() {
				highWins++
			}
		} else {
			analysis.LowConfidenceTrades++
			if tr.IsWinner() {
				lowWins++
			}
		}
	}

	analysis.HighConfidenceWinRate = evaluation.WinRatePercent(highWins, analysis.HighConfidenceTrades)
	analysis.LowConfidenceWinRate = evaluation.WinRatePercent(lowWins, analysis.LowConfidenceTrades)
	analysis.Correlation = evaluation.Pearson(confidences, returns)
	return analysis
}
