package models

import "time"

// StrategyPerformance summarises a set of closed trades.
type StrategyPerformance struct {
	TradeCount            int     `json:"trade_count" yaml:"trade_count"`
	WinningTrades         int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades          int     `json:"losing_trades" yaml:"losing_trades"`
	TotalPnLUSD           float64 `json:"total_pnl_usd" yaml:"total_pnl_usd"`
	TotalReturnPercent    float64 `json:"total_return_percent" yaml:"total_return_percent"`
	WinRate               float64 `json:"win_rate" yaml:"win_rate"`
	AvgTradeReturnUSD     float64 `json:"avg_trade_return_usd" yaml:"avg_trade_return_usd"`
	AvgTradeReturnPercent float64 `json:"avg_trade_return_percent" yaml:"avg_trade_return_percent"`
	BestTradePnLUSD       float64 `json:"best_trade_pnl_usd" yaml:"best_trade_pnl_usd"`
	WorstTradePnLUSD      float64 `json:"worst_trade_pnl_usd" yaml:"worst_trade_pnl_usd"`
}

// ActionStats counts one action in the raw history. Trade statistics are
// only populated for actions that open positions.
type ActionStats struct {
	Count         int     `json:"count" yaml:"count"`
	TradeCount    int     `json:"trade_count,omitempty" yaml:"trade_count,omitempty"`
	WinRate       float64 `json:"win_rate,omitempty" yaml:"win_rate,omitempty"`
	AvgPnLUSD     float64 `json:"avg_pnl_usd,omitempty" yaml:"avg_pnl_usd,omitempty"`
	AvgPnLPercent float64 `json:"avg_pnl_percent,omitempty" yaml:"avg_pnl_percent,omitempty"`
}

// ActionBreakdown holds per-action statistics.
type ActionBreakdown struct {
	Long  ActionStats `json:"long" yaml:"long"`
	Short ActionStats `json:"short" yaml:"short"`
	Hold  ActionStats `json:"hold" yaml:"hold"`
	Close ActionStats `json:"close" yaml:"close"`
}

// ConfidenceAnalysis compares high and low confidence trades.
type ConfidenceAnalysis struct {
	Threshold             float64 `json:"threshold" yaml:"threshold"`
	HighConfidenceTrades  int     `json:"high_confidence_trades" yaml:"high_confidence_trades"`
	HighConfidenceWinRate float64 `json:"high_confidence_win_rate" yaml:"high_confidence_win_rate"`
	LowConfidenceTrades   int     `json:"low_confidence_trades" yaml:"low_confidence_trades"`
	LowConfidenceWinRate  float64 `json:"low_confidence_win_rate" yaml:"low_confidence_win_rate"`
	Correlation           float64 `json:"correlation" yaml:"correlation"`
}

// BacktestResult is the full report of one backtest run.
type BacktestResult struct {
	Market            string              `json:"market" yaml:"market"`
	Days              int                 `json:"days" yaml:"days"`
	HoldMode          string              `json:"hold_mode" yaml:"hold_mode"`
	EventCount        int                 `json:"event_count" yaml:"event_count"`
	Markets           []string            `json:"markets" yaml:"markets"`
	Recommended       StrategyPerformance `json:"recommended" yaml:"recommended"`
	Perfect           StrategyPerformance `json:"perfect" yaml:"perfect"`
	Actions           ActionBreakdown     `json:"actions" yaml:"actions"`
	Confidence        ConfidenceAnalysis  `json:"confidence" yaml:"confidence"`
	Suggestions       []string            `json:"suggestions" yaml:"suggestions"`
	RecommendedTrades []TradeResult       `json:"recommended_trades" yaml:"recommended_trades"`
	PerfectTrades     []TradeResult       `json:"perfect_trades,omitempty" yaml:"perfect_trades,omitempty"`
	GeneratedAt       time.Time           `json:"generated_at" yaml:"generated_at"`
}
