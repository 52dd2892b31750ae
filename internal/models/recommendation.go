package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Action is the directive carried by a recommendation.
type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

// Actions lists every supported action in report order.
var Actions = []Action{ActionLong, ActionShort, ActionHold, ActionClose}

// ParseAction accepts any casing and surrounding whitespace.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q (expected long, short, hold or close)", s)
	}
	return a, nil
}

// Valid reports whether a is one of the four supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionLong, ActionShort, ActionHold, ActionClose:
		return true
	}
	return false
}

// Direction is the side of an open position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// DirectionOf maps an opening action to its position side.
// Hold and Close do not open positions and report ok=false.
func DirectionOf(a Action) (Direction, bool) {
	switch a {
	case ActionLong:
		return DirectionLong, true
	case ActionShort:
		return DirectionShort, true
	}
	return "", false
}

// RecommendationEvent is one timestamped recommendation for a market.
type RecommendationEvent struct {
	ID         int64     `json:"id,omitempty" yaml:"id,omitempty" db:"id"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp" db:"event_time"`
	Market     string    `json:"market" yaml:"market" db:"market"`
	Price      float64   `json:"price" yaml:"price" db:"price"`
	Action     Action    `json:"action" yaml:"action" db:"action"`
	Confidence float64   `json:"confidence" yaml:"confidence" db:"confidence"`
	SizeUSD    *float64  `json:"size_usd,omitempty" yaml:"size_usd,omitempty" db:"size_usd"`
}

// SizeOr returns the event's size, or def when none was recorded.
func (e RecommendationEvent) SizeOr(def float64) float64 {
	if e.SizeUSD != nil && *e.SizeUSD > 0 {
		return *e.SizeUSD
	}
	return def
}

// Validate checks the invariants every stored event must satisfy.
func (e RecommendationEvent) Validate() error {
	if strings.TrimSpace(e.Market) == "" {
		return fmt.Errorf("market is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if !(e.Price > 0) || math.IsInf(e.Price, 0) {
		return fmt.Errorf("price must be positive, got %v", e.Price)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if e.Confidence < 0 || e.Confidence > 1 || math.IsNaN(e.Confidence) {
		return fmt.Errorf("confidence must be within [0,1], got %v", e.Confidence)
	}
	if e.SizeUSD != nil && !(*e.SizeUSD > 0) {
		return fmt.Errorf("size_usd must be positive when set, got %v", *e.SizeUSD)
	}
	return nil
}

// TradeResult is a closed simulated trade.
// Confidence is the confidence of the entry recommendation.
type TradeResult struct {
	Market     string    `json:"market" yaml:"market"`
	EntryTime  time.Time `json:"entry_time" yaml:"entry_time"`
	ExitTime   time.Time `json:"exit_time" yaml:"exit_time"`
	Direction  Direction `json:"direction" yaml:"direction"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price"`
	ExitPrice  float64   `json:"exit_price" yaml:"exit_price"`
	SizeUSD    float64   `json:"size_usd" yaml:"size_usd"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	PnLUSD     float64   `json:"pnl_usd" yaml:"pnl_usd"`
	PnLPercent float64   `json:"pnl_percent" yaml:"pnl_percent"`
}

// IsWinner reports whether the trade made money.
func (t TradeResult) IsWinner() bool {
	return t.PnLUSD > 0
}
