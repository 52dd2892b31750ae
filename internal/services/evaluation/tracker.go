package evaluation

import (
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
)

// DefaultSizeUSD is used for events that carry no size.
const DefaultSizeUSD = 1000.0

// CloseReason says why a position was closed.
type CloseReason string

const (
	CloseReasonFlip      CloseReason = "flip"
	CloseReasonExplicit  CloseReason = "close"
	CloseReasonEndOfData CloseReason = "end_of_data"
)

// Position is the tracker's open exposure.
type Position struct {
	Market          string
	Direction       models.Direction
	EntryPrice      float64
	EntryTime       time.Time
	SizeUSD         float64
	EntryConfidence float64
	// EntryIndex is the index of the opening event in the walked sequence.
	EntryIndex int
}

// Step is the event being processed plus its successor, if any.
type Step struct {
	Index int
	Event models.RecommendationEvent
	Next  *models.RecommendationEvent
}

// Observer receives every closed position in walk order.
type Observer interface {
	PositionClosed(pos Position, exit Step, reason CloseReason)
}

// HoldObserver is implemented by observers that evaluate Hold events.
// pos is nil while flat.
type HoldObserver interface {
	HoldObserved(step Step, pos *Position)
}

// CloseObserver is implemented by observers that evaluate explicit Close
// events. It is called before the position is closed.
type CloseObserver interface {
	CloseRequested(step Step, pos Position)
}

// Tracker is the FLAT/LONG/SHORT state machine shared by the backtest and
// calibration walks.
type Tracker struct {
	defaultSize float64
}

// NewTracker creates a tracker. A non-positive default size falls back to DefaultSizeUSD.
func NewTracker(defaultSize float64) *Tracker {
	if defaultSize <= 0 {
		defaultSize = DefaultSizeUSD
	}
	return &Tracker{defaultSize: defaultSize}
}

// DefaultSize returns the size applied to events without one.
func (t *Tracker) DefaultSize() float64 {
	return t.defaultSize
}

// Walk drives events for a single market through the state machine,
// reporting transitions to obs. Any position still open after the last
// event is force-closed at the last price.
func (t *Tracker) Walk(events []models.RecommendationEvent, obs Observer) {
	holdObs, _ := obs.(HoldObserver)
	closeObs, _ := obs.(CloseObserver)

	var current *Position
	for i, ev := range events {
		step := Step{Index: i, Event: ev}
		if i+1 < len(events) {
			step.Next = &events[i+1]
		}

		switch ev.Action {
		case models.ActionLong, models.ActionShort:
			dir, _ := models.DirectionOf(ev.Action)
			if current != nil && current.Direction == dir {
				continue
			}
			if current != nil {
				obs.PositionClosed(*current, step, CloseReasonFlip)
			}
			current = t.open(step, dir)

		case models.ActionClose:
			if current == nil {
				continue
			}
			if closeObs != nil {
				closeObs.CloseRequested(step, *current)
			}
			obs.PositionClosed(*current, step, CloseReasonExplicit)
			current = nil

		case models.ActionHold:
			if holdObs != nil {
				holdObs.HoldObserved(step, current)
			}
		}
	}

	if current != nil && len(events) > 0 {
		last := len(events) - 1
		obs.PositionClosed(*current, Step{Index: last, Event: events[last]}, CloseReasonEndOfData)
	}
}

// Run walks events and returns the closed trades in close order.
func (t *Tracker) Run(events []models.RecommendationEvent) []models.TradeResult {
	c := &tradeCollector{}
	t.Walk(events, c)
	return c.trades
}

func (t *Tracker) open(step Step, dir models.Direction) *Position {
	return &Position{
		Market:          step.Event.Market,
		Direction:       dir,
		EntryPrice:      step.Event.Price,
		EntryTime:       step.Event.Timestamp,
		SizeUSD:         step.Event.SizeOr(t.defaultSize),
		EntryConfidence: step.Event.Confidence,
		EntryIndex:      step.Index,
	}
}

type tradeCollector struct {
	trades []models.TradeResult
}

func (c *tradeCollector) PositionClosed(pos Position, exit Step, _ CloseReason) {
	c.trades = append(c.trades, CloseTrade(pos, exit.Event.Price, exit.Event.Timestamp))
}

// CloseTrade converts a position closed at exitPrice into a TradeResult.
func CloseTrade(pos Position, exitPrice float64, exitTime time.Time) models.TradeResult {
	pnlUSD, pnlPercent := ComputePnL(pos.Direction, pos.EntryPrice, exitPrice, pos.SizeUSD)
	return models.TradeResult{
		Market:     pos.Market,
		EntryTime:  pos.EntryTime,
		ExitTime:   exitTime,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		SizeUSD:    pos.SizeUSD,
		Confidence: pos.EntryConfidence,
		PnLUSD:     pnlUSD,
		PnLPercent: pnlPercent,
	}
}

// ComputePnL returns the USD and percent PnL of moving from entry to exit.
func ComputePnL(dir models.Direction, entry, exit, sizeUSD float64) (usd, percent float64) {
	ret := returnRatio(dir, entry, exit)
	return sizeUSD * ret, ret * 100
}

// PnLPercent is the percentage return of a move from entry to exit on the given side.
func PnLPercent(dir models.Direction, entry, exit float64) float64 {
	return returnRatio(dir, entry, exit) * 100
}

func returnRatio(dir models.Direction, entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	r := exit / entry
	if dir == models.DirectionShort {
		return 1 - r
	}
	return r - 1
}
