package evaluation

import (
	"testing"
	"time"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func ev(i int, action models.Action, price, confidence float64) models.RecommendationEvent {
	return models.RecommendationEvent{
		Timestamp:  baseTime.Add(time.Duration(i) * time.Hour),
		Market:     "BTC",
		Price:      price,
		Action:     action,
		Confidence: confidence,
	}
}

func TestComputePnL(t *testing.T) {
	usd, pct := ComputePnL(models.DirectionLong, 100000, 101000, 1000)
	assert.InDelta(t, 10.0, usd, 1e-9)
	assert.InDelta(t, 1.0, pct, 1e-9)

	usd, pct = ComputePnL(models.DirectionShort, 100000, 99000, 1000)
	assert.InDelta(t, 10.0, usd, 1e-9)
	assert.InDelta(t, 1.0, pct, 1e-9)

	usd, pct = ComputePnL(models.DirectionShort, 100000, 101000, 1000)
	assert.InDelta(t, -10.0, usd, 1e-9)
	assert.InDelta(t, -1.0, pct, 1e-9)

	usd, pct = ComputePnL(models.DirectionLong, 0, 101000, 1000)
	assert.Zero(t, usd)
	assert.Zero(t, pct)
}

func TestTracker_FlipProducesTwoTrades(t *testing.T) {
	events := []models.RecommendationEvent{
		ev(0, models.ActionLong, 100000, 0.8),
		ev(1, models.ActionShort, 101000, 0.6),
		ev(2, models.ActionClose, 100500, 0.9),
	}

	trades := NewTracker(1000).Run(events)
	require.Len(t, trades, 2)

	assert.Equal(t, models.DirectionLong, trades[0].Direction)
	assert.Equal(t, 100000.0, trades[0].EntryPrice)
	assert.Equal(t, 101000.0, trades[0].ExitPrice)
	assert.InDelta(t, 10.0, trades[0].PnLUSD, 1e-9)
	assert.Equal(t, 0.8, trades[0].Confidence)
	assert.Equal(t, events[0].Timestamp, trades[0].EntryTime)
	assert.Equal(t, events[1].Timestamp, trades[0].ExitTime)

	assert.Equal(t, models.DirectionShort, trades[1].Direction)
	assert.Equal(t, 101000.0, trades[1].EntryPrice)
	assert.Equal(t, 100500.0, trades[1].ExitPrice)
	assert.InDelta(t, 4.9505, trades[1].PnLUSD, 1e-3)
	assert.Equal(t, 0.6, trades[1].Confidence, "confidence comes from the entry, not the exit")
}

func TestTracker_NoOps(t *testing.T) {
	tracker := NewTracker(1000)

	t.Run("only holds", func(t *testing.T) {
		events := []models.RecommendationEvent{
			ev(0, models.ActionHold, 100, 0.5),
			ev(1, models.ActionHold, 110, 0.5),
			ev(2, models.ActionHold, 90, 0.5),
		}
		assert.Empty(t, tracker.Run(events))
	})

	t.Run("closes while flat", func(t *testing.T) {
		events := []models.RecommendationEvent{
			ev(0, models.ActionClose, 100, 0.5),
			ev(1, models.ActionClose, 110, 0.5),
		}
		assert.Empty(t, tracker.Run(events))
	})

	t.Run("repeated long keeps the original entry", func(t *testing.T) {
		events := []models.RecommendationEvent{
			ev(0, models.ActionLong, 100, 0.7),
			ev(1, models.ActionLong, 105, 0.9),
			ev(2, models.ActionClose, 110, 0.5),
		}
		trades := tracker.Run(events)
		require.Len(t, trades, 1)
		assert.Equal(t, 100.0, trades[0].EntryPrice)
		assert.Equal(t, 0.7, trades[0].Confidence)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, tracker.Run(nil))
	})
}

func TestTracker_ForcedClose(t *testing.T) {
	events := []models.RecommendationEvent{
		ev(0, models.ActionLong, 100000, 0.8),
		ev(1, models.ActionHold, 101000, 0.8),
		ev(2, models.ActionHold, 102000, 0.8),
	}

	trades := NewTracker(1000).Run(events)
	require.Len(t, trades, 1)
	assert.Equal(t, 102000.0, trades[0].ExitPrice)
	assert.Equal(t, events[2].Timestamp, trades[0].ExitTime)
	assert.InDelta(t, 20.0, trades[0].PnLUSD, 1e-9)
}

func TestTracker_UsesEventSize(t *testing.T) {
	size := 250.0
	open := ev(0, models.ActionShort, 200, 0.5)
	open.SizeUSD = &size
	events := []models.RecommendationEvent{open, ev(1, models.ActionClose, 190, 0.5)}

	trades := NewTracker(0).Run(events)
	require.Len(t, trades, 1)
	assert.Equal(t, 250.0, trades[0].SizeUSD)
	assert.InDelta(t, 12.5, trades[0].PnLUSD, 1e-9)
}

func TestNewTracker_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSizeUSD, NewTracker(0).DefaultSize())
	assert.Equal(t, 500.0, NewTracker(500).DefaultSize())
}

type recordingObserver struct {
	closes  []CloseReason
	holds   []bool
	closeRq []int
}

func (r *recordingObserver) PositionClosed(_ Position, _ Step, reason CloseReason) {
	r.closes = append(r.closes, reason)
}

func (r *recordingObserver) HoldObserved(_ Step, pos *Position) {
	r.holds = append(r.holds, pos != nil)
}

func (r *recordingObserver) CloseRequested(_ Step, pos Position) {
	r.closeRq = append(r.closeRq, pos.EntryIndex)
}

func TestTracker_WalkNotifiesOptionalHooks(t *testing.T) {
	events := []models.RecommendationEvent{
		ev(0, models.ActionHold, 100, 0.5),
		ev(1, models.ActionLong, 101, 0.5),
		ev(2, models.ActionHold, 102, 0.5),
		ev(3, models.ActionShort, 103, 0.5),
		ev(4, models.ActionClose, 104, 0.5),
		ev(5, models.ActionLong, 105, 0.5),
	}

	obs := &recordingObserver{}
	NewTracker(1000).Walk(events, obs)

	assert.Equal(t, []bool{false, true}, obs.holds)
	assert.Equal(t, []int{3}, obs.closeRq)
	assert.Equal(t, []CloseReason{CloseReasonFlip, CloseReasonExplicit, CloseReasonEndOfData}, obs.closes)
}
