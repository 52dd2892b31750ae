package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"long", ActionLong, false},
		{" SHORT ", ActionShort, false},
		{"Hold", ActionHold, false},
		{"close", ActionClose, false},
		{"buy", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectionOf(t *testing.T) {
	d, ok := DirectionOf(ActionLong)
	assert.True(t, ok)
	assert.Equal(t, DirectionLong, d)

	d, ok = DirectionOf(ActionShort)
	assert.True(t, ok)
	assert.Equal(t, DirectionShort, d)

	_, ok = DirectionOf(ActionHold)
	assert.False(t, ok)
	_, ok = DirectionOf(ActionClose)
	assert.False(t, ok)
}

func TestRecommendationEvent_SizeOr(t *testing.T) {
	ev := RecommendationEvent{}
	assert.Equal(t, 1000.0, ev.SizeOr(1000))

	ev.SizeUSD = floatPtr(250)
	assert.Equal(t, 250.0, ev.SizeOr(1000))
}

func TestRecommendationEvent_Validate(t *testing.T) {
	valid := RecommendationEvent{
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Market:     "BTC",
		Price:      100000,
		Action:     ActionLong,
		Confidence: 0.8,
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(e *RecommendationEvent){
		"missing market":      func(e *RecommendationEvent) { e.Market = " " },
		"zero timestamp":      func(e *RecommendationEvent) { e.Timestamp = time.Time{} },
		"zero price":          func(e *RecommendationEvent) { e.Price = 0 },
		"bad action":          func(e *RecommendationEvent) { e.Action = "buy" },
		"confidence above 1":  func(e *RecommendationEvent) { e.Confidence = 1.2 },
		"negative confidence": func(e *RecommendationEvent) { e.Confidence = -0.1 },
		"negative size":       func(e *RecommendationEvent) { e.SizeUSD = floatPtr(-5) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ev := valid
			mutate(&ev)
			assert.Error(t, ev.Validate())
		})
	}
}

func TestRecommendationEvent_JSONOmitsMissingSize(t *testing.T) {
	ev := RecommendationEvent{Market: "ETH", Price: 3000, Action: ActionHold, Confidence: 0.4}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "size_usd")
	assert.Contains(t, string(data), `"action":"hold"`)
}

func TestConfidenceBucket_Midpoint(t *testing.T) {
	b := ConfidenceBucket{MinConfidence: 0.6, MaxConfidence: 0.8}
	assert.InDelta(t, 0.7, b.Midpoint(), 1e-12)
}

func TestCalibrationData_Age(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	data := &CalibrationData{CreatedAt: created}
	assert.Equal(t, 48*time.Hour, data.Age(created.Add(48*time.Hour)))
}
