package calibration

import (
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/irfndi/neuratrade-eval/internal/services/evaluation"
)

// Bucketize partitions outcomes into n equal-width confidence buckets over
// [0,1]. The last bucket is closed on both ends. Empty buckets are dropped.
func Bucketize(outcomes []models.TradeOutcome, n int) []models.ConfidenceBucket {
	if n <= 0 {
		n = 10
	}

	all := make([]models.ConfidenceBucket, n)
	for i := range all {
		all[i].MinConfidence = float64(i) / float64(n)
		all[i].MaxConfidence = float64(i+1) / float64(n)
	}
	all[n-1].MaxConfidence = 1.0

	for _, o := range outcomes {
		idx := bucketIndex(o.Confidence, n)
		all[idx].Outcomes = append(all[idx].Outcomes, o)
	}

	buckets := make([]models.ConfidenceBucket, 0, n)
	for _, b := range all {
		if len(b.Outcomes) == 0 {
			continue
		}
		b.Count = len(b.Outcomes)
		b.WinRate = winRate(b.Outcomes)
		buckets = append(buckets, b)
	}
	return buckets
}

func bucketIndex(confidence float64, n int) int {
	idx := int(evaluation.Clamp(confidence, 0, 1) * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func winRate(outcomes []models.TradeOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, o := range outcomes {
		if o.IsWinner {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes))
}

// Isotonic applies pool-adjacent-violators to buckets ordered by confidence.
// Each merge rebuilds the slice and restarts the scan, so the input is never
// modified and the result has non-decreasing win rates.
func Isotonic(buckets []models.ConfidenceBucket) []models.ConfidenceBucket {
	out := append([]models.ConfidenceBucket(nil), buckets...)

	for {
		violation := -1
		for i := 0; i+1 < len(out); i++ {
			if out[i].WinRate > out[i+1].WinRate {
				violation = i
				break
			}
		}
		if violation < 0 {
			return out
		}

		merged := mergeBuckets(out[violation], out[violation+1])
		next := make([]models.ConfidenceBucket, 0, len(out)-1)
		next = append(next, out[:violation]...)
		next = append(next, merged)
		next = append(next, out[violation+2:]...)
		out = next
	}
}

func mergeBuckets(a, b models.ConfidenceBucket) models.ConfidenceBucket {
	count := a.Count + b.Count
	rate := 0.0
	if count > 0 {
		rate = (a.WinRate*float64(a.Count) + b.WinRate*float64(b.Count)) / float64(count)
	}

	outcomes := make([]models.TradeOutcome, 0, len(a.Outcomes)+len(b.Outcomes))
	outcomes = append(outcomes, a.Outcomes...)
	outcomes = append(outcomes, b.Outcomes...)

	return models.ConfidenceBucket{
		MinConfidence: a.MinConfidence,
		MaxConfidence: b.MaxConfidence,
		Outcomes:      outcomes,
		WinRate:       rate,
		Count:         count,
	}
}
