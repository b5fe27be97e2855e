package analytics

import (
	"time"

	"github.com/thebtf/flowstate/pkg/models"
)

// MinEstimationSamples is the per-tag floor for reporting estimation skill.
// A mean over one or two sessions is noise, so those tags are omitted
// entirely rather than reported with a caveat.
const MinEstimationSamples = 3

// EstimationStats reports how a user's estimates compare to reality for one
// tag. A mean ratio above 1 means sessions run longer than estimated.
type EstimationStats struct {
	MeanAccuracyRatio float64 `json:"mean_accuracy_ratio"`
	SampleSize        int     `json:"sample_size"`
}

// EstimationAccuracy computes the mean actual/estimated duration ratio per
// tag over completed sessions that carried an estimate. Tags with fewer than
// MinEstimationSamples such sessions are absent from the result.
func EstimationAccuracy(sessions []*models.Session, now time.Time) map[string]EstimationStats {
	type acc struct {
		sum   float64
		count int
	}
	byTag := make(map[string]*acc)

	for _, s := range sessions {
		if !s.IsComplete() || s.EstimatedMinutes == nil || *s.EstimatedMinutes <= 0 {
			continue
		}
		key := s.Tag.Display()
		a, ok := byTag[key]
		if !ok {
			a = &acc{}
			byTag[key] = a
		}
		a.sum += float64(s.DurationMinutes(now)) / float64(*s.EstimatedMinutes)
		a.count++
	}

	out := make(map[string]EstimationStats)
	for key, a := range byTag {
		if a.count < MinEstimationSamples {
			continue
		}
		out[key] = EstimationStats{
			MeanAccuracyRatio: a.sum / float64(a.count),
			SampleSize:        a.count,
		}
	}
	return out
}
