package analytics

import (
	"fmt"
	"time"

	"github.com/thebtf/flowstate/pkg/models"
)

// Insight is a single confidence-qualified observation. Evidence and
// Limitations are mandatory: an insight without supporting numbers and an
// explicit caveat is invalid output.
type Insight struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Confidence  ConfidenceLevel        `json:"confidence"`
	SampleSize  int                    `json:"sample_size"`
	Evidence    map[string]interface{} `json:"evidence"`
	Limitations string                 `json:"limitations"`
}

const selfReportLimitation = "Based on self-reported data and may include estimation errors"

// insightContext is the precomputed input every rule sees.
type insightContext struct {
	stats         map[string]TagStats
	totalSessions int
}

// insightRule is one row of the rule table. build returns ok=false when the
// rule has nothing to say; sample is the size backing the claim, from which
// the confidence level is derived centrally.
type insightRule struct {
	name  string
	build func(ctx insightContext) (description string, evidence map[string]interface{}, sample int, ok bool)
}

// insightRules is evaluated uniformly; adding a rule means adding a row, not
// new control flow.
var insightRules = []insightRule{
	{
		name: "most_time",
		build: func(ctx insightContext) (string, map[string]interface{}, int, bool) {
			key, stats, ok := maxByTag(ctx.stats, func(s TagStats) float64 { return float64(s.TotalMinutes) })
			if !ok {
				return "", nil, 0, false
			}
			desc := fmt.Sprintf("Most time spent on %s activities (%d minutes across %d sessions)",
				key, stats.TotalMinutes, stats.SessionCount)
			evidence := map[string]interface{}{
				"tag_key":       key,
				"total_minutes": stats.TotalMinutes,
				"session_count": stats.SessionCount,
			}
			return desc, evidence, stats.SessionCount, true
		},
	},
	{
		name: "highest_focus",
		build: func(ctx insightContext) (string, map[string]interface{}, int, bool) {
			qualified := make(map[string]TagStats, len(ctx.stats))
			for key, s := range ctx.stats {
				if s.SessionCount >= MinInsightSampleSize {
					qualified[key] = s
				}
			}
			key, stats, ok := maxByTag(qualified, func(s TagStats) float64 { return s.AverageFocus })
			if !ok {
				return "", nil, 0, false
			}
			desc := fmt.Sprintf("Highest average focus on %s activities (%.1f/5 across %d sessions)",
				key, stats.AverageFocus, stats.SessionCount)
			evidence := map[string]interface{}{
				"tag_key":       key,
				"average_focus": stats.AverageFocus,
				"session_count": stats.SessionCount,
			}
			return desc, evidence, stats.SessionCount, true
		},
	},
	{
		name: "tag_diversity",
		build: func(ctx insightContext) (string, map[string]interface{}, int, bool) {
			mains := make(map[string]struct{})
			for key := range ctx.stats {
				tag := parseDisplayKey(key)
				mains[tag.Main] = struct{}{}
			}
			if len(mains) == 0 {
				return "", nil, 0, false
			}
			desc := fmt.Sprintf("Tracking %d distinct activity types across %d sessions",
				len(mains), ctx.totalSessions)
			evidence := map[string]interface{}{
				"distinct_main_tags": len(mains),
				"session_count":      ctx.totalSessions,
			}
			return desc, evidence, ctx.totalSessions, true
		},
	},
}

// Insights evaluates the rule table over completed sessions started within
// the last timeframeDays. Rules whose supporting sample is below the
// reporting floor are suppressed entirely.
func Insights(sessions []*models.Session, timeframeDays int, now time.Time) []Insight {
	recent := completedWithin(sessions, timeframeDays, now)
	ctx := insightContext{
		stats:         TagAnalytics(sessions, timeframeDays, now),
		totalSessions: len(recent),
	}

	out := make([]Insight, 0, len(insightRules))
	for _, rule := range insightRules {
		description, evidence, sample, ok := rule.build(ctx)
		if !ok {
			continue
		}
		level, ok := Confidence(sample)
		if !ok {
			continue
		}
		out = append(out, Insight{
			Name:        rule.name,
			Description: description,
			Confidence:  level,
			SampleSize:  sample,
			Evidence:    evidence,
			Limitations: selfReportLimitation,
		})
	}
	return out
}

// maxByTag returns the map entry with the highest score. Ties break on the
// lexically smaller key so output is deterministic.
func maxByTag(stats map[string]TagStats, score func(TagStats) float64) (string, TagStats, bool) {
	var (
		bestKey   string
		bestStats TagStats
		found     bool
	)
	for key, s := range stats {
		if !found || score(s) > score(bestStats) ||
			(score(s) == score(bestStats) && key < bestKey) {
			bestKey, bestStats, found = key, s, true
		}
	}
	return bestKey, bestStats, found
}

// parseDisplayKey inverts Tag.Display for grouping by main tag.
func parseDisplayKey(key string) models.Tag {
	if len(key) > 0 && key[0] == '#' {
		key = key[1:]
	}
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return models.Tag{Main: key[:i], Sub: key[i+1:]}
		}
	}
	return models.Tag{Main: key}
}
