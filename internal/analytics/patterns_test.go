package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thebtf/flowstate/pkg/models"
)

func TestPatterns_GateAtTen(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}

	// 9 completed sessions: insufficient-data shape with exact counts.
	patterns, insufficient := Patterns(manySessions(work, 9, now, 3, 3), now)
	assert.Nil(t, patterns)
	require.NotNil(t, insufficient)
	assert.Equal(t, 9, insufficient.CurrentSessions)
	assert.Equal(t, 10, insufficient.RequiredSessions)
	assert.NotEmpty(t, insufficient.Message)

	// 10 completed sessions: computed patterns.
	patterns, insufficient = Patterns(manySessions(work, 10, now, 3, 3), now)
	assert.Nil(t, insufficient)
	require.NotEmpty(t, patterns)
}

func TestPatterns_CancelledAndActiveDoNotCount(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}

	sessions := manySessions(work, 9, now, 3, 3)
	end := now.Add(-time.Hour)
	sessions = append(sessions,
		&models.Session{SessionID: "x", Tag: work, StartTime: now.Add(-2 * time.Hour), Status: models.StatusActive, EnergyLevel: 3},
		&models.Session{SessionID: "y", Tag: work, StartTime: now.Add(-3 * time.Hour), EndTime: &end, Status: models.StatusCancelled, EnergyLevel: 3},
	)

	_, insufficient := Patterns(sessions, now)
	require.NotNil(t, insufficient)
	assert.Equal(t, 9, insufficient.CurrentSessions)
}

func TestPatterns_CoreAnalyzersAlwaysPresent(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	patterns, insufficient := Patterns(manySessions(models.Tag{Main: "work"}, 12, now, 4, 4), now)
	require.Nil(t, insufficient)

	for _, name := range []string{"session_duration", "energy_levels", "focus_quality"} {
		p, ok := patterns[name]
		require.True(t, ok, name)
		assert.NotEmpty(t, p.Description, name)
		assert.NotEmpty(t, p.Limitations, name)
		assert.NotEmpty(t, p.SupportingData, name)
		assert.Equal(t, 12, p.SampleSize, name)
		assert.Equal(t, ConfidenceLow, p.Confidence, name)
	}
}

func TestDurationPattern_Distribution(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}

	var sessions []*models.Session
	for i, minutes := range []int{10, 20, 30, 45, 60, 90, 100, 120, 15, 50} {
		start := now.Add(-time.Duration(i+1) * 3 * time.Hour)
		sessions = append(sessions, completedSession("u1", work, start, minutes, 3, 3, 0))
	}

	p, ok := durationPattern(sessions, now)
	require.True(t, ok)

	dist := p.SupportingData["distribution"].(map[string]int)
	assert.Equal(t, 4, dist["short_30min_or_less"])
	assert.Equal(t, 4, dist["medium_30_90min"])
	assert.Equal(t, 2, dist["long_over_90min"])
	assert.InDelta(t, 54.0, p.SupportingData["average_minutes"].(float64), 1e-9)
}

func TestTimeOfDayPattern_NeedsVariety(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}

	// All sessions at the same hour: no time-of-day pattern.
	var sameHour []*models.Session
	for i := 0; i < 12; i++ {
		sameHour = append(sameHour, completedSession("u1", work, day.AddDate(0, 0, i).Add(9*time.Hour), 30, 3, 3, 0))
	}
	_, ok := timeOfDayPattern(sameHour)
	assert.False(t, ok)

	// Sessions spread across three hours, two per hour: pattern emitted with
	// the best focus*energy hour first.
	var spread []*models.Session
	for i := 0; i < 4; i++ {
		d := day.AddDate(0, 0, i)
		spread = append(spread,
			completedSession("u1", work, d.Add(9*time.Hour), 30, 5, 5, 0),
			completedSession("u1", work, d.Add(13*time.Hour), 30, 3, 3, 0),
			completedSession("u1", work, d.Add(20*time.Hour), 30, 2, 2, 0),
		)
	}
	p, ok := timeOfDayPattern(spread)
	require.True(t, ok)
	assert.Contains(t, p.Description, "09:00")

	peaks := p.SupportingData["peak_hours"].(map[string]interface{})
	assert.Len(t, peaks, 3)
}

func TestDayOfWeekPattern(t *testing.T) {
	// Week starting Monday 2026-03-09.
	monday := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}

	var sessions []*models.Session
	for week := 0; week < 2; week++ {
		base := monday.AddDate(0, 0, 7*week)
		sessions = append(sessions,
			completedSession("u1", work, base, 120, 3, 3, 0),                  // Monday
			completedSession("u1", work, base.AddDate(0, 0, 2), 30, 3, 3, 0), // Wednesday
			completedSession("u1", work, base.AddDate(0, 0, 4), 60, 3, 3, 0), // Friday
		)
	}

	p, ok := dayOfWeekPattern(sessions)
	require.True(t, ok)
	assert.Contains(t, p.Description, "Monday")

	days := p.SupportingData["days"].(map[string]interface{})
	assert.Len(t, days, 3)
}

func TestEstimationAccuracy(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}
	hobby := models.Tag{Main: "hobby"}

	withEstimate := func(tag models.Tag, offset time.Duration, estimated, actual int) *models.Session {
		s := completedSession("u1", tag, now.Add(-offset), actual, 3, 3, 0)
		s.EstimatedMinutes = &estimated
		return s
	}

	sessions := []*models.Session{
		// work: ratios 2.0, 1.0, 0.5 -> mean 7/6.
		withEstimate(work, 2*time.Hour, 30, 60),
		withEstimate(work, 5*time.Hour, 60, 60),
		withEstimate(work, 8*time.Hour, 60, 30),
		// hobby: only 2 estimated sessions, must be omitted.
		withEstimate(hobby, 3*time.Hour, 30, 30),
		withEstimate(hobby, 6*time.Hour, 30, 45),
		// work session without an estimate does not count.
		completedSession("u1", work, now.Add(-12*time.Hour), 40, 3, 3, 0),
	}

	stats := EstimationAccuracy(sessions, now)
	require.Len(t, stats, 1)

	workStats := stats["#work"]
	assert.Equal(t, 3, workStats.SampleSize)
	assert.InDelta(t, (2.0+1.0+0.5)/3.0, workStats.MeanAccuracyRatio, 1e-9)
}

func TestEstimationAccuracy_ThresholdBoundary(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	work := models.Tag{Main: "work"}

	build := func(n int) []*models.Session {
		var out []*models.Session
		for i := 0; i < n; i++ {
			est := 30
			s := completedSession("u1", work, now.Add(-time.Duration(i+1)*time.Hour), 30, 3, 3, 0)
			s.EstimatedMinutes = &est
			out = append(out, s)
		}
		return out
	}

	assert.Empty(t, EstimationAccuracy(build(2), now))

	stats := EstimationAccuracy(build(3), now)
	require.Contains(t, stats, "#work")
	assert.Equal(t, 3, stats["#work"].SampleSize)
	assert.InDelta(t, 1.0, stats["#work"].MeanAccuracyRatio, 1e-9)
}
