package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/thebtf/flowstate/pkg/models"
)

// RequiredPatternSessions is the hard gate below which pattern analysis
// refuses to run. This is a statistical floor, not a tunable default.
const RequiredPatternSessions = 10

// Pattern is a recomputed-on-demand observation about a user's tracked time.
// It is never persisted.
type Pattern struct {
	Description    string                 `json:"description"`
	Confidence     ConfidenceLevel        `json:"confidence"`
	SampleSize     int                    `json:"sample_size"`
	Limitations    string                 `json:"limitations"`
	SupportingData map[string]interface{} `json:"supporting_data"`
}

// InsufficientData is the typed "cannot compute" result returned instead of
// fabricated patterns when the session count is below the gate. It is not an
// error.
type InsufficientData struct {
	Message          string `json:"message"`
	RequiredSessions int    `json:"required_sessions"`
	CurrentSessions  int    `json:"current_sessions"`
}

// Patterns runs every pattern analyzer over the user's completed sessions.
// Below the gate it returns a nil map and the insufficient-data signal.
func Patterns(sessions []*models.Session, now time.Time) (map[string]Pattern, *InsufficientData) {
	completed := make([]*models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.IsComplete() {
			completed = append(completed, s)
		}
	}

	if len(completed) < RequiredPatternSessions {
		return nil, &InsufficientData{
			Message:          "Not enough data for pattern analysis",
			RequiredSessions: RequiredPatternSessions,
			CurrentSessions:  len(completed),
		}
	}

	patterns := make(map[string]Pattern)
	if p, ok := durationPattern(completed, now); ok {
		patterns["session_duration"] = p
	}
	if p, ok := energyPattern(completed); ok {
		patterns["energy_levels"] = p
	}
	if p, ok := focusPattern(completed); ok {
		patterns["focus_quality"] = p
	}
	if p, ok := timeOfDayPattern(completed); ok {
		patterns["time_of_day"] = p
	}
	if p, ok := dayOfWeekPattern(completed); ok {
		patterns["day_of_week"] = p
	}
	return patterns, nil
}

func durationPattern(sessions []*models.Session, now time.Time) (Pattern, bool) {
	durations := make([]float64, len(sessions))
	var short, medium, long int
	for i, s := range sessions {
		d := s.DurationMinutes(now)
		durations[i] = float64(d)
		switch {
		case d <= 30:
			short++
		case d <= 90:
			medium++
		default:
			long++
		}
	}

	avg, med := mean(durations), median(durations)
	level, ok := Confidence(len(sessions))
	if !ok {
		return Pattern{}, false
	}
	return Pattern{
		Description: fmt.Sprintf("Typical work session runs %.0f minutes (average %.0f)", med, avg),
		Confidence:  level,
		SampleSize:  len(sessions),
		Limitations: "Duration alone does not indicate productivity; task type is not considered",
		SupportingData: map[string]interface{}{
			"average_minutes": avg,
			"median_minutes":  med,
			"distribution": map[string]int{
				"short_30min_or_less": short,
				"medium_30_90min":     medium,
				"long_over_90min":     long,
			},
		},
	}, true
}

func energyPattern(sessions []*models.Session) (Pattern, bool) {
	var all, morning, afternoon, evening []float64
	for _, s := range sessions {
		e := float64(s.EnergyLevel)
		all = append(all, e)
		switch h := s.StartTime.Hour(); {
		case h >= 6 && h < 12:
			morning = append(morning, e)
		case h >= 12 && h < 18:
			afternoon = append(afternoon, e)
		case h >= 18:
			evening = append(evening, e)
		}
	}

	level, ok := Confidence(len(all))
	if !ok {
		return Pattern{}, false
	}
	periods := map[string]interface{}{}
	if len(morning) > 0 {
		periods["morning"] = mean(morning)
	}
	if len(afternoon) > 0 {
		periods["afternoon"] = mean(afternoon)
	}
	if len(evening) > 0 {
		periods["evening"] = mean(evening)
	}
	return Pattern{
		Description: fmt.Sprintf("Average reported energy is %.1f/5", mean(all)),
		Confidence:  level,
		SampleSize:  len(all),
		Limitations: "Self-reported energy scores; daily variation and external factors are not captured",
		SupportingData: map[string]interface{}{
			"overall_average": mean(all),
			"time_periods":    periods,
		},
	}, true
}

func focusPattern(sessions []*models.Session) (Pattern, bool) {
	var all, calm, disrupted []float64
	for _, s := range sessions {
		f := float64(s.FocusQuality)
		all = append(all, f)
		if s.Interruptions <= 1 {
			calm = append(calm, f)
		} else if s.Interruptions > 2 {
			disrupted = append(disrupted, f)
		}
	}

	level, ok := Confidence(len(all))
	if !ok {
		return Pattern{}, false
	}
	data := map[string]interface{}{
		"overall_average":            mean(all),
		"low_interruption_sessions":  len(calm),
		"high_interruption_sessions": len(disrupted),
	}
	if len(calm) > 0 && len(disrupted) > 0 {
		data["low_interruption_average"] = mean(calm)
		data["high_interruption_average"] = mean(disrupted)
	}
	return Pattern{
		Description:    fmt.Sprintf("Average reported focus is %.1f/5", mean(all)),
		Confidence:     level,
		SampleSize:     len(all),
		Limitations:    "Subjective self-assessment; does not capture flow states or deep work quality",
		SupportingData: data,
	}, true
}

// timeOfDayPattern needs at least 3 distinct start hours with 2+ sessions
// each before it says anything.
func timeOfDayPattern(sessions []*models.Session) (Pattern, bool) {
	type hourAcc struct {
		count         int
		focus, energy float64
	}
	byHour := map[int]*hourAcc{}
	for _, s := range sessions {
		h := s.StartTime.Hour()
		a, ok := byHour[h]
		if !ok {
			a = &hourAcc{}
			byHour[h] = a
		}
		a.count++
		a.focus += float64(s.FocusQuality)
		a.energy += float64(s.EnergyLevel)
	}

	hours := make([]int, 0, len(byHour))
	for h, a := range byHour {
		if a.count >= 2 {
			hours = append(hours, h)
		}
	}
	if len(hours) < 3 {
		return Pattern{}, false
	}
	level, ok := Confidence(len(sessions))
	if !ok {
		return Pattern{}, false
	}

	// Rank hours by combined focus*energy score, best first.
	sort.Slice(hours, func(i, j int) bool {
		a, b := byHour[hours[i]], byHour[hours[j]]
		scoreA := (a.focus / float64(a.count)) * (a.energy / float64(a.count))
		scoreB := (b.focus / float64(b.count)) * (b.energy / float64(b.count))
		if scoreA != scoreB {
			return scoreA > scoreB
		}
		return hours[i] < hours[j]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}

	hourStats := map[string]interface{}{}
	for _, h := range hours {
		a := byHour[h]
		hourStats[fmt.Sprintf("%02d:00", h)] = map[string]interface{}{
			"session_count":  a.count,
			"average_focus":  a.focus / float64(a.count),
			"average_energy": a.energy / float64(a.count),
		}
	}
	return Pattern{
		Description: fmt.Sprintf("Focus and energy peak around %02d:00", hours[0]),
		Confidence:  level,
		SampleSize:  len(sessions),
		Limitations: "Based on self-reported scores; individual daily variation is not captured",
		SupportingData: map[string]interface{}{
			"peak_hours": hourStats,
		},
	}, true
}

// dayOfWeekPattern needs at least 3 distinct weekdays with 2+ sessions each.
func dayOfWeekPattern(sessions []*models.Session) (Pattern, bool) {
	type dayAcc struct {
		count, minutes int
		focus          float64
	}
	byDay := map[time.Weekday]*dayAcc{}
	for _, s := range sessions {
		d := s.StartTime.Weekday()
		a, ok := byDay[d]
		if !ok {
			a = &dayAcc{}
			byDay[d] = a
		}
		a.count++
		a.minutes += s.DurationMinutes(s.StartTime) // completed: end time wins
		a.focus += float64(s.FocusQuality)
	}

	qualified := 0
	var busiest time.Weekday
	busiestMinutes := -1
	dayStats := map[string]interface{}{}
	for d, a := range byDay {
		if a.count < 2 {
			continue
		}
		qualified++
		dayStats[d.String()] = map[string]interface{}{
			"session_count": a.count,
			"total_minutes": a.minutes,
			"average_focus": a.focus / float64(a.count),
		}
		if a.minutes > busiestMinutes || (a.minutes == busiestMinutes && d < busiest) {
			busiest, busiestMinutes = d, a.minutes
		}
	}
	if qualified < 3 {
		return Pattern{}, false
	}
	level, ok := Confidence(len(sessions))
	if !ok {
		return Pattern{}, false
	}
	return Pattern{
		Description: fmt.Sprintf("Most tracked time falls on %s (%d minutes)", busiest, busiestMinutes),
		Confidence:  level,
		SampleSize:  len(sessions),
		Limitations: "May reflect work schedule more than personal rhythm; external factors not considered",
		SupportingData: map[string]interface{}{
			"days": dayStats,
		},
	}, true
}
