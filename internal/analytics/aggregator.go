// Package analytics computes summary statistics, heuristic insights and
// estimation accuracy from completed sessions. Everything here is a pure
// function over a registry snapshot: callers pass the sessions and the clock,
// nothing is cached or persisted.
package analytics

import (
	"time"

	"github.com/thebtf/flowstate/pkg/models"
)

// DailySummary aggregates one local calendar day of completed sessions.
type DailySummary struct {
	Date               string         `json:"date"`
	TotalMinutes       int            `json:"total_minutes"`
	EntriesCount       int            `json:"entries_count"`
	AverageEnergy      *float64       `json:"average_energy"`
	AverageFocus       *float64       `json:"average_focus"`
	TotalInterruptions int            `json:"total_interruptions"`
	Categories         map[string]int `json:"categories"`
}

// TagStats summarizes completed sessions for one tag within a window.
type TagStats struct {
	TotalMinutes           int     `json:"total_minutes"`
	SessionCount           int     `json:"session_count"`
	AverageFocus           float64 `json:"average_focus"`
	AverageEnergy          float64 `json:"average_energy"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
}

// Daily computes the summary for the calendar day containing date, in date's
// location. Sessions are included when their start time falls on that day.
// Averages are nil when no sessions qualify; there is no zero division.
func Daily(sessions []*models.Session, date time.Time) DailySummary {
	y, m, d := date.Date()
	loc := date.Location()

	summary := DailySummary{
		Date:       date.Format("2006-01-02"),
		Categories: make(map[string]int),
	}

	var energySum, focusSum int
	for _, s := range sessions {
		if !s.IsComplete() {
			continue
		}
		sy, sm, sd := s.StartTime.In(loc).Date()
		if sy != y || sm != m || sd != d {
			continue
		}
		minutes := s.DurationMinutes(date)
		summary.TotalMinutes += minutes
		summary.EntriesCount++
		summary.TotalInterruptions += s.Interruptions
		summary.Categories[s.Tag.Main] += minutes
		energySum += s.EnergyLevel
		focusSum += s.FocusQuality
	}

	if summary.EntriesCount > 0 {
		energy := float64(energySum) / float64(summary.EntriesCount)
		focus := float64(focusSum) / float64(summary.EntriesCount)
		summary.AverageEnergy = &energy
		summary.AverageFocus = &focus
	}
	return summary
}

// TagAnalytics groups completed sessions started within the last
// timeframeDays by tag display key.
func TagAnalytics(sessions []*models.Session, timeframeDays int, now time.Time) map[string]TagStats {
	cutoff := now.AddDate(0, 0, -timeframeDays)

	type acc struct {
		minutes, count, focus, energy int
	}
	byTag := make(map[string]*acc)

	for _, s := range sessions {
		if !s.IsComplete() || s.StartTime.Before(cutoff) || s.StartTime.After(now) {
			continue
		}
		key := s.Tag.Display()
		a, ok := byTag[key]
		if !ok {
			a = &acc{}
			byTag[key] = a
		}
		a.minutes += s.DurationMinutes(now)
		a.count++
		a.focus += s.FocusQuality
		a.energy += s.EnergyLevel
	}

	out := make(map[string]TagStats, len(byTag))
	for key, a := range byTag {
		out[key] = TagStats{
			TotalMinutes:           a.minutes,
			SessionCount:           a.count,
			AverageFocus:           float64(a.focus) / float64(a.count),
			AverageEnergy:          float64(a.energy) / float64(a.count),
			AverageDurationMinutes: float64(a.minutes) / float64(a.count),
		}
	}
	return out
}

// completedWithin returns the completed sessions started in [now-days, now].
func completedWithin(sessions []*models.Session, days int, now time.Time) []*models.Session {
	cutoff := now.AddDate(0, 0, -days)
	out := make([]*models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.IsComplete() && !s.StartTime.Before(cutoff) && !s.StartTime.After(now) {
			out = append(out, s)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
