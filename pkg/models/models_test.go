package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTag_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		main     string
		sub      string
		wantMain string
		wantSub  string
	}{
		{"lowercase_passthrough", "work", "client", "work", "client"},
		{"uppercase_folded", "WORK", "Client-Meeting", "work", "client-meeting"},
		{"whitespace_trimmed", "  work ", " cardio ", "work", "cardio"},
		{"leading_hash_stripped", "#work", "#sub", "work", "sub"},
		{"hash_and_space", " #Learning", "", "learning", ""},
		{"empty_main", "   ", "x", "", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag := NewTag(tt.main, tt.sub)
			assert.Equal(t, tt.wantMain, tag.Main)
			assert.Equal(t, tt.wantSub, tag.Sub)
		})
	}
}

func TestTagDisplay(t *testing.T) {
	assert.Equal(t, "#work", Tag{Main: "work"}.Display())
	assert.Equal(t, "#work/client", Tag{Main: "work", Sub: "client"}.Display())
}

func TestTagAsMapKey(t *testing.T) {
	counts := map[Tag]int{}
	counts[NewTag("Work", "")]++
	counts[NewTag("#work", "")]++
	counts[NewTag("work", "sub")]++

	assert.Equal(t, 2, counts[Tag{Main: "work"}])
	assert.Equal(t, 1, counts[Tag{Main: "work", Sub: "sub"}])
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusActive.IsLive())
	assert.True(t, StatusPaused.IsLive())
	assert.False(t, StatusCompleted.IsLive())
	assert.False(t, StatusCancelled.IsLive())

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	s := &Session{StartTime: start, Status: StatusActive}

	// Live session: measured against now, floored to whole minutes.
	assert.Equal(t, 0, s.DurationMinutes(start.Add(59*time.Second)))
	assert.Equal(t, 1, s.DurationMinutes(start.Add(90*time.Second)))
	assert.Equal(t, 45, s.DurationMinutes(start.Add(45*time.Minute)))

	// Completed session: end time wins over the supplied now.
	end := start.Add(30 * time.Minute)
	s.EndTime = &end
	s.Status = StatusCompleted
	assert.Equal(t, 30, s.DurationMinutes(start.Add(5*time.Hour)))
}

func TestDurationMinutes_NeverNegative(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := &Session{StartTime: start, Status: StatusActive}
	assert.Equal(t, 0, s.DurationMinutes(start.Add(-time.Minute)))
}

func TestClone_IsDeep(t *testing.T) {
	est := 25
	end := time.Now()
	s := &Session{
		SessionID:        "abc",
		EstimatedMinutes: &est,
		EndTime:          &end,
		Status:           StatusCompleted,
	}

	c := s.Clone()
	*c.EstimatedMinutes = 99
	*c.EndTime = end.Add(time.Hour)

	assert.Equal(t, 25, *s.EstimatedMinutes)
	assert.Equal(t, end, *s.EndTime)
}
