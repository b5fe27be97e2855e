package models

import "time"

// SessionStatus represents the lifecycle status of a work session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state. Terminal
// sessions are immutable.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsLive reports whether the session still counts as active for listing
// purposes (active or paused).
func (s SessionStatus) IsLive() bool {
	return s == StatusActive || s == StatusPaused
}

// Session is a single tracked work session. A user may hold any number of
// live sessions at once.
type Session struct {
	SessionID        string        `json:"session_id"`
	UserID           string        `json:"user_id"`
	Tag              Tag           `json:"tag"`
	TaskDescription  string        `json:"task_description,omitempty"`
	EstimatedMinutes *int          `json:"estimated_minutes,omitempty"`
	EnergyLevel      int           `json:"energy_level"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          *time.Time    `json:"end_time,omitempty"`
	Status           SessionStatus `json:"status"`

	// End-of-session feedback, set only on normal completion.
	FocusQuality  int    `json:"focus_quality,omitempty"`
	Interruptions int    `json:"interruptions,omitempty"`
	Satisfaction  int    `json:"satisfaction,omitempty"`
	UserNotes     string `json:"user_notes,omitempty"`
}

// DurationMinutes returns the elapsed whole minutes between the session start
// and its end time, or now for sessions that have not ended. Duration is
// always derived, never stored.
func (s *Session) DurationMinutes(now time.Time) int {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	d := end.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// IsComplete reports whether the session finished normally with feedback.
func (s *Session) IsComplete() bool {
	return s.Status == StatusCompleted && s.EndTime != nil
}

// Clone returns a deep copy of the session. The registry hands out clones so
// callers can never mutate registry state.
func (s *Session) Clone() *Session {
	c := *s
	if s.EstimatedMinutes != nil {
		v := *s.EstimatedMinutes
		c.EstimatedMinutes = &v
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}
