// Package gorm provides GORM-based database operations for flowstate.
package gorm

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/flowstate/pkg/models"
)

// GORM Models

// SessionRow is the persisted form of a tracked session. Timestamps are
// stored twice: RFC3339 text for humans poking at the database, epoch
// milliseconds for indexed range scans.
type SessionRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;uniqueIndex:idx_sessions_user_session,priority:1;not null"`
	SessionID string `gorm:"uniqueIndex:idx_sessions_user_session,priority:2;not null"`

	MainTag string `gorm:"index:idx_sessions_tag,priority:1;not null"`
	SubTag  string `gorm:"index:idx_sessions_tag,priority:2;default:''"`

	TaskDescription  sql.NullString `gorm:"type:text"`
	EstimatedMinutes sql.NullInt64
	EnergyLevel      int    `gorm:"check:energy_level BETWEEN 1 AND 5;not null"`
	Status           string `gorm:"type:text;check:status IN ('active', 'paused', 'completed', 'cancelled');index;not null"`

	StartedAt        string `gorm:"not null"`
	StartedAtEpoch   int64  `gorm:"index:idx_sessions_started,sort:desc;not null"`
	CompletedAt      sql.NullString
	CompletedAtEpoch sql.NullInt64

	// End-of-session feedback, zero until the session completes.
	FocusQuality  int            `gorm:"default:0"`
	Interruptions int            `gorm:"default:0"`
	Satisfaction  int            `gorm:"default:0"`
	UserNotes     sql.NullString `gorm:"type:text"`
}

func (SessionRow) TableName() string { return "sessions" }

// BeforeCreate hook to ensure timestamps are set.
func (r *SessionRow) BeforeCreate(tx *gorm.DB) error {
	if r.StartedAtEpoch == 0 {
		r.StartedAtEpoch = time.Now().UnixMilli()
	}
	if r.StartedAt == "" {
		r.StartedAt = time.Now().Format(time.RFC3339Nano)
	}
	return nil
}

// TagVocabulary records every tag a user has ever started a session with.
// Rows are insert-only; duplicates are ignored on conflict.
type TagVocabulary struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	UserID         string `gorm:"index;uniqueIndex:idx_vocabulary_user_tag,priority:1;not null"`
	MainTag        string `gorm:"uniqueIndex:idx_vocabulary_user_tag,priority:2;not null"`
	SubTag         string `gorm:"uniqueIndex:idx_vocabulary_user_tag,priority:3;default:''"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (TagVocabulary) TableName() string { return "tag_vocabulary" }

// BeforeCreate hook to ensure timestamps are set.
func (v *TagVocabulary) BeforeCreate(tx *gorm.DB) error {
	if v.CreatedAtEpoch == 0 {
		v.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if v.CreatedAt == "" {
		v.CreatedAt = time.Now().Format(time.RFC3339Nano)
	}
	return nil
}

// sessionRowFromModel maps an in-memory session onto its persisted form.
func sessionRowFromModel(s *models.Session) SessionRow {
	row := SessionRow{
		UserID:         s.UserID,
		SessionID:      s.SessionID,
		MainTag:        s.Tag.Main,
		SubTag:         s.Tag.Sub,
		EnergyLevel:    s.EnergyLevel,
		Status:         string(s.Status),
		StartedAt:      s.StartTime.Format(time.RFC3339Nano),
		StartedAtEpoch: s.StartTime.UnixMilli(),
		FocusQuality:   s.FocusQuality,
		Interruptions:  s.Interruptions,
		Satisfaction:   s.Satisfaction,
	}
	if s.TaskDescription != "" {
		row.TaskDescription = sql.NullString{String: s.TaskDescription, Valid: true}
	}
	if s.EstimatedMinutes != nil {
		row.EstimatedMinutes = sql.NullInt64{Int64: int64(*s.EstimatedMinutes), Valid: true}
	}
	if s.EndTime != nil {
		row.CompletedAt = sql.NullString{String: s.EndTime.Format(time.RFC3339Nano), Valid: true}
		row.CompletedAtEpoch = sql.NullInt64{Int64: s.EndTime.UnixMilli(), Valid: true}
	}
	if s.UserNotes != "" {
		row.UserNotes = sql.NullString{String: s.UserNotes, Valid: true}
	}
	return row
}

// toModel rebuilds the in-memory session from a persisted row.
func (r *SessionRow) toModel() (*models.Session, error) {
	start, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at for session %s: %w", r.SessionID, err)
	}
	s := &models.Session{
		SessionID:       r.SessionID,
		UserID:          r.UserID,
		Tag:             models.Tag{Main: r.MainTag, Sub: r.SubTag},
		TaskDescription: r.TaskDescription.String,
		EnergyLevel:     r.EnergyLevel,
		StartTime:       start,
		Status:          models.SessionStatus(r.Status),
		FocusQuality:    r.FocusQuality,
		Interruptions:   r.Interruptions,
		Satisfaction:    r.Satisfaction,
		UserNotes:       r.UserNotes.String,
	}
	if r.EstimatedMinutes.Valid {
		est := int(r.EstimatedMinutes.Int64)
		s.EstimatedMinutes = &est
	}
	if r.CompletedAt.Valid {
		end, err := time.Parse(time.RFC3339Nano, r.CompletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at for session %s: %w", r.SessionID, err)
		}
		s.EndTime = &end
	}
	return s, nil
}
