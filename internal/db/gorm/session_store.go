package gorm

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"

	"github.com/thebtf/flowstate/pkg/models"
)

// SessionStore persists session snapshots. It implements
// tracker.SessionWriter.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a SessionStore backed by the given Store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// SaveSession upserts the full session snapshot keyed by (user_id,
// session_id). The registry calls it on every lifecycle transition, so the
// row always mirrors the latest in-memory state.
func (s *SessionStore) SaveSession(session *models.Session) error {
	row := sessionRowFromModel(session)

	err := s.store.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"main_tag", "sub_tag", "task_description", "estimated_minutes",
			"energy_level", "status", "completed_at", "completed_at_epoch",
			"focus_quality", "interruptions", "satisfaction", "user_notes",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.SessionID, err)
	}

	log.Debug().
		Str("session_id", session.SessionID).
		Str("user_id", session.UserID).
		Str("status", string(session.Status)).
		Msg("Session persisted")
	return nil
}

// ListAll returns every stored session ordered by start time, oldest first.
// Used to rehydrate the registry at startup.
func (s *SessionStore) ListAll() ([]*models.Session, error) {
	var rows []SessionRow
	if err := s.store.DB.Order("started_at_epoch ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(rows))
	for i := range rows {
		session, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// ListByUser returns one user's stored sessions ordered by start time.
func (s *SessionStore) ListByUser(userID string) ([]*models.Session, error) {
	var rows []SessionRow
	err := s.store.DB.
		Where("user_id = ?", userID).
		Order("started_at_epoch ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", userID, err)
	}

	sessions := make([]*models.Session, 0, len(rows))
	for i := range rows {
		session, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
