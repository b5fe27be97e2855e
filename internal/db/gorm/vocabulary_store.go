package gorm

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"

	"github.com/thebtf/flowstate/pkg/models"
)

// VocabularyEntry pairs a user with one tag they have used.
type VocabularyEntry struct {
	UserID string
	Tag    models.Tag
}

// VocabularyStore persists each user's tag vocabulary. It implements
// tracker.VocabularyWriter.
type VocabularyStore struct {
	store *Store
}

// NewVocabularyStore creates a VocabularyStore backed by the given Store.
func NewVocabularyStore(store *Store) *VocabularyStore {
	return &VocabularyStore{store: store}
}

// RecordTag inserts the tag for the user, ignoring duplicates.
func (s *VocabularyStore) RecordTag(userID string, tag models.Tag) error {
	row := TagVocabulary{
		UserID:  userID,
		MainTag: tag.Main,
		SubTag:  tag.Sub,
	}

	err := s.store.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "main_tag"}, {Name: "sub_tag"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record tag %s for %s: %w", tag.Display(), userID, err)
	}

	log.Debug().
		Str("user_id", userID).
		Str("tag", tag.Display()).
		Msg("Vocabulary tag persisted")
	return nil
}

// ListAll returns every stored vocabulary entry. Used to rehydrate the
// in-memory vocabulary at startup.
func (s *VocabularyStore) ListAll() ([]VocabularyEntry, error) {
	var rows []TagVocabulary
	if err := s.store.DB.Order("user_id, main_tag, sub_tag").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}

	entries := make([]VocabularyEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, VocabularyEntry{
			UserID: row.UserID,
			Tag:    models.Tag{Main: row.MainTag, Sub: row.SubTag},
		})
	}
	return entries, nil
}
