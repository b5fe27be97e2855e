package tracker

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/thebtf/flowstate/pkg/models"
)

// VocabularyWriter persists vocabulary entries. Record must be idempotent.
type VocabularyWriter interface {
	RecordTag(userID string, tag models.Tag) error
}

// Vocabulary is the de-duplicated history of tags per user. It feeds
// autocomplete and provides stable grouping keys for analytics. Entries are
// added whenever a session starts, so tags from later-cancelled sessions are
// kept too.
type Vocabulary struct {
	mu    sync.RWMutex
	tags  map[string]map[models.Tag]struct{}
	store VocabularyWriter
}

// NewVocabulary creates an empty vocabulary. store may be nil for a purely
// in-memory vocabulary.
func NewVocabulary(store VocabularyWriter) *Vocabulary {
	return &Vocabulary{
		tags:  make(map[string]map[models.Tag]struct{}),
		store: store,
	}
}

// Record adds a tag to the user's vocabulary. Repeat additions are no-ops.
func (v *Vocabulary) Record(userID string, tag models.Tag) {
	v.mu.Lock()
	userTags, ok := v.tags[userID]
	if !ok {
		userTags = make(map[models.Tag]struct{})
		v.tags[userID] = userTags
	}
	_, seen := userTags[tag]
	userTags[tag] = struct{}{}
	v.mu.Unlock()

	if seen || v.store == nil {
		return
	}
	if err := v.store.RecordTag(userID, tag); err != nil {
		log.Warn().Err(err).Str("userId", userID).Str("tag", tag.Display()).
			Msg("Failed to persist vocabulary entry")
	}
}

// List returns all tags the user has ever used, sorted by display form. The
// ordering is stable across repeated calls with no new writes.
func (v *Vocabulary) List(userID string) []models.Tag {
	v.mu.RLock()
	userTags := v.tags[userID]
	out := make([]models.Tag, 0, len(userTags))
	for tag := range userTags {
		out = append(out, tag)
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Display() < out[j].Display()
	})
	return out
}

// Seed loads a tag without hitting the persistence layer. Used during
// rehydration from the database at startup.
func (v *Vocabulary) Seed(userID string, tag models.Tag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	userTags, ok := v.tags[userID]
	if !ok {
		userTags = make(map[models.Tag]struct{})
		v.tags[userID] = userTags
	}
	userTags[tag] = struct{}{}
}
