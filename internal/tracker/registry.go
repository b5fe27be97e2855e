package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/thebtf/flowstate/pkg/models"
)

// SessionWriter persists session state. Save is an upsert keyed by
// (user_id, session_id).
type SessionWriter interface {
	SaveSession(s *models.Session) error
}

// Feedback carries the end-of-session self-report.
type Feedback struct {
	FocusQuality  int
	EnergyLevel   int
	Interruptions int
	Satisfaction  int
	UserNotes     string
}

// TransitionEvent names a lifecycle transition for observers.
type TransitionEvent string

const (
	EventStarted   TransitionEvent = "session_started"
	EventPaused    TransitionEvent = "session_paused"
	EventResumed   TransitionEvent = "session_resumed"
	EventCompleted TransitionEvent = "session_completed"
	EventCancelled TransitionEvent = "session_cancelled"
)

// record pairs a session with its own mutex. Operations on distinct session
// ids never contend; racing operations on one id serialize on this lock.
type record struct {
	mu      sync.Mutex
	session *models.Session
}

// Registry is the authoritative owner of session lifecycle per user. It keeps
// all sessions in memory, writes through to an optional persistence layer,
// and notifies an optional observer after each committed transition.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*record // userID -> sessionID -> record

	vocab *Vocabulary
	store SessionWriter
	now   func() time.Time

	onTransition func(event TransitionEvent, s *models.Session)
}

// NewRegistry creates a registry. store may be nil for in-memory operation.
func NewRegistry(vocab *Vocabulary, store SessionWriter) *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*record),
		vocab:    vocab,
		store:    store,
		now:      time.Now,
	}
}

// SetOnTransition registers a callback invoked after a lifecycle transition
// is fully committed. The callback receives a clone.
func (r *Registry) SetOnTransition(fn func(event TransitionEvent, s *models.Session)) {
	r.onTransition = fn
}

// SetClock overrides the registry clock. Tests only.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// Start validates input, creates a new active session and registers its tag
// in the vocabulary. There is no limit on concurrently live sessions.
func (r *Registry) Start(userID string, tag models.Tag, task string, estimated *int, energy int) (*models.Session, error) {
	if tag.Main == "" {
		return nil, &ValidationError{Field: "main_tag", Reason: "must be non-empty after normalization"}
	}
	if energy < 1 || energy > 5 {
		return nil, &ValidationError{Field: "energy_level", Reason: "must be between 1 and 5"}
	}
	if estimated != nil && *estimated <= 0 {
		return nil, &ValidationError{Field: "estimated_minutes", Reason: "must be positive"}
	}

	s := &models.Session{
		SessionID:        uuid.NewString(),
		UserID:           userID,
		Tag:              tag,
		TaskDescription:  task,
		EstimatedMinutes: estimated,
		EnergyLevel:      energy,
		StartTime:        r.now(),
		Status:           models.StatusActive,
	}

	r.mu.Lock()
	userSessions, ok := r.sessions[userID]
	if !ok {
		userSessions = make(map[string]*record)
		r.sessions[userID] = userSessions
	}
	userSessions[s.SessionID] = &record{session: s}
	r.mu.Unlock()

	r.vocab.Record(userID, tag)
	r.persist(s)
	r.notify(EventStarted, s)

	log.Debug().Str("userId", userID).Str("sessionId", s.SessionID).
		Str("tag", tag.Display()).Msg("Session started")
	return s.Clone(), nil
}

// Get returns a clone of the session in any status.
func (r *Registry) Get(userID, sessionID string) (*models.Session, error) {
	rec, err := r.find(userID, sessionID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.session.Clone(), nil
}

// ListActive returns all live (active or paused) sessions for the user in
// start-time order. Callers compute display durations from the clones.
func (r *Registry) ListActive(userID string) []*models.Session {
	r.mu.RLock()
	records := make([]*record, 0, len(r.sessions[userID]))
	for _, rec := range r.sessions[userID] {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	out := make([]*models.Session, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		if rec.session.Status.IsLive() {
			out = append(out, rec.session.Clone())
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Completed returns clones of the user's completed sessions. Only fully
// committed transitions are visible: each record is read under its own lock,
// so an in-flight end can never leak a half-written session.
func (r *Registry) Completed(userID string) []*models.Session {
	r.mu.RLock()
	records := make([]*record, 0, len(r.sessions[userID]))
	for _, rec := range r.sessions[userID] {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	out := make([]*models.Session, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		if rec.session.IsComplete() {
			out = append(out, rec.session.Clone())
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Pause transitions active -> paused.
func (r *Registry) Pause(userID, sessionID string) (*models.Session, error) {
	return r.transition(userID, sessionID, "pause", func(s *models.Session) error {
		if s.Status != models.StatusActive {
			return &InvalidTransitionError{SessionID: sessionID, From: s.Status, Op: "pause"}
		}
		s.Status = models.StatusPaused
		return nil
	}, EventPaused)
}

// Resume transitions paused -> active.
func (r *Registry) Resume(userID, sessionID string) (*models.Session, error) {
	return r.transition(userID, sessionID, "resume", func(s *models.Session) error {
		if s.Status != models.StatusPaused {
			return &InvalidTransitionError{SessionID: sessionID, From: s.Status, Op: "resume"}
		}
		s.Status = models.StatusActive
		return nil
	}, EventResumed)
}

// End completes a live session, capturing the feedback fields. Validation
// failures leave the session untouched.
func (r *Registry) End(userID, sessionID string, fb Feedback) (*models.Session, error) {
	if err := validateFeedback(fb); err != nil {
		return nil, err
	}
	return r.transition(userID, sessionID, "end", func(s *models.Session) error {
		if !s.Status.IsLive() {
			return &InvalidTransitionError{SessionID: sessionID, From: s.Status, Op: "end"}
		}
		end := r.now()
		s.EndTime = &end
		s.Status = models.StatusCompleted
		s.FocusQuality = fb.FocusQuality
		s.EnergyLevel = fb.EnergyLevel
		s.Interruptions = fb.Interruptions
		s.Satisfaction = fb.Satisfaction
		s.UserNotes = fb.UserNotes
		return nil
	}, EventCompleted)
}

// Cancel terminates a live session without feedback. Cancelled sessions are
// excluded from all aggregation.
func (r *Registry) Cancel(userID, sessionID string) (*models.Session, error) {
	return r.transition(userID, sessionID, "cancel", func(s *models.Session) error {
		if !s.Status.IsLive() {
			return &InvalidTransitionError{SessionID: sessionID, From: s.Status, Op: "cancel"}
		}
		end := r.now()
		s.EndTime = &end
		s.Status = models.StatusCancelled
		return nil
	}, EventCancelled)
}

// Seed loads sessions into the registry without persistence writes or
// notifications. Used at startup to rehydrate from the store.
func (r *Registry) Seed(sessions []*models.Session) {
	r.mu.Lock()
	for _, s := range sessions {
		userSessions, ok := r.sessions[s.UserID]
		if !ok {
			userSessions = make(map[string]*record)
			r.sessions[s.UserID] = userSessions
		}
		userSessions[s.SessionID] = &record{session: s.Clone()}
	}
	r.mu.Unlock()

	for _, s := range sessions {
		r.vocab.Seed(s.UserID, s.Tag)
	}
}

func (r *Registry) find(userID, sessionID string) (*record, error) {
	r.mu.RLock()
	rec, ok := r.sessions[userID][sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	return rec, nil
}

func (r *Registry) transition(userID, sessionID, op string, mutate func(*models.Session) error, event TransitionEvent) (*models.Session, error) {
	rec, err := r.find(userID, sessionID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	if err := mutate(rec.session); err != nil {
		rec.mu.Unlock()
		return nil, err
	}
	clone := rec.session.Clone()
	rec.mu.Unlock()

	r.persist(clone)
	r.notify(event, clone)

	log.Debug().Str("userId", userID).Str("sessionId", sessionID).
		Str("op", op).Str("status", string(clone.Status)).Msg("Session transition")
	return clone.Clone(), nil
}

func (r *Registry) persist(s *models.Session) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveSession(s); err != nil {
		log.Error().Err(err).Str("sessionId", s.SessionID).Msg("Failed to persist session")
	}
}

func (r *Registry) notify(event TransitionEvent, s *models.Session) {
	if r.onTransition != nil {
		r.onTransition(event, s.Clone())
	}
}

func validateFeedback(fb Feedback) error {
	switch {
	case fb.FocusQuality < 1 || fb.FocusQuality > 5:
		return &ValidationError{Field: "focus_quality", Reason: "must be between 1 and 5"}
	case fb.EnergyLevel < 1 || fb.EnergyLevel > 5:
		return &ValidationError{Field: "energy_level", Reason: "must be between 1 and 5"}
	case fb.Satisfaction < 1 || fb.Satisfaction > 5:
		return &ValidationError{Field: "satisfaction", Reason: "must be between 1 and 5"}
	case fb.Interruptions < 0:
		return &ValidationError{Field: "interruptions", Reason: "must not be negative"}
	}
	return nil
}
