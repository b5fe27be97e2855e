package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/thebtf/flowstate/pkg/models"
)

// RegistrySuite is a test suite for Registry operations.
type RegistrySuite struct {
	suite.Suite
	registry *Registry
	now      time.Time
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry(NewVocabulary(nil), nil)
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.registry.SetClock(func() time.Time { return s.now })
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) start(userID, main, sub string, energy int) *models.Session {
	sess, err := s.registry.Start(userID, models.NewTag(main, sub), "", nil, energy)
	s.Require().NoError(err)
	return sess
}

func (s *RegistrySuite) feedback() Feedback {
	return Feedback{FocusQuality: 4, EnergyLevel: 3, Interruptions: 0, Satisfaction: 4}
}

// TestStart tests session creation and validation.
func (s *RegistrySuite) TestStart() {
	est := 60
	sess, err := s.registry.Start("u1", models.NewTag("Work", "Client"), "feature work", &est, 4)
	s.Require().NoError(err)

	s.NotEmpty(sess.SessionID)
	s.Equal("u1", sess.UserID)
	s.Equal(models.Tag{Main: "work", Sub: "client"}, sess.Tag)
	s.Equal(models.StatusActive, sess.Status)
	s.Equal(4, sess.EnergyLevel)
	s.Equal(60, *sess.EstimatedMinutes)
	s.Equal(s.now, sess.StartTime)
	s.Nil(sess.EndTime)

	// Tag lands in the vocabulary immediately.
	tags := s.registry.vocab.List("u1")
	s.Len(tags, 1)
	s.Equal("#work/client", tags[0].Display())
}

// TestStartValidation tests input rejection with no side effects.
func (s *RegistrySuite) TestStartValidation() {
	badEst := 0

	tests := []struct {
		name   string
		tag    models.Tag
		est    *int
		energy int
		field  string
	}{
		{"empty_main_tag", models.NewTag("  #  ", ""), nil, 3, "main_tag"},
		{"energy_too_low", models.NewTag("work", ""), nil, 0, "energy_level"},
		{"energy_too_high", models.NewTag("work", ""), nil, 6, "energy_level"},
		{"zero_estimate", models.NewTag("work", ""), &badEst, 3, "estimated_minutes"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.registry.Start("u1", tt.tag, "", tt.est, tt.energy)
			var verr *ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tt.field, verr.Field)
		})
	}

	s.Empty(s.registry.ListActive("u1"))
}

// TestConcurrentSessionsIndependent tests that many live sessions coexist with
// independent durations.
func (s *RegistrySuite) TestConcurrentSessionsIndependent() {
	first := s.start("u1", "work", "demo", 4)
	s.now = s.now.Add(10 * time.Minute)
	second := s.start("u1", "learning", "react", 3)

	active := s.registry.ListActive("u1")
	s.Require().Len(active, 2)

	// Start-time order.
	s.Equal(first.SessionID, active[0].SessionID)
	s.Equal(second.SessionID, active[1].SessionID)

	later := s.now.Add(5 * time.Minute)
	s.Equal(15, active[0].DurationMinutes(later))
	s.Equal(5, active[1].DurationMinutes(later))
}

// TestLifecycle tests the full legal transition graph.
func (s *RegistrySuite) TestLifecycle() {
	sess := s.start("u1", "work", "", 3)

	paused, err := s.registry.Pause("u1", sess.SessionID)
	s.Require().NoError(err)
	s.Equal(models.StatusPaused, paused.Status)

	resumed, err := s.registry.Resume("u1", sess.SessionID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, resumed.Status)

	s.now = s.now.Add(42 * time.Minute)
	done, err := s.registry.End("u1", sess.SessionID, Feedback{
		FocusQuality: 5, EnergyLevel: 4, Interruptions: 1, Satisfaction: 5, UserNotes: "good run",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.Require().NotNil(done.EndTime)
	s.Equal(42, done.DurationMinutes(s.now))
	s.Equal(5, done.FocusQuality)
	s.Equal(4, done.EnergyLevel)
	s.Equal("good run", done.UserNotes)

	s.Empty(s.registry.ListActive("u1"))
	s.Len(s.registry.Completed("u1"), 1)
}

// TestIllegalTransitions tests that every illegal transition fails and leaves
// state unchanged.
func (s *RegistrySuite) TestIllegalTransitions() {
	sess := s.start("u1", "work", "", 3)

	// Resume an active session.
	_, err := s.registry.Resume("u1", sess.SessionID)
	var terr *InvalidTransitionError
	s.Require().ErrorAs(err, &terr)
	s.Equal(models.StatusActive, terr.From)

	// Pause twice.
	_, err = s.registry.Pause("u1", sess.SessionID)
	s.Require().NoError(err)
	_, err = s.registry.Pause("u1", sess.SessionID)
	s.Require().ErrorAs(err, &terr)
	s.Equal(models.StatusPaused, terr.From)

	// Terminal states reject everything.
	_, err = s.registry.End("u1", sess.SessionID, s.feedback())
	s.Require().NoError(err)
	for _, op := range []func() (*models.Session, error){
		func() (*models.Session, error) { return s.registry.Pause("u1", sess.SessionID) },
		func() (*models.Session, error) { return s.registry.Resume("u1", sess.SessionID) },
		func() (*models.Session, error) { return s.registry.End("u1", sess.SessionID, s.feedback()) },
		func() (*models.Session, error) { return s.registry.Cancel("u1", sess.SessionID) },
	} {
		_, err := op()
		s.Require().ErrorAs(err, &terr)
		s.Equal(models.StatusCompleted, terr.From)
	}

	got, err := s.registry.Get("u1", sess.SessionID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
}

// TestEndValidation tests feedback validation before any mutation.
func (s *RegistrySuite) TestEndValidation() {
	sess := s.start("u1", "work", "", 3)

	tests := []struct {
		name  string
		fb    Feedback
		field string
	}{
		{"focus_out_of_range", Feedback{FocusQuality: 0, EnergyLevel: 3, Satisfaction: 3}, "focus_quality"},
		{"energy_out_of_range", Feedback{FocusQuality: 3, EnergyLevel: 9, Satisfaction: 3}, "energy_level"},
		{"satisfaction_out_of_range", Feedback{FocusQuality: 3, EnergyLevel: 3, Satisfaction: 0}, "satisfaction"},
		{"negative_interruptions", Feedback{FocusQuality: 3, EnergyLevel: 3, Satisfaction: 3, Interruptions: -1}, "interruptions"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.registry.End("u1", sess.SessionID, tt.fb)
			var verr *ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tt.field, verr.Field)
		})
	}

	// Session untouched by the failed attempts.
	got, err := s.registry.Get("u1", sess.SessionID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
}

// TestCancel tests cancellation semantics.
func (s *RegistrySuite) TestCancel() {
	sess := s.start("u1", "work", "", 3)

	cancelled, err := s.registry.Cancel("u1", sess.SessionID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Status)
	s.NotNil(cancelled.EndTime)
	s.Zero(cancelled.FocusQuality)

	// Excluded from aggregation input, but the tag stays in the vocabulary.
	s.Empty(s.registry.Completed("u1"))
	s.Len(s.registry.vocab.List("u1"), 1)
}

// TestOwnershipAndNotFound tests cross-user isolation.
func (s *RegistrySuite) TestOwnershipAndNotFound() {
	sess := s.start("u1", "work", "", 3)

	var nferr *NotFoundError
	_, err := s.registry.Get("u2", sess.SessionID)
	s.Require().ErrorAs(err, &nferr)
	s.Equal(sess.SessionID, nferr.SessionID)

	_, err = s.registry.Pause("u2", sess.SessionID)
	s.ErrorAs(err, &nferr)

	_, err = s.registry.Get("u1", "no-such-session")
	s.ErrorAs(err, &nferr)
}

// TestClonesAreIsolated tests that returned sessions never alias registry
// state.
func (s *RegistrySuite) TestClonesAreIsolated() {
	sess := s.start("u1", "work", "", 3)
	sess.Status = models.StatusCancelled
	sess.Tag = models.Tag{Main: "hacked"}

	got, err := s.registry.Get("u1", sess.SessionID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
	s.Equal("work", got.Tag.Main)
}

// TestTransitionCallback tests observer notification after commit.
func (s *RegistrySuite) TestTransitionCallback() {
	var events []TransitionEvent
	s.registry.SetOnTransition(func(event TransitionEvent, _ *models.Session) {
		events = append(events, event)
	})

	sess := s.start("u1", "work", "", 3)
	_, _ = s.registry.Pause("u1", sess.SessionID)
	_, _ = s.registry.Resume("u1", sess.SessionID)
	_, _ = s.registry.End("u1", sess.SessionID, s.feedback())

	s.Equal([]TransitionEvent{EventStarted, EventPaused, EventResumed, EventCompleted}, events)
}

// TestSeed tests registry rehydration.
func (s *RegistrySuite) TestSeed() {
	end := s.now.Add(-time.Hour)
	s.registry.Seed([]*models.Session{
		{SessionID: "a", UserID: "u1", Tag: models.Tag{Main: "work"}, StartTime: s.now.Add(-2 * time.Hour), EndTime: &end, Status: models.StatusCompleted, EnergyLevel: 3, FocusQuality: 4, Satisfaction: 3},
		{SessionID: "b", UserID: "u1", Tag: models.Tag{Main: "learning"}, StartTime: s.now.Add(-time.Minute), Status: models.StatusActive, EnergyLevel: 3},
	})

	s.Len(s.registry.Completed("u1"), 1)
	s.Len(s.registry.ListActive("u1"), 1)
	s.Len(s.registry.vocab.List("u1"), 2)

	// Seeded live sessions follow the normal lifecycle.
	_, err := s.registry.End("u1", "b", s.feedback())
	s.NoError(err)
	s.Len(s.registry.Completed("u1"), 2)
}

// TestConcurrentRacingOps tests that racing pause/end on one session id
// serialize: exactly one of the competing terminal ops succeeds.
func TestConcurrentRacingOps(t *testing.T) {
	registry := NewRegistry(NewVocabulary(nil), nil)

	sess, err := registry.Start("u1", models.NewTag("work", ""), "", nil, 3)
	assert.NoError(t, err)

	fb := Feedback{FocusQuality: 3, EnergyLevel: 3, Satisfaction: 3}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := map[string]int{}

	run := func(name string, op func() error) {
		defer wg.Done()
		if op() == nil {
			mu.Lock()
			successes[name]++
			mu.Unlock()
		}
	}

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go run("end", func() error {
			_, err := registry.End("u1", sess.SessionID, fb)
			return err
		})
		go run("cancel", func() error {
			_, err := registry.Cancel("u1", sess.SessionID)
			return err
		})
	}
	wg.Wait()

	// Exactly one terminal transition across all racers.
	assert.Equal(t, 1, successes["end"]+successes["cancel"])

	got, err := registry.Get("u1", sess.SessionID)
	assert.NoError(t, err)
	assert.True(t, got.Status.IsTerminal())
}

// TestConcurrentStartsIndependent tests that operations on distinct sessions
// proceed in parallel without interference.
func TestConcurrentStartsIndependent(t *testing.T) {
	registry := NewRegistry(NewVocabulary(nil), nil)

	var wg sync.WaitGroup
	ids := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess, err := registry.Start("u1", models.NewTag("work", ""), "", nil, 3)
			assert.NoError(t, err)
			ids <- sess.SessionID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "session ids must be unique")
		seen[id] = true
	}
	assert.Len(t, registry.ListActive("u1"), 100)
}
