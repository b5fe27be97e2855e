// Package worker provides the HTTP worker service for flowstate.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/flowstate/internal/config"
	"github.com/thebtf/flowstate/internal/db/gorm"
	"github.com/thebtf/flowstate/internal/tracker"
	"github.com/thebtf/flowstate/internal/worker/sse"
	"github.com/thebtf/flowstate/pkg/models"
)

// Service is the flowstate worker: registry, analytics endpoints and the SSE
// event stream behind one chi router.
type Service struct {
	version string
	config  *config.Config

	store        *gorm.Store
	sessionStore *gorm.SessionStore
	vocabStore   *gorm.VocabularyStore

	vocabulary *tracker.Vocabulary
	registry   *tracker.Registry

	sseBroadcaster *sse.Broadcaster
	router         *chi.Mux
	httpServer     *http.Server
	metrics        *serviceMetrics

	ctx       context.Context
	cancel    context.CancelFunc
	ready     atomic.Bool
	startTime time.Time
}

// New creates the worker service, rehydrates the registry from the store and
// wires lifecycle events into the SSE broadcaster.
func New(version string, cfg *config.Config, store *gorm.Store) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        version,
		config:         cfg,
		store:          store,
		sessionStore:   gorm.NewSessionStore(store),
		vocabStore:     gorm.NewVocabularyStore(store),
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		metrics:        newServiceMetrics(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}

	svc.vocabulary = tracker.NewVocabulary(svc.vocabStore)
	svc.registry = tracker.NewRegistry(svc.vocabulary, svc.sessionStore)
	svc.registry.SetOnTransition(svc.onTransition)

	if err := svc.rehydrate(); err != nil {
		cancel()
		return nil, fmt.Errorf("rehydrate registry: %w", err)
	}

	svc.setupRoutes()
	svc.ready.Store(true)
	return svc, nil
}

// rehydrate loads all persisted sessions and vocabulary entries back into
// memory. Live sessions keep ticking across restarts because duration is
// derived from start_time.
func (s *Service) rehydrate() error {
	sessions, err := s.sessionStore.ListAll()
	if err != nil {
		return err
	}
	s.registry.Seed(sessions)

	entries, err := s.vocabStore.ListAll()
	if err != nil {
		return err
	}
	for _, e := range entries {
		s.vocabulary.Seed(e.UserID, e.Tag)
	}

	log.Info().Int("sessions", len(sessions)).Int("vocabularyEntries", len(entries)).
		Msg("Registry rehydrated")
	return nil
}

// onTransition fans committed lifecycle transitions out to SSE clients and
// the metrics counters.
func (s *Service) onTransition(event tracker.TransitionEvent, session *models.Session) {
	s.sseBroadcaster.BroadcastEvent(string(event), session)
	s.metrics.recordTransition(s.ctx, event)
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Get("/version", s.handleVersion)
		r.Get("/events", s.sseBroadcaster.HandleSSE)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(s.requireReady)

			r.Post("/sessions/start", s.handleStartSession)
			r.Get("/sessions/active", s.handleListActive)
			r.Post("/sessions/end", s.handleEndSession)
			r.Post("/sessions/{sessionID}/pause", s.handlePauseSession)
			r.Post("/sessions/{sessionID}/resume", s.handleResumeSession)
			r.Delete("/sessions/{sessionID}", s.handleCancelSession)
			r.Get("/sessions/{sessionID}", s.handleGetSession)

			r.Get("/tags", s.handleListTags)
			r.Get("/tags/analytics", s.handleTagAnalytics)
			r.Get("/estimation-accuracy", s.handleEstimationAccuracy)
			r.Get("/summary/daily", s.handleDailySummary)
			r.Get("/patterns", s.handlePatterns)
			r.Get("/insights", s.handleInsights)
		})
	})
}

// requireReady rejects requests until startup rehydration has finished.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			http.Error(w, "service not ready", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request with zerolog and counts it.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.metrics.recordRequest(r.Context(), r.Method, ww.Status())
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Start runs the HTTP server until the context is cancelled or the listener
// fails.
func (s *Service) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Int("port", s.config.Port).Str("version", s.version).
		Msg("Worker listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Shutdown drains in-flight requests and stops the service.
func (s *Service) Shutdown() error {
	s.ready.Store(false)
	s.cancel()

	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router exposes the configured router, mainly for tests.
func (s *Service) Router() http.Handler {
	return s.router
}
