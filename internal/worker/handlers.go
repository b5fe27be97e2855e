package worker

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/flowstate/internal/analytics"
	"github.com/thebtf/flowstate/internal/tracker"
	"github.com/thebtf/flowstate/pkg/models"
)

type startSessionRequest struct {
	MainTag          string `json:"main_tag"`
	SubTag           string `json:"sub_tag"`
	TaskDescription  string `json:"task_description"`
	EstimatedMinutes *int   `json:"estimated_minutes"`
	EnergyLevel      int    `json:"energy_level"`
}

type endSessionRequest struct {
	SessionID     string `json:"session_id"`
	FocusQuality  int    `json:"focus_quality"`
	EnergyLevel   int    `json:"energy_level"`
	Interruptions int    `json:"interruptions"`
	Satisfaction  int    `json:"satisfaction"`
	UserNotes     string `json:"user_notes"`
}

// sessionView is a session plus its live-computed duration. Duration is
// derived at render time, never stored.
type sessionView struct {
	*models.Session
	DurationMinutes int `json:"duration_minutes"`
}

func newSessionView(s *models.Session, now time.Time) sessionView {
	return sessionView{Session: s, DurationMinutes: s.DurationMinutes(now)}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors onto HTTP statuses with a structured body.
func writeError(w http.ResponseWriter, err error) {
	var validation *tracker.ValidationError
	var notFound *tracker.NotFoundError
	var transition *tracker.InvalidTransitionError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validation.Error(),
			"field": validation.Field,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":      notFound.Error(),
			"session_id": notFound.SessionID,
		})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":          transition.Error(),
			"session_id":     transition.SessionID,
			"current_status": string(transition.From),
		})
	default:
		log.Error().Err(err).Msg("Internal error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tag := models.NewTag(req.MainTag, req.SubTag)
	session, err := s.registry.Start(userID, tag, req.TaskDescription, req.EstimatedMinutes, req.EnergyLevel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(session, time.Now()))
}

func (s *Service) handleListActive(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	now := time.Now()

	sessions := s.registry.ListActive(userID)
	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, newSessionView(session, now))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": views,
		"count":    len(views),
	})
}

func (s *Service) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req endSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, &tracker.ValidationError{Field: "session_id", Reason: "must be provided"})
		return
	}

	session, err := s.registry.End(userID, req.SessionID, tracker.Feedback{
		FocusQuality:  req.FocusQuality,
		EnergyLevel:   req.EnergyLevel,
		Interruptions: req.Interruptions,
		Satisfaction:  req.Satisfaction,
		UserNotes:     req.UserNotes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session, time.Now()))
}

func (s *Service) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Pause(chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session, time.Now()))
}

func (s *Service) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Resume(chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session, time.Now()))
}

func (s *Service) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Cancel(chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session, time.Now()))
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session, time.Now()))
}

// tagView pairs the structured tag with its display form.
type tagView struct {
	models.Tag
	Display string `json:"display"`
}

func (s *Service) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags := s.vocabulary.List(chi.URLParam(r, "userID"))
	views := make([]tagView, 0, len(tags))
	for _, tag := range tags {
		views = append(views, tagView{Tag: tag, Display: tag.Display()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  views,
		"count": len(views),
	})
}

// timeframeDays reads the timeframe_days query param, falling back to the
// configured default. Returns ok=false after writing a 400 for bad input.
func (s *Service) timeframeDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("timeframe_days")
	if raw == "" {
		return s.config.InsightTimeframeDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "timeframe_days must be a positive integer",
		})
		return 0, false
	}
	return days, true
}

func (s *Service) handleTagAnalytics(w http.ResponseWriter, r *http.Request) {
	days, ok := s.timeframeDays(w, r)
	if !ok {
		return
	}
	completed := s.registry.Completed(chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timeframe_days": days,
		"tags":           analytics.TagAnalytics(completed, days, time.Now()),
	})
}

func (s *Service) handleEstimationAccuracy(w http.ResponseWriter, r *http.Request) {
	completed := s.registry.Completed(chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags": analytics.EstimationAccuracy(completed, time.Now()),
	})
}

func (s *Service) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "date must be YYYY-MM-DD",
			})
			return
		}
		date = parsed
	}

	completed := s.registry.Completed(chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, analytics.Daily(completed, date))
}

func (s *Service) handlePatterns(w http.ResponseWriter, r *http.Request) {
	completed := s.registry.Completed(chi.URLParam(r, "userID"))

	patterns, insufficient := analytics.Patterns(completed, time.Now())
	if insufficient != nil {
		writeJSON(w, http.StatusOK, insufficient)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patterns": patterns})
}

func (s *Service) handleInsights(w http.ResponseWriter, r *http.Request) {
	days, ok := s.timeframeDays(w, r)
	if !ok {
		return
	}
	completed := s.registry.Completed(chi.URLParam(r, "userID"))
	insights := analytics.Insights(completed, days, time.Now())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timeframe_days": days,
		"insights":       insights,
	})
}
