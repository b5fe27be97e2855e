package worker

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/flowstate/internal/tracker"
)

// serviceMetrics holds the worker's OpenTelemetry counters. Without a meter
// provider installed they are no-ops, so recording is always safe.
type serviceMetrics struct {
	requests          metric.Int64Counter
	sessionsStarted   metric.Int64Counter
	sessionsCompleted metric.Int64Counter
	sessionsCancelled metric.Int64Counter
}

func newServiceMetrics() *serviceMetrics {
	meter := otel.Meter("github.com/thebtf/flowstate/internal/worker")
	m := &serviceMetrics{}

	var err error
	if m.requests, err = meter.Int64Counter("flowstate.requests",
		metric.WithDescription("HTTP requests handled")); err != nil {
		log.Warn().Err(err).Msg("Failed to create request counter")
	}
	if m.sessionsStarted, err = meter.Int64Counter("flowstate.sessions.started",
		metric.WithDescription("Sessions started")); err != nil {
		log.Warn().Err(err).Msg("Failed to create sessions started counter")
	}
	if m.sessionsCompleted, err = meter.Int64Counter("flowstate.sessions.completed",
		metric.WithDescription("Sessions completed")); err != nil {
		log.Warn().Err(err).Msg("Failed to create sessions completed counter")
	}
	if m.sessionsCancelled, err = meter.Int64Counter("flowstate.sessions.cancelled",
		metric.WithDescription("Sessions cancelled")); err != nil {
		log.Warn().Err(err).Msg("Failed to create sessions cancelled counter")
	}
	return m
}

func (m *serviceMetrics) recordRequest(ctx context.Context, method string, status int) {
	if m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", status),
	))
}

func (m *serviceMetrics) recordTransition(ctx context.Context, event tracker.TransitionEvent) {
	var counter metric.Int64Counter
	switch event {
	case tracker.EventStarted:
		counter = m.sessionsStarted
	case tracker.EventCompleted:
		counter = m.sessionsCompleted
	case tracker.EventCancelled:
		counter = m.sessionsCancelled
	default:
		return
	}
	if counter != nil {
		counter.Add(ctx, 1)
	}
}
