// Package service provides the conversation tracking core and the assistant
// reply logic used by the webhook and chat handlers.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/tracing"
)

// TrackerOptions configures a ConversationTracker.
type TrackerOptions struct {
	// TranscriptRetention caps transcript entries kept per live record.
	TranscriptRetention int
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// ConversationTracker owns the registry, the stats and the broadcaster. Every
// mutation runs under one mutex, so an update's registry change, stats
// recomputation and fan-out finish before the next update starts.
type ConversationTracker struct {
	mu          sync.Mutex
	registry    *Registry
	stats       *StatsAggregator
	broadcaster *Broadcaster
	logger      *logger.Logger
	tracer      trace.Tracer
}

// NewConversationTracker creates an independent tracker instance.
func NewConversationTracker(opts TrackerOptions, log *logger.Logger) *ConversationTracker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ConversationTracker{
		registry:    NewRegistry(opts.TranscriptRetention, now),
		stats:       NewStatsAggregator(),
		broadcaster: NewBroadcaster(now, log.Named("broadcaster")),
		logger:      log,
		tracer:      tracing.Tracer("conversation-tracker"),
	}
}

// Track is the single mutation entry point. It applies u to the registry,
// updates stats and broadcasts the transition followed by the new stats.
func (t *ConversationTracker) Track(ctx context.Context, u model.ConversationUpdate) (Transition, error) {
	return t.track(ctx, u, false)
}

// TrackExisting is Track for an id that must already be live. The lookup and
// the apply happen under the same lock, so two concurrent terminal updates
// end the conversation once and the second gets ErrUnknownConversation.
func (t *ConversationTracker) TrackExisting(ctx context.Context, u model.ConversationUpdate) (Transition, error) {
	return t.track(ctx, u, true)
}

func (t *ConversationTracker) track(ctx context.Context, u model.ConversationUpdate, mustExist bool) (Transition, error) {
	_, span := t.tracer.Start(ctx, "tracker.Track", trace.WithAttributes(
		attribute.String("conversation.id", u.ID),
	))
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	if mustExist {
		if _, ok := t.registry.Get(u.ID); !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownConversation, u.ID)
		}
	}

	kind, rec, err := t.registry.Apply(u)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		return 0, fmt.Errorf("failed to apply update: %w", err)
	}

	stats := t.stats.OnTransition(kind, rec, t.registry.Len())

	t.broadcaster.Emit(kind.EventType(), rec)
	t.broadcaster.Emit(model.EventStatsUpdated, stats)

	metrics.TransitionsTotal.WithLabelValues(kind.String(), string(rec.Channel)).Inc()
	metrics.ActiveConversations.Set(float64(stats.ActiveConversationCount))

	span.SetAttributes(
		attribute.String("conversation.transition", kind.String()),
		attribute.String("conversation.status", string(rec.Status)),
	)

	t.logger.ForConversation(rec.ID).Debug("conversation tracked",
		zap.String("channel", string(rec.Channel)),
		zap.String("status", string(rec.Status)),
		zap.Stringer("transition", kind),
		zap.Int("active", stats.ActiveConversationCount),
	)

	return kind, nil
}

// ResetDaily zeroes the daily counters and broadcasts the new stats.
func (t *ConversationTracker) ResetDaily() model.AggregateStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := t.stats.ResetDaily(t.registry.Len())
	t.broadcaster.Emit(model.EventStatsUpdated, stats)

	t.logger.Info("daily stats reset", zap.Int("active", stats.ActiveConversationCount))
	return stats
}

// Subscribe registers sink and replays the current state to it. Replay and
// registration happen atomically with respect to Track, so the sink sees no
// gap and no duplicate between snapshot and live events.
func (t *ConversationTracker) Subscribe(sink Sink) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.broadcaster.Replay(sink, t.stats.Current(), t.registry.Snapshot()); err != nil {
		return err
	}
	t.broadcaster.Add(sink)
	return nil
}

// Unsubscribe removes sink. It is safe to call for a sink the broadcaster
// already dropped.
func (t *ConversationTracker) Unsubscribe(sink Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.broadcaster.Remove(sink)
}

// ActiveConversations returns copies of all live records in insertion order.
func (t *ConversationTracker) ActiveConversations() []model.ConversationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.registry.Snapshot()
}

// Conversation returns a copy of one live record.
func (t *ConversationTracker) Conversation(id string) (model.ConversationRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.registry.Get(id)
}

// Stats returns the current aggregate stats.
func (t *ConversationTracker) Stats() model.AggregateStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stats.Current()
}

// ObserverCount returns the number of registered sinks.
func (t *ConversationTracker) ObserverCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.broadcaster.Len()
}
