package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

// ErrSinkClosed is returned by a Sink whose connection has gone away.
var ErrSinkClosed = errors.New("sink closed")

// Sink is one destination for broadcast envelopes. Send must not block on
// network I/O; implementations queue and return.
type Sink interface {
	Send(data []byte) error
	IsOpen() bool
}

// Broadcaster fans envelopes out to a set of sinks. It is not safe for
// concurrent use; ConversationTracker serializes access.
type Broadcaster struct {
	sinks  map[Sink]struct{}
	now    func() time.Time
	logger *logger.Logger
}

// NewBroadcaster creates a broadcaster with no sinks.
func NewBroadcaster(now func() time.Time, log *logger.Logger) *Broadcaster {
	if now == nil {
		now = time.Now
	}
	return &Broadcaster{
		sinks:  make(map[Sink]struct{}),
		now:    now,
		logger: log,
	}
}

// Emit delivers one envelope to every open sink. A sink that is closed or
// whose Send fails is removed; the others still receive the event.
func (b *Broadcaster) Emit(eventType model.EventType, payload any) {
	data, err := b.encode(eventType, payload)
	if err != nil {
		b.logger.Error("failed to encode envelope", zap.String("type", string(eventType)), zap.Error(err))
		return
	}
	metrics.EventsEmitted.WithLabelValues(string(eventType)).Inc()

	for sink := range b.sinks {
		if !sink.IsOpen() {
			b.drop(sink, "closed")
			continue
		}
		if err := sink.Send(data); err != nil {
			b.logger.Debug("dropping observer after failed send", zap.Error(err))
			b.drop(sink, "send_failed")
		}
	}
}

// Replay sends the current state to a single sink: stats first, then one
// conversation-updated envelope per record in the given order.
func (b *Broadcaster) Replay(sink Sink, stats model.AggregateStats, records []model.ConversationRecord) error {
	data, err := b.encode(model.EventStatsUpdated, stats)
	if err != nil {
		return err
	}
	if err := sink.Send(data); err != nil {
		return fmt.Errorf("failed to replay stats: %w", err)
	}

	for _, rec := range records {
		data, err := b.encode(model.EventConversationUpdated, rec)
		if err != nil {
			return err
		}
		if err := sink.Send(data); err != nil {
			return fmt.Errorf("failed to replay conversation %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Add registers a sink for future broadcasts.
func (b *Broadcaster) Add(sink Sink) {
	b.sinks[sink] = struct{}{}
}

// Remove unregisters a sink. Removing an unknown sink is a no-op.
func (b *Broadcaster) Remove(sink Sink) bool {
	if _, ok := b.sinks[sink]; !ok {
		return false
	}
	delete(b.sinks, sink)
	return true
}

// Len returns the number of registered sinks.
func (b *Broadcaster) Len() int {
	return len(b.sinks)
}

func (b *Broadcaster) drop(sink Sink, reason string) {
	delete(b.sinks, sink)
	metrics.ObserversDropped.WithLabelValues(reason).Inc()
}

func (b *Broadcaster) encode(eventType model.EventType, payload any) ([]byte, error) {
	return json.Marshal(model.EventEnvelope{
		Type:      eventType,
		Data:      payload,
		Timestamp: b.now().UTC(),
	})
}
