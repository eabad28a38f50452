// Package ingest turns provider payloads into ConversationUpdates and feeds
// them to the conversation tracker.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

var (
	// ErrMalformedPayload marks an update that failed normalization. It is
	// dropped without touching the registry.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrIgnoredEvent marks a provider event that carries no conversation
	// change worth tracking.
	ErrIgnoredEvent = errors.New("event not tracked")
)

// Tracker is the mutation entry point of the core.
type Tracker interface {
	Track(ctx context.Context, u model.ConversationUpdate) (service.Transition, error)
	TrackExisting(ctx context.Context, u model.ConversationUpdate) (service.Transition, error)
}

// Normalizer validates updates from every channel and drives the tracker.
type Normalizer struct {
	tracker  Tracker
	validate *validator.Validate
	now      func() time.Time
	logger   *logger.Logger
}

// NewNormalizer creates a normalizer in front of tracker.
func NewNormalizer(tracker Tracker, now func() time.Time, log *logger.Logger) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		tracker:  tracker,
		validate: validator.New(),
		now:      now,
		logger:   log,
	}
}

// Normalize checks u and fills in defaults. The result always has an id, a
// status and a start time.
func (n *Normalizer) Normalize(u model.ConversationUpdate) (model.ConversationUpdate, error) {
	u.ID = strings.TrimSpace(u.ID)

	if err := n.validate.Struct(u); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return u, fmt.Errorf("%w: field %s failed %q", ErrMalformedPayload, verrs[0].Namespace(), verrs[0].Tag())
		}
		return u, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	now := n.now()
	if u.StartedAt == nil || u.StartedAt.IsZero() {
		u.StartedAt = &now
	}
	if len(u.Transcript) > 0 {
		entries := make([]model.TranscriptEntry, len(u.Transcript))
		for i, entry := range u.Transcript {
			if entry.Timestamp.IsZero() {
				entry.Timestamp = now
			}
			entries[i] = entry
		}
		u.Transcript = entries
	}

	return u, nil
}

// TrackConversation normalizes u and hands it to the tracker. Failures are
// logged and counted against source; they never reach observers.
func (n *Normalizer) TrackConversation(ctx context.Context, source string, u model.ConversationUpdate) (service.Transition, error) {
	return n.track(ctx, source, u, n.tracker.Track)
}

// TrackExistingConversation is TrackConversation for updates that may only
// touch a live conversation. An unknown id yields service.ErrUnknownConversation
// and is not counted as a malformed payload.
func (n *Normalizer) TrackExistingConversation(ctx context.Context, source string, u model.ConversationUpdate) (service.Transition, error) {
	return n.track(ctx, source, u, n.tracker.TrackExisting)
}

type trackFunc func(context.Context, model.ConversationUpdate) (service.Transition, error)

func (n *Normalizer) track(ctx context.Context, source string, u model.ConversationUpdate, apply trackFunc) (service.Transition, error) {
	normalized, err := n.Normalize(u)
	if err != nil {
		n.reject(source, u.ID, err)
		return 0, err
	}

	kind, err := apply(ctx, normalized)
	if errors.Is(err, service.ErrUnknownConversation) {
		return 0, err
	}
	if err != nil {
		if errors.Is(err, service.ErrIncompleteUpdate) {
			err = fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		n.reject(source, u.ID, err)
		return 0, err
	}

	return kind, nil
}

func (n *Normalizer) reject(source, id string, err error) {
	metrics.IngestFailures.WithLabelValues(source).Inc()
	n.logger.ForConversation(id).Warn("dropping conversation update",
		zap.String("source", source),
		zap.Error(err),
	)
}
