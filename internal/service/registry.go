package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// ErrIncompleteUpdate is returned when an update for an unknown conversation
// lacks the fields needed to create a record.
var ErrIncompleteUpdate = errors.New("incomplete conversation update")

// ErrUnknownConversation is returned by TrackExisting when the id is not live.
var ErrUnknownConversation = errors.New("conversation not active")

// Transition is the registry change implied by an update.
type Transition int

const (
	TransitionStarted Transition = iota + 1
	TransitionUpdated
	TransitionEnded
)

func (t Transition) String() string {
	switch t {
	case TransitionStarted:
		return "started"
	case TransitionUpdated:
		return "updated"
	case TransitionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EventType maps a transition to the envelope type broadcast for it.
func (t Transition) EventType() model.EventType {
	switch t {
	case TransitionStarted:
		return model.EventConversationStarted
	case TransitionEnded:
		return model.EventConversationEnded
	default:
		return model.EventConversationUpdated
	}
}

// Registry is the keyed store of currently active conversations. It is not
// safe for concurrent use; ConversationTracker serializes access.
type Registry struct {
	records   map[string]*model.ConversationRecord
	order     []string
	retention int
	now       func() time.Time
}

// NewRegistry creates an empty registry. retention caps the transcript
// entries kept per record (0 keeps everything).
func NewRegistry(retention int, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		records:   make(map[string]*model.ConversationRecord),
		retention: retention,
		now:       now,
	}
}

// Apply reconciles u against the registry and returns the transition along
// with a snapshot of the resulting record. Terminal records never stay in
// the registry.
func (r *Registry) Apply(u model.ConversationUpdate) (Transition, model.ConversationRecord, error) {
	if u.ID == "" {
		return 0, model.ConversationRecord{}, fmt.Errorf("%w: missing id", ErrIncompleteUpdate)
	}
	if u.Status == nil {
		return 0, model.ConversationRecord{}, fmt.Errorf("%w: missing status for %s", ErrIncompleteUpdate, u.ID)
	}

	if existing, ok := r.records[u.ID]; ok {
		existing.Merge(u, r.retention)
		if existing.Status.IsTerminal() {
			r.remove(u.ID)
			return TransitionEnded, existing.Clone(), nil
		}
		return TransitionUpdated, existing.Clone(), nil
	}

	if u.Channel == nil {
		return 0, model.ConversationRecord{}, fmt.Errorf("%w: missing channel for new conversation %s", ErrIncompleteUpdate, u.ID)
	}

	rec := model.NewRecord(u, r.now(), r.retention)
	if rec.Status.IsTerminal() {
		// Single-shot conversation: started and ended by the same update.
		return TransitionEnded, rec, nil
	}

	r.records[rec.ID] = &rec
	r.order = append(r.order, rec.ID)
	return TransitionStarted, rec.Clone(), nil
}

// Get returns a copy of the record stored under id.
func (r *Registry) Get(id string) (model.ConversationRecord, bool) {
	rec, ok := r.records[id]
	if !ok {
		return model.ConversationRecord{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of active conversations.
func (r *Registry) Len() int {
	return len(r.records)
}

// Snapshot returns copies of all active records in insertion order.
func (r *Registry) Snapshot() []model.ConversationRecord {
	out := make([]model.ConversationRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Clone())
	}
	return out
}

func (r *Registry) remove(id string) {
	delete(r.records, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
