// Package client is the observer side of the tracker: a local mirror of the
// active conversations and stats, kept current from the /ws event stream.
package client

import (
	"fmt"
	"sync"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// DefaultRecentLimit is how many envelopes the activity feed keeps.
const DefaultRecentLimit = 50

// State mirrors the server's registry and stats. It is safe for concurrent
// use.
type State struct {
	mu            sync.RWMutex
	conversations map[string]model.ConversationRecord
	order         []string
	stats         model.AggregateStats
	recent        []model.RawEnvelope
	recentLimit   int
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		conversations: make(map[string]model.ConversationRecord),
		recentLimit:   DefaultRecentLimit,
	}
}

// Reset clears everything. Called before the server replays on reconnect.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]model.ConversationRecord)
	s.order = nil
	s.stats = model.AggregateStats{}
	s.recent = nil
}

// Apply folds one envelope into the state.
func (s *State) Apply(env model.RawEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch env.Type {
	case model.EventConversationStarted, model.EventConversationUpdated:
		rec, err := env.Record()
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", env.Type, err)
		}
		if _, ok := s.conversations[rec.ID]; !ok {
			s.order = append(s.order, rec.ID)
		}
		s.conversations[rec.ID] = rec

	case model.EventConversationEnded:
		rec, err := env.Record()
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", env.Type, err)
		}
		s.remove(rec.ID)

	case model.EventStatsUpdated:
		stats, err := env.Stats()
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", env.Type, err)
		}
		s.stats = stats

	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}

	s.recent = append(s.recent, env)
	if len(s.recent) > s.recentLimit {
		s.recent = s.recent[len(s.recent)-s.recentLimit:]
	}
	return nil
}

// Conversations returns the live records in arrival order.
func (s *State) Conversations() []model.ConversationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ConversationRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.conversations[id].Clone())
	}
	return out
}

// Stats returns the last received stats.
func (s *State) Stats() model.AggregateStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats
}

// Recent returns the activity feed, oldest first.
func (s *State) Recent() []model.RawEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RawEnvelope, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *State) remove(id string) {
	if _, ok := s.conversations[id]; !ok {
		return
	}
	delete(s.conversations, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
