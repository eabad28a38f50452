package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

// recordingSink captures envelopes and can be told to fail.
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (s *recordingSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection reset")
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *recordingSink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *recordingSink) envelopes(t *testing.T) []model.RawEnvelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.RawEnvelope, 0, len(s.frames))
	for _, f := range s.frames {
		var env model.RawEnvelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func (s *recordingSink) types(t *testing.T) []model.EventType {
	t.Helper()
	var out []model.EventType
	for _, env := range s.envelopes(t) {
		out = append(out, env.Type)
	}
	return out
}

func TestBroadcasterIsolatesFailingSink(t *testing.T) {
	b := NewBroadcaster(fixedClock, logger.NewNop())
	good1 := &recordingSink{}
	bad := &recordingSink{fail: true}
	good2 := &recordingSink{}
	b.Add(good1)
	b.Add(bad)
	b.Add(good2)

	b.Emit(model.EventStatsUpdated, model.AggregateStats{TotalCallsToday: 1})

	if len(good1.frames) != 1 || len(good2.frames) != 1 {
		t.Fatalf("healthy sinks missed the event: %d, %d", len(good1.frames), len(good2.frames))
	}
	if b.Len() != 2 {
		t.Fatalf("expected failing sink dropped, have %d sinks", b.Len())
	}

	b.Emit(model.EventStatsUpdated, model.AggregateStats{})
	if len(good1.frames) != 2 {
		t.Fatalf("healthy sink stopped receiving after a peer failed")
	}
}

func TestBroadcasterSkipsClosedSink(t *testing.T) {
	b := NewBroadcaster(fixedClock, logger.NewNop())
	closed := &recordingSink{closed: true}
	b.Add(closed)

	b.Emit(model.EventStatsUpdated, model.AggregateStats{})

	if len(closed.frames) != 0 {
		t.Fatalf("closed sink received a frame")
	}
	if b.Len() != 0 {
		t.Fatalf("closed sink not removed")
	}
}

func TestBroadcasterEnvelopeShape(t *testing.T) {
	b := NewBroadcaster(fixedClock, logger.NewNop())
	sink := &recordingSink{}
	b.Add(sink)

	b.Emit(model.EventConversationStarted, model.ConversationRecord{ID: "A", Channel: model.ChannelPhone})

	envs := sink.envelopes(t)
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	if envs[0].Type != model.EventConversationStarted {
		t.Fatalf("unexpected type %q", envs[0].Type)
	}
	if !envs[0].Timestamp.Equal(t0) {
		t.Fatalf("expected timestamp %v, got %v", t0, envs[0].Timestamp)
	}
	rec, err := envs[0].Record()
	if err != nil || rec.ID != "A" {
		t.Fatalf("unexpected payload %+v (%v)", rec, err)
	}
}

func TestBroadcasterReplayOrder(t *testing.T) {
	b := NewBroadcaster(fixedClock, logger.NewNop())
	sink := &recordingSink{}

	err := b.Replay(sink, model.AggregateStats{ActiveConversationCount: 2}, []model.ConversationRecord{
		{ID: "first"}, {ID: "second"},
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	envs := sink.envelopes(t)
	if len(envs) != 3 {
		t.Fatalf("expected 3 envelopes, got %d", len(envs))
	}
	if envs[0].Type != model.EventStatsUpdated {
		t.Fatalf("stats must come first, got %q", envs[0].Type)
	}
	for i, want := range []string{"first", "second"} {
		env := envs[i+1]
		if env.Type != model.EventConversationUpdated {
			t.Fatalf("expected conversation-updated, got %q", env.Type)
		}
		if rec, _ := env.Record(); rec.ID != want {
			t.Fatalf("expected %s at position %d, got %s", want, i+1, rec.ID)
		}
	}
}

func TestBroadcasterReplayFailure(t *testing.T) {
	b := NewBroadcaster(fixedClock, logger.NewNop())
	if err := b.Replay(&recordingSink{fail: true}, model.AggregateStats{}, nil); err == nil {
		t.Fatalf("expected replay error")
	}
}
