package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs   []published
	closed bool
	err    error
	// failures makes the next n publishes fail.
	failures int
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: outbound buffer limit exceeded")
	}
	p.msgs = append(p.msgs, published{subject, data})
	return nil
}

func (p *fakePublisher) IsClosed() bool { return p.closed }

func TestTapSinkSubjects(t *testing.T) {
	pub := &fakePublisher{}
	tracker := service.NewConversationTracker(service.TrackerOptions{}, logger.NewNop())
	if err := tracker.Subscribe(NewTapSink(pub, "tracker.events", logger.NewNop())); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	tracker.Track(context.Background(), model.ConversationUpdate{
		ID:      "a",
		Channel: model.Ptr(model.ChannelPhone),
		Status:  model.Ptr(model.StatusRinging),
	})

	want := []string{
		"tracker.events.stats-updated",
		"tracker.events.conversation-started",
		"tracker.events.stats-updated",
	}
	if len(pub.msgs) != len(want) {
		t.Fatalf("expected %d publishes, got %d", len(want), len(pub.msgs))
	}
	for i, subject := range want {
		if pub.msgs[i].subject != subject {
			t.Errorf("publish %d on %q, want %q", i, pub.msgs[i].subject, subject)
		}
	}
}

func TestTapSinkClosedConnection(t *testing.T) {
	pub := &fakePublisher{closed: true}
	sink := NewTapSink(pub, "p", logger.NewNop())

	if sink.IsOpen() {
		t.Fatalf("expected tap closed")
	}
	if err := sink.Send([]byte(`{"type":"stats-updated"}`)); !errors.Is(err, service.ErrSinkClosed) {
		t.Fatalf("expected ErrSinkClosed, got %v", err)
	}
}

func TestTapSinkSwallowsPublishErrors(t *testing.T) {
	sink := NewTapSink(&fakePublisher{err: errors.New("slow consumer")}, "p", logger.NewNop())
	if err := sink.Send([]byte(`{"type":"stats-updated"}`)); err != nil {
		t.Fatalf("publish error leaked to broadcaster: %v", err)
	}
	if err := NewTapSink(&fakePublisher{}, "p", logger.NewNop()).Send([]byte(`not json`)); err != nil {
		t.Fatalf("decode error leaked to broadcaster: %v", err)
	}
}

func TestTapSinkSurvivesTransientPublishFailure(t *testing.T) {
	pub := &fakePublisher{}
	tracker := service.NewConversationTracker(service.TrackerOptions{}, logger.NewNop())
	if err := tracker.Subscribe(NewTapSink(pub, "tracker.events", logger.NewNop())); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx := context.Background()

	pub.failures = 1
	if _, err := tracker.Track(ctx, model.ConversationUpdate{
		ID:      "a",
		Channel: model.Ptr(model.ChannelPhone),
		Status:  model.Ptr(model.StatusRinging),
	}); err != nil {
		t.Fatalf("track ringing: %v", err)
	}
	if tracker.ObserverCount() != 1 {
		t.Fatalf("tap detached after one failed publish")
	}

	before := len(pub.msgs)
	if _, err := tracker.Track(ctx, model.ConversationUpdate{ID: "a", Status: model.Ptr(model.StatusCompleted)}); err != nil {
		t.Fatalf("track completed: %v", err)
	}
	got := pub.msgs[before:]
	if len(got) != 2 || got[0].subject != "tracker.events.conversation-ended" {
		t.Fatalf("expected ended and stats published after recovery, got %d messages", len(got))
	}
}
