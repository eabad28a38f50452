package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

type fakeIngestor struct {
	got []model.ConversationUpdate
	err error
}

func (f *fakeIngestor) TrackConversation(_ context.Context, source string, u model.ConversationUpdate) (service.Transition, error) {
	if source != ingestSource {
		return 0, errors.New("unexpected source " + source)
	}
	f.got = append(f.got, u)
	if f.err != nil {
		return 0, f.err
	}
	return service.TransitionStarted, nil
}

func newTestConsumer(ing Ingestor) *IngestConsumer {
	c := NewIngestConsumer(nil, ing, "tracker.ingest.>", logger.NewNop())
	c.ctx = context.Background()
	return c
}

func TestIngestConsumerProcess(t *testing.T) {
	ing := &fakeIngestor{}
	c := newTestConsumer(ing)

	result := c.process("tracker.ingest.crm", []byte(`{"id":"crm-1","channel":"phone","status":"ringing","counterpartyId":"+1555"}`))
	if result != "tracked" {
		t.Fatalf("expected tracked, got %s", result)
	}
	if len(ing.got) != 1 {
		t.Fatalf("expected 1 update, got %d", len(ing.got))
	}
	u := ing.got[0]
	if u.ID != "crm-1" || *u.Channel != model.ChannelPhone || *u.CounterpartyID != "+1555" {
		t.Fatalf("unexpected update %+v", u)
	}
	if u.Direction != nil {
		t.Fatalf("absent field decoded as present")
	}
}

func TestIngestConsumerMalformed(t *testing.T) {
	ing := &fakeIngestor{}
	c := newTestConsumer(ing)

	if result := c.process("tracker.ingest.crm", []byte(`{"id":`)); result != "malformed" {
		t.Fatalf("expected malformed, got %s", result)
	}
	if len(ing.got) != 0 {
		t.Fatalf("malformed payload reached the tracker")
	}
}

func TestIngestConsumerRejected(t *testing.T) {
	c := newTestConsumer(&fakeIngestor{err: errors.New("incomplete")})

	if result := c.process("tracker.ingest.crm", []byte(`{"id":"x"}`)); result != "rejected" {
		t.Fatalf("expected rejected, got %s", result)
	}
}
