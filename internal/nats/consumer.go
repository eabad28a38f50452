package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

const (
	// IngestStreamName is the JetStream stream holding queued updates.
	IngestStreamName = "CONVERSATION_INGEST"

	// IngestConsumerName is the durable consumer the tracker reads with.
	IngestConsumerName = "conversation-tracker"

	ingestSource = "nats"
)

// Ingestor accepts a raw update from a named source.
type Ingestor interface {
	TrackConversation(ctx context.Context, source string, u model.ConversationUpdate) (service.Transition, error)
}

// IngestConsumer feeds ConversationUpdates published on NATS into the
// tracker. Every message is acked once handled, including malformed ones,
// so a bad payload is never redelivered.
type IngestConsumer struct {
	client   *Client
	ingestor Ingestor
	subject  string
	logger   *logger.Logger

	ctx context.Context
	cc  jetstream.ConsumeContext
}

// NewIngestConsumer creates a consumer for subject.
func NewIngestConsumer(client *Client, ingestor Ingestor, subject string, log *logger.Logger) *IngestConsumer {
	return &IngestConsumer{
		client:   client,
		ingestor: ingestor,
		subject:  subject,
		logger:   log,
	}
}

// EnsureStream ensures the ingest stream exists.
func (c *IngestConsumer) EnsureStream(ctx context.Context) error {
	js := c.client.JetStream()

	if _, err := js.Stream(ctx, IngestStreamName); err == nil {
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        IngestStreamName,
		Subjects:    []string{c.subject},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Conversation updates awaiting the tracker",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Start creates the durable consumer and begins delivery. Messages are
// handled with ctx until Stop is called.
func (c *IngestConsumer) Start(ctx context.Context) error {
	if err := c.EnsureStream(ctx); err != nil {
		return err
	}

	consumer, err := c.client.JetStream().CreateOrUpdateConsumer(ctx, IngestStreamName, jetstream.ConsumerConfig{
		Durable:       IngestConsumerName,
		FilterSubject: c.subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckWait:       30 * time.Second,
		MaxAckPending: 256,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	c.ctx = ctx
	cc, err := consumer.Consume(c.handle)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.cc = cc

	c.logger.Info("NATS ingest consumer started",
		zap.String("stream", IngestStreamName),
		zap.String("subject", c.subject),
	)
	return nil
}

// Stop halts delivery.
func (c *IngestConsumer) Stop() {
	if c.cc != nil {
		c.cc.Stop()
	}
}

func (c *IngestConsumer) handle(msg jetstream.Msg) {
	result := c.process(msg.Subject(), msg.Data())
	metrics.NATSIngested.WithLabelValues(result).Inc()

	if err := msg.Ack(); err != nil {
		c.logger.Warn("failed to ack ingest message", zap.String("subject", msg.Subject()), zap.Error(err))
	}
}

// process returns the metric label for the outcome.
func (c *IngestConsumer) process(subject string, data []byte) string {
	var u model.ConversationUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		metrics.IngestFailures.WithLabelValues(ingestSource).Inc()
		c.logger.Warn("dropping undecodable ingest message", zap.String("subject", subject), zap.Error(err))
		return "malformed"
	}

	if _, err := c.ingestor.TrackConversation(c.ctx, ingestSource, u); err != nil {
		return "rejected"
	}
	return "tracked"
}
