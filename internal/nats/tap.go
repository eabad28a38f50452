package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

// Publisher is the subset of *nats.Conn the tap uses.
type Publisher interface {
	Publish(subject string, data []byte) error
	IsClosed() bool
}

var _ Publisher = (*nats.Conn)(nil)

// TapSink republishes every broadcast envelope to <prefix>.<type>. It is
// registered with the tracker like an observer and stays subscribed for the
// life of the process. Publish failures are logged and counted but never
// reported to the broadcaster; only a closed connection detaches the tap.
type TapSink struct {
	pub    Publisher
	prefix string
	logger *logger.Logger
}

// NewTapSink creates a tap publishing under prefix.
func NewTapSink(pub Publisher, prefix string, log *logger.Logger) *TapSink {
	return &TapSink{pub: pub, prefix: prefix, logger: log}
}

// Send publishes data. Core NATS publishes are buffered by the client, so
// this does not wait on the network.
func (t *TapSink) Send(data []byte) error {
	if t.pub.IsClosed() {
		return service.ErrSinkClosed
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		t.fail("decode", "", err)
		return nil
	}

	subject := EventSubject(t.prefix, head.Type)
	if err := t.pub.Publish(subject, data); err != nil {
		t.fail("publish", subject, err)
	}
	return nil
}

func (t *TapSink) fail(reason, subject string, err error) {
	metrics.TapFailures.WithLabelValues(reason).Inc()
	t.logger.Warn("event tap publish failed",
		zap.String("reason", reason),
		zap.String("subject", subject),
		zap.Error(err),
	)
}

// IsOpen reports whether the NATS connection is still usable.
func (t *TapSink) IsOpen() bool {
	return !t.pub.IsClosed()
}

// EventSubject returns the subject an envelope of eventType is published on.
func EventSubject(prefix, eventType string) string {
	return fmt.Sprintf("%s.%s", prefix, eventType)
}
