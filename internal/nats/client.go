// Package nats provides the optional JetStream ingest consumer and the event
// tap that mirrors broadcast envelopes onto NATS subjects.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

const (
	clientName   = "conversation-tracker"
	drainTimeout = 5 * time.Second
)

// Config describes how to reach the NATS server. TLS is enabled when CAFile
// is set; a client certificate is presented when CertFile and KeyFile are.
type Config struct {
	URL      string
	Token    string
	CAFile   string
	CertFile string
	KeyFile  string
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.New("nats url is required")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("nats client certificate needs both cert and key files")
	}
	return nil
}

// Client owns the tracker's NATS connection and JetStream handle.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect dials NATS. The context deadline, if any, bounds the dial.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := connectOptions(cfg, log)
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	log.Info("connected to NATS",
		zap.String("url", nc.ConnectedUrl()),
		zap.Bool("tls", cfg.CAFile != ""),
	)
	return &Client{conn: nc, js: js, logger: log}, nil
}

func connectOptions(cfg Config, log *logger.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			log.Error("NATS async error", fields...)
		}),
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	if cfg.CAFile != "" {
		opts = append(opts, nats.RootCAs(cfg.CAFile))
	}
	if cfg.CertFile != "" {
		opts = append(opts, nats.ClientCert(cfg.CertFile, cfg.KeyFile))
	}
	return opts
}

// JetStream returns the JetStream handle.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Conn returns the underlying connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains subscriptions and pending publishes, then closes. It falls
// back to a hard close if draining does not finish in time.
func (c *Client) Close() {
	if c.conn == nil || c.conn.IsClosed() {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", zap.Error(err))
		c.conn.Close()
		return
	}

	deadline := time.Now().Add(drainTimeout)
	for !c.conn.IsClosed() {
		if time.Now().After(deadline) {
			c.logger.Warn("NATS drain timed out")
			c.conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
