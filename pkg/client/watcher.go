package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

// DefaultRetryDelay is the fixed pause between reconnect attempts.
const DefaultRetryDelay = 3 * time.Second

// Handler is called after each envelope has been applied to the state.
type Handler func(env model.RawEnvelope, state *State)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// URL is the observer endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// RetryDelay overrides DefaultRetryDelay.
	RetryDelay time.Duration
	// OnEvent is optional.
	OnEvent Handler
	// OnConnect is called after each successful dial. Optional.
	OnConnect func()
}

// Watcher keeps a State in sync with a tracker server, reconnecting
// forever until its context is cancelled.
type Watcher struct {
	opts   WatcherOptions
	state  *State
	logger *logger.Logger
}

// NewWatcher creates a watcher with an empty state.
func NewWatcher(opts WatcherOptions, log *logger.Logger) *Watcher {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Watcher{
		opts:   opts,
		state:  NewState(),
		logger: log,
	}
}

// State returns the mirrored state.
func (w *Watcher) State() *State {
	return w.state
}

// Run connects and streams until ctx is cancelled. It returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(w.opts.RetryDelay), ctx)

	err := backoff.RetryNotify(func() error {
		err := w.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errors.New("connection closed")
		}
		return err
	}, b, func(err error, next time.Duration) {
		w.logger.Warn("observer connection lost, retrying",
			zap.String("url", w.opts.URL),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	})

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// session runs one connection from dial to close.
func (w *Watcher) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, w.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", w.opts.URL, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	w.state.Reset()
	w.logger.Info("observer connected", zap.String("url", w.opts.URL))
	if w.opts.OnConnect != nil {
		w.opts.OnConnect()
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var env model.RawEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.logger.Warn("skipping undecodable frame", zap.Error(err))
			continue
		}
		if err := w.state.Apply(env); err != nil {
			w.logger.Warn("skipping envelope", zap.String("type", string(env.Type)), zap.Error(err))
			continue
		}
		if w.opts.OnEvent != nil {
			w.opts.OnEvent(env, w.state)
		}
	}
}
