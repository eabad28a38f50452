package handler

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

var errSendBufferFull = errors.New("observer send buffer full")

// ObserverHub is the part of the tracker the connection manager needs.
type ObserverHub interface {
	Subscribe(sink service.Sink) error
	Unsubscribe(sink service.Sink)
}

// ObserverOptions tunes observer connections.
type ObserverOptions struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string
}

// ObserverHandler accepts dashboard WebSocket connections and registers each
// one as a broadcast sink.
type ObserverHandler struct {
	base   context.Context
	hub    ObserverHub
	opts   ObserverOptions
	logger *logger.Logger
}

// NewObserverHandler creates the connection manager. Cancelling base closes
// every open observer connection.
func NewObserverHandler(base context.Context, hub ObserverHub, opts ObserverOptions, log *logger.Logger) *ObserverHandler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &ObserverHandler{
		base:   base,
		hub:    hub,
		opts:   opts,
		logger: log,
	}
}

// ServeHTTP handles GET /ws
func (h *ObserverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	obs := &wsObserver{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, h.opts.SendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	obs.open.Store(true)
	log := h.logger.With(zap.String("observer_id", obs.id))

	// The pump must run before Subscribe so replay frames drain while the
	// snapshot is queued.
	go obs.writePump(h.opts.WriteTimeout, h.opts.PingInterval)

	if err := h.hub.Subscribe(obs); err != nil {
		log.Warn("observer replay failed", zap.Error(err))
		obs.close()
		conn.Close(websocket.StatusInternalError, "replay failed")
		return
	}
	defer h.hub.Unsubscribe(obs)

	metrics.IncrementObservers()
	defer metrics.DecrementObservers()
	log.Info("observer connected", zap.String("remote_addr", r.RemoteAddr))

	obs.readPump()
	obs.close()

	log.Info("observer disconnected")
}

// wsObserver is a Sink backed by one WebSocket connection. Send only queues;
// writePump owns all writes to conn.
type wsObserver struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	open   atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func (o *wsObserver) Send(data []byte) error {
	if !o.open.Load() {
		return service.ErrSinkClosed
	}
	select {
	case o.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

func (o *wsObserver) IsOpen() bool {
	return o.open.Load()
}

func (o *wsObserver) close() {
	o.open.Store(false)
	o.cancel()
}

// readPump discards client frames. It returns when the peer closes or the
// connection fails, which is how a departed observer is noticed.
func (o *wsObserver) readPump() {
	for {
		if _, _, err := o.conn.Read(o.ctx); err != nil {
			return
		}
	}
}

func (o *wsObserver) writePump(writeTimeout, pingInterval time.Duration) {
	defer func() {
		o.close()
		_ = o.conn.Close(websocket.StatusNormalClosure, "")
	}()

	var ping <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-o.ctx.Done():
			return
		case data := <-o.send:
			ctx, cancel := context.WithTimeout(o.ctx, writeTimeout)
			err := o.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ping:
			ctx, cancel := context.WithTimeout(o.ctx, writeTimeout)
			err := o.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
