package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

const correlationHeader = "X-Correlation-ID"

type correlationKey struct{}

// Logging tags each request with a correlation id, logs its outcome and
// records request metrics. Health probes log at debug level.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(correlationHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(correlationHeader, id)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(context.WithValue(r.Context(), correlationKey{}, id))
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// Hijacked for a websocket upgrade, or nothing written.
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)

			if ce := log.Check(levelFor(route, status), "request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("route", route),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", elapsed),
					zap.String("correlation_id", id),
					zap.String("remote_addr", r.RemoteAddr),
				)
			}

			metrics.RecordRequest(r.Method, route, strconv.Itoa(status), elapsed.Seconds())
		})
	}
}

func levelFor(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case route == "/api/health":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetCorrelationID returns the id Logging attached to ctx.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// routePattern uses the chi route template so metric labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
