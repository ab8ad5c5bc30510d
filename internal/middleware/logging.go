// internal/middleware/logging.go
//
// Request logging and latency metrics.
//
// Context
//   RequestLogger runs right after chi's RequestID.  It derives a child
//   logger carrying the request id, stores it in the context so deeper
//   layers (table gateway, handlers) log with the same id, and writes one
//   access line when the response is done.
//
//   The histogram label is the chi route pattern, not the raw path, so
//   /admin/inscricoes/{id} stays one series.
//
//------------------------------------------------------------------------------

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/metrics"
)

// RequestLogger returns the access-log middleware built on base.
func RequestLogger(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With("request_id", chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)
			metrics.HTTPDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(status/100)+"xx").
				Observe(elapsed.Seconds())

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
			}
			switch {
			case status >= 500:
				log.Errorw("request", fields...)
			case status >= 400:
				log.Warnw("request", fields...)
			default:
				log.Infow("request", fields...)
			}
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
