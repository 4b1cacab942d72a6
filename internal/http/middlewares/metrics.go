package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// WithMetrics instrumenta requests con métricas Prometheus (contadores,
// latencia, inflight). La etiqueta route es el patrón de chi, no el path
// crudo, para no explotar la cardinalidad con app ids y códigos.
func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.ToUpper(r.Method)
			m.HTTPInflight.WithLabelValues(method).Inc()
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				m.HTTPInflight.WithLabelValues(method).Dec()
				route := RoutePattern(r)
				m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
				m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// RoutePattern devuelve el patrón de chi que atendió r, o "unmatched".
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
