package middlewares

import (
	"math"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/hellobroker/internal/http/errors"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/dropDatabas3/hellobroker/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey usa la IP resuelta por WithClientIP (o el peer directo).
func IPOnlyRateKey(r *http.Request) string {
	return clientIP(r)
}

// RateLimitConfig configura el comportamiento del middleware de rate limiting.
type RateLimitConfig struct {
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
	// Scope separa contadores entre grupos de rutas ("login", "token").
	Scope string
	// OnReject se llama al rechazar (métricas). Opcional.
	OnReject func(r *http.Request)
}

// WithRateLimit crea un middleware de rate limiting. Sin Limiter es no-op.
// Si el limiter falla el request pasa (fail-open) y se loguea.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPOnlyRateKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := cfg.Limiter.Allow(r.Context(), cfg.Scope, cfg.KeyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limit error",
					logger.Component("rate"),
					logger.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !res.Reset.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
			}

			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				}
				if cfg.OnReject != nil {
					cfg.OnReject(r)
				}
				errors.WriteError(w, errors.ErrRateLimited)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
