// Package router registra las rutas públicas del broker sobre chi.
package router

import (
	"net/http"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	authctrl "github.com/dropDatabas3/hellobroker/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/hellobroker/internal/http/controllers/health"
	mw "github.com/dropDatabas3/hellobroker/internal/http/middlewares"
	"github.com/dropDatabas3/hellobroker/internal/metrics"
	"github.com/dropDatabas3/hellobroker/internal/rate"
	"github.com/go-chi/chi/v5"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Auth   *authctrl.Controllers
	Health *healthctrl.Controllers

	// Providers habilitados; solo se registran sus rutas.
	Providers []repository.Provider

	// Opcionales
	// ClientIP nil = la IP es siempre RemoteAddr.
	ClientIP    *mw.IPResolver
	Metrics     *metrics.Metrics
	RateLimiter rate.Limiter
	CORSOrigins []string
}

// New arma el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(d.ClientIP),
		mw.WithMetrics(d.Metrics),
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
	)
	if len(d.CORSOrigins) > 0 {
		r.Use(mw.WithCORS(d.CORSOrigins))
	}

	registerHealthRoutes(r, d)
	registerAuthRoutes(r, d)

	return r
}

func registerHealthRoutes(r chi.Router, d Deps) {
	if d.Health != nil {
		r.Get("/healthz", d.Health.Health.Healthz)
		r.Get("/readyz", d.Health.Health.Readyz)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
}

// registerAuthRoutes registra login, callbacks, canje, refresh y logout.
//
//	GET  /auth/{app}/{provider}/     ?redirect_uri=
//	GET  /auth/{provider}/redirect   callback del proveedor
//	POST /auth/{app}/token           {code}
//	POST /auth/{app}/token/refresh   cookie refresh
//	POST /auth/{app}/logout          cookie refresh
func registerAuthRoutes(r chi.Router, d Deps) {
	c := d.Auth

	r.Route("/auth", func(r chi.Router) {
		for _, p := range d.Providers {
			name := string(p)
			begin := c.Login.Begin(p)

			r.Group(func(r chi.Router) {
				r.Use(rateLimit(d, "login"))
				r.Get("/{app}/"+name, begin)
				r.Get("/{app}/"+name+"/", begin)
			})
			r.Get("/"+name+"/redirect", c.Login.Callback(p))
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.WithNoStore(), rateLimit(d, "token"))
			r.Post("/{app}/token", c.Token.Exchange)
			r.Post("/{app}/token/refresh", c.Session.Refresh)
			r.Post("/{app}/logout", c.Session.Logout)
		})
	})
}

// rateLimit limita por IP dentro de scope. Sin limiter es no-op.
func rateLimit(d Deps, scope string) mw.Middleware {
	return mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: d.RateLimiter,
		KeyFunc: mw.IPOnlyRateKey,
		Scope:   scope,
		OnReject: func(*http.Request) {
			d.Metrics.ObserveRateLimited(scope)
		},
	})
}
