// Package app arma el grafo de dependencias del broker: stores efímeros,
// proveedores, minter, services, controllers y router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	authctrl "github.com/dropDatabas3/hellobroker/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/hellobroker/internal/http/controllers/health"
	"github.com/dropDatabas3/hellobroker/internal/http/helpers"
	mw "github.com/dropDatabas3/hellobroker/internal/http/middlewares"
	"github.com/dropDatabas3/hellobroker/internal/http/router"
	authsvc "github.com/dropDatabas3/hellobroker/internal/http/services/auth"
	healthsvc "github.com/dropDatabas3/hellobroker/internal/http/services/health"
	"github.com/dropDatabas3/hellobroker/internal/identity"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/metrics"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	"github.com/dropDatabas3/hellobroker/internal/providers/discord"
	"github.com/dropDatabas3/hellobroker/internal/providers/steam"
	"github.com/dropDatabas3/hellobroker/internal/rate"
	"github.com/dropDatabas3/hellobroker/internal/redirect"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
)

// Deps holds raw dependencies required to build the app.
type Deps struct {
	Config *config.Config
	Apps   repository.AppRepository
	Users  repository.UserRepository
	Cache  cache.Client
	Box    *secretbox.Box

	// Opcionales
	Metrics     *metrics.Metrics
	RateLimiter rate.Limiter
	// DBCheck nil = store en memoria (readyz lo reporta disabled).
	DBCheck func(ctx context.Context) error
	// HTTPClient para hablar con los proveedores; nil = uno con el timeout de config.
	HTTPClient *http.Client
}

// App represents the wired application.
type App struct {
	Handler   http.Handler
	Keys      *jwtx.KeySource
	Providers *providers.Registry
}

// New creates and wires the application.
func New(d Deps) (*App, error) {
	if d.Config == nil || d.Apps == nil || d.Users == nil || d.Cache == nil || d.Box == nil {
		return nil, errors.New("app: missing dependencies")
	}
	cfg := d.Config

	httpClient := d.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	}

	// 1. Stores efímeros
	pending := flowstate.NewPendingStore(d.Cache, cfg.Flow.StateTTL)
	codes := flowstate.NewCodeStore(d.Cache, cfg.Flow.CodeTTL)
	sessions := flowstate.NewSessionStore(d.Cache, cfg.JWT.RefreshTTL)

	// 2. Proveedores habilitados
	registry := buildProviders(cfg, pending, httpClient)
	if len(registry.Names()) == 0 {
		return nil, errors.New("app: no provider enabled")
	}

	// 3. Claves y minter
	keys := jwtx.NewKeySource(d.Apps, d.Box, cfg.JWT.KeyCacheTTL)
	minter := jwtx.NewMinter(keys, jwtx.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})

	// 4. Services
	authServices := authsvc.NewServices(authsvc.Deps{
		Providers: registry,
		Policy:    redirect.NewPolicy(d.Apps),
		Resolver:  identity.NewResolver(d.Users),
		Codes:     codes,
		Sessions:  sessions,
		Minter:    minter,
		Metrics:   d.Metrics,
	})
	names := make([]string, 0, len(registry.Names()))
	for _, n := range registry.Names() {
		names = append(names, string(n))
	}
	healthServices := healthsvc.NewServices(healthsvc.Deps{
		DBCheck:    d.DBCheck,
		CacheCheck: d.Cache.Ping,
		Providers:  names,
	})

	// 5. Controllers
	cookies := helpers.CookiePolicy{SameSite: cfg.Cookies.SameSite}
	if cfg.IsProd() {
		cookies.Secure = true
		cookies.Domain = cfg.Cookies.Domain
	}
	authControllers := authctrl.NewControllers(authServices, cookies)
	healthControllers := healthctrl.NewControllers(healthServices)

	// 6. Router
	ips, err := mw.NewIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("app: server.trusted_proxies: %w", err)
	}
	handler := router.New(router.Deps{
		Auth:        authControllers,
		Health:      healthControllers,
		ClientIP:    ips,
		Providers:   registry.Names(),
		Metrics:     d.Metrics,
		RateLimiter: d.RateLimiter,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
	})

	return &App{Handler: handler, Keys: keys, Providers: registry}, nil
}

func buildProviders(cfg *config.Config, pending *flowstate.PendingStore, httpClient *http.Client) *providers.Registry {
	var ps []providers.Provider
	if d := cfg.Providers.Discord; d.Enabled {
		ps = append(ps, discord.New(discord.Config{
			ClientID:     d.ClientID,
			ClientSecret: d.ClientSecret,
			RedirectURL:  cfg.CallbackURL(discord.CallbackPath),
			AuthURL:      d.AuthURL,
			TokenURL:     d.TokenURL,
			ProfileURL:   d.ProfileURL,
			HTTPClient:   httpClient,
		}, pending))
	}
	if s := cfg.Providers.Steam; s.Enabled {
		ps = append(ps, steam.New(steam.Config{
			APIKey:       s.APIKey,
			BaseURL:      strings.TrimRight(cfg.App.BaseURL, "/"),
			OpenIDURL:    s.OpenIDURL,
			SummariesURL: s.SummariesURL,
			HTTPClient:   httpClient,
		}))
	}
	return providers.NewRegistry(ps...)
}
