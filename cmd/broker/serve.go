package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dropDatabas3/hellobroker/internal/app"
	"github.com/dropDatabas3/hellobroker/internal/bootstrap"
	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/dropDatabas3/hellobroker/internal/http/server"
	"github.com/dropDatabas3/hellobroker/internal/metrics"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/dropDatabas3/hellobroker/internal/rate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	migrate   bool
	bootstrap bool
	redirects []string
}

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg(), f)
		},
	}
	cmd.Flags().BoolVar(&f.migrate, "migrate", false, "aplica migraciones antes de servir (postgres)")
	cmd.Flags().BoolVar(&f.bootstrap, "bootstrap", false, "crea la app MAIN si no existe")
	cmd.Flags().StringSliceVar(&f.redirects, "allow-redirect", nil, "redirect_uri permitido para MAIN (con --bootstrap)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, f serveFlags) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logger.L().With(logger.Component("serve"))

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.PG != nil && (f.migrate || cfg.Storage.MigrateOnStart) {
		if err := runMigrations(ctx, st.PG, os.Stdout); err != nil {
			return err
		}
	}

	c, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	box, err := openBox(cfg)
	if err != nil {
		return err
	}

	if f.bootstrap {
		prov := bootstrap.AppProvisionConfig{Apps: st.Apps, Box: box, Out: os.Stdout}
		mainApp, _, err := bootstrap.EnsureMainApp(ctx, prov)
		if err != nil {
			return err
		}
		for _, uri := range f.redirects {
			if err := bootstrap.AllowRedirect(ctx, prov, mainApp.ID, uri); err != nil {
				return err
			}
		}
	}

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	_ = m.Register(collectors.NewGoCollector())
	_ = m.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := app.Deps{
		Config:  cfg,
		Apps:    st.Apps,
		Users:   st.Users,
		Cache:   c,
		Box:     box,
		Metrics: m,
	}
	if st.PG != nil {
		deps.DBCheck = st.PG.Ping
		if err := m.Register(metrics.NewPoolCollector(st.PG.Pool)); err != nil {
			return err
		}
	}
	if cfg.Rate.Enabled {
		if rc, ok := c.(*cache.RedisClient); ok {
			deps.RateLimiter = rate.NewRedisLimiter(rc.Redis(), "rl:", cfg.Rate.MaxRequests, cfg.Rate.Window)
		} else {
			log.Warn("rate limiting requires the redis cache; disabled")
		}
	}

	a, err := app.New(deps)
	if err != nil {
		return err
	}

	log.Info("broker ready",
		logger.String("env", cfg.App.Env),
		logger.String("base_url", cfg.App.BaseURL),
		logger.Any("providers", a.Providers.Names()),
	)
	return server.Run(ctx, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.Handler)
}
