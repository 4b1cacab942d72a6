package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/dropDatabas3/hellobroker/internal/store/memory"
	"github.com/dropDatabas3/hellobroker/internal/store/pg"
)

// stores agrupa los repositorios abiertos según storage.driver.
type stores struct {
	Apps  repository.AppRepository
	Users repository.UserRepository
	// PG es nil con el driver memory.
	PG *pg.Store
}

func (s *stores) Close() {
	if s.PG != nil {
		s.PG.Close()
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case "memory":
		m := memory.New()
		return &stores{Apps: m.Apps(), Users: m.Users()}, nil
	case "postgres":
		if cfg.Storage.DSN == "" {
			return nil, errors.New("storage.dsn is required for postgres")
		}
		s, err := pg.Open(ctx, cfg.Storage.DSN, pg.PoolOptions{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return &stores{Apps: s.Apps(), Users: s.Users(), PG: s}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	return cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
}

func openBox(cfg *config.Config) (*secretbox.Box, error) {
	if cfg.Security.SecretBoxMasterKey == "" {
		return nil, errors.New("SECRETBOX_MASTER_KEY is required (broker keys gen-secretbox)")
	}
	return secretbox.New(cfg.Security.SecretBoxMasterKey)
}
