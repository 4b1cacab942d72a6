// Package pg implementa los repositorios sobre PostgreSQL (pgx/pgxpool).
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions ajustes opcionales del pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store agrupa el pool compartido y los repositorios.
type Store struct {
	pool  *pgxpool.Pool
	apps  *appRepo
	users *userRepo
}

// Open crea el pool y verifica la conexión.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(opts.MaxOpenConns)
	}
	// MaxIdleConns → MinConns (pgxpool)
	if opts.MaxIdleConns > 0 {
		pcfg.MinConns = int32(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
		pcfg.MaxConnIdleTime = opts.ConnMaxLifetime
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: new pool: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return NewWithPool(pool), nil
}

// NewWithPool envuelve un pool existente.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		apps:  &appRepo{pool: pool},
		users: &userRepo{pool: pool},
	}
}

// Pool expone el pool interno (migraciones, métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Apps() repository.AppRepository { return s.apps }
func (s *Store) Users() repository.UserRepository { return s.users }

// Ping para readiness.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
