package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type appRepo struct{ pool *pgxpool.Pool }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *appRepo) Create(ctx context.Context, in repository.CreateAppInput) (*repository.TenantApp, error) {
	if in.Name == "" || in.PublicKeyPEM == "" || in.PrivateKeySealed == "" {
		return nil, repository.ErrInvalidInput
	}
	app := &repository.TenantApp{
		ID:               in.ID,
		Name:             in.Name,
		PublicKeyPEM:     in.PublicKeyPEM,
		PrivateKeySealed: in.PrivateKeySealed,
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO apps (id, name, public_key, private_key_sealed)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		app.ID, app.Name, app.PublicKeyPEM, app.PrivateKeySealed,
	).Scan(&app.CreatedAt)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("pg: insert app: %w", err)
	}
	return app, nil
}

func (r *appRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.TenantApp, error) {
	var app repository.TenantApp
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, public_key, private_key_sealed, created_at
		FROM apps WHERE id = $1`, id,
	).Scan(&app.ID, &app.Name, &app.PublicKeyPEM, &app.PrivateKeySealed, &app.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get app: %w", err)
	}
	return &app, nil
}

func (r *appRepo) List(ctx context.Context) ([]repository.TenantApp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, public_key, private_key_sealed, created_at
		FROM apps ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("pg: list apps: %w", err)
	}
	defer rows.Close()

	var out []repository.TenantApp
	for rows.Next() {
		var app repository.TenantApp
		if err := rows.Scan(&app.ID, &app.Name, &app.PublicKeyPEM, &app.PrivateKeySealed, &app.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan app: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (r *appRepo) AddRedirectURI(ctx context.Context, appID uuid.UUID, pattern string) error {
	if pattern == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO redirect_uris (app_id, pattern) VALUES ($1, $2)`, appID, pattern)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("pg: insert redirect uri: %w", err)
	}
	return nil
}

func (r *appRepo) ListRedirectURIs(ctx context.Context, appID uuid.UUID) ([]repository.RedirectURI, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT app_id, pattern FROM redirect_uris WHERE app_id = $1 ORDER BY pattern`, appID)
	if err != nil {
		return nil, fmt.Errorf("pg: list redirect uris: %w", err)
	}
	defer rows.Close()

	var out []repository.RedirectURI
	for rows.Next() {
		var ru repository.RedirectURI
		if err := rows.Scan(&ru.AppID, &ru.Pattern); err != nil {
			return nil, fmt.Errorf("pg: scan redirect uri: %w", err)
		}
		out = append(out, ru)
	}
	return out, rows.Err()
}
