package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `app_id, user_id, discord_id, discord_username, discord_avatar,
	steam_id, steam_username, steam_avatar, admin, created_at`

// columnas por proveedor; nunca se arman con input del usuario
type providerColumns struct{ id, username, avatar, constraint string }

var columnsByProvider = map[repository.Provider]providerColumns{
	repository.ProviderDiscord: {"discord_id", "discord_username", "discord_avatar", "users_app_discord_uniq"},
	repository.ProviderSteam:   {"steam_id", "steam_username", "steam_avatar", "users_app_steam_uniq"},
}

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.AppID, &u.UserID,
		&u.Discord.ID, &u.Discord.Username, &u.Discord.Avatar,
		&u.Steam.ID, &u.Steam.Username, &u.Steam.Avatar,
		&u.Admin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindByAccount(ctx context.Context, appID uuid.UUID, p repository.Provider, externalID string) (*repository.User, error) {
	cols, ok := columnsByProvider[p]
	if !ok || externalID == "" {
		return nil, repository.ErrInvalidInput
	}
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE app_id = $1 AND `+cols.id+` = $2`,
		appID, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: find user by %s: %w", p, err)
	}
	return u, nil
}

func (r *userRepo) CreateWithAccount(ctx context.Context, appID uuid.UUID, p repository.Provider, acct repository.Account) (*repository.User, error) {
	cols, ok := columnsByProvider[p]
	if !ok || !acct.Linked() {
		return nil, repository.ErrInvalidInput
	}

	// Dos primeros logins concurrentes: uno inserta, el otro no hace nada y relee.
	u, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (app_id, `+cols.id+`, `+cols.username+`, `+cols.avatar+`)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT `+cols.constraint+` DO NOTHING
		RETURNING `+userColumns,
		appID, *acct.ID, acct.Username, acct.Avatar))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.FindByAccount(ctx, appID, p, *acct.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("pg: insert user: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, appID uuid.UUID, userID int64) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE app_id = $1 AND user_id = $2`, appID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get user: %w", err)
	}
	return u, nil
}
