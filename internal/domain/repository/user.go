package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider identifica un proveedor de identidad externo.
type Provider string

const (
	ProviderDiscord Provider = "discord"
	ProviderSteam   Provider = "steam"
)

// Valid reporta si p es un proveedor conocido.
func (p Provider) Valid() bool {
	return p == ProviderDiscord || p == ProviderSteam
}

// Account es la cuenta de un proveedor vinculada a un usuario.
// ID nil = no vinculada.
type Account struct {
	ID       *string `json:"id"`
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

// Linked reporta si la cuenta tiene id externo.
func (a Account) Linked() bool { return a.ID != nil && *a.ID != "" }

// User es un usuario dentro de una tenant app.
type User struct {
	AppID     uuid.UUID `json:"-"`
	UserID    int64     `json:"user_id"`
	Discord   Account   `json:"discord"`
	Steam     Account   `json:"steam"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"-"`
}

// Account devuelve la cuenta del proveedor p.
func (u *User) Account(p Provider) Account {
	switch p {
	case ProviderDiscord:
		return u.Discord
	case ProviderSteam:
		return u.Steam
	}
	return Account{}
}

// UserRepository acceso a usuarios por app.
type UserRepository interface {
	// FindByAccount busca por (app, proveedor, id externo). ErrNotFound si no existe.
	FindByAccount(ctx context.Context, appID uuid.UUID, p Provider, externalID string) (*User, error)

	// CreateWithAccount crea el usuario con la cuenta de p vinculada.
	// Si otro request lo creó en paralelo devuelve ese usuario (no duplica).
	CreateWithAccount(ctx context.Context, appID uuid.UUID, p Provider, acct Account) (*User, error)

	// GetByID busca por (app, user_id). ErrNotFound si no existe.
	GetByID(ctx context.Context, appID uuid.UUID, userID int64) (*User, error)
}
