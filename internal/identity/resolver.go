// Package identity resuelve (o crea) el usuario de una tenant app a partir
// de la cuenta externa devuelta por un proveedor.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/google/uuid"
)

var (
	// ErrStoreUnavailable: falla del almacenamiento relacional.
	ErrStoreUnavailable = errors.New("identity: store unavailable")
	// ErrUserNotFound: no hay usuario para la cuenta externa.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrAccountUnlinked: la cuenta no trae id externo.
	ErrAccountUnlinked = errors.New("identity: account has no external id")
)

// Resolver busca o crea usuarios. No fusiona cuentas de distintos proveedores.
type Resolver struct {
	users repository.UserRepository
}

func NewResolver(users repository.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// ResolveOrCreate devuelve el usuario de appID con la cuenta de p; lo crea si no existe.
func (r *Resolver) ResolveOrCreate(ctx context.Context, appID uuid.UUID, p repository.Provider, acct repository.Account) (*repository.User, error) {
	if !acct.Linked() {
		return nil, ErrAccountUnlinked
	}
	log := logger.From(ctx).With(logger.Component("identity"), logger.Op("ResolveOrCreate"),
		logger.AppID(appID.String()), logger.Provider(string(p)))

	u, err := r.users.FindByAccount(ctx, appID, p, *acct.ID)
	if err == nil {
		return u, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	u, err = r.users.CreateWithAccount(ctx, appID, p, acct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	log.Info("user created", logger.UserID(u.UserID))
	return u, nil
}

// Lookup busca sin crear (canje de código).
func (r *Resolver) Lookup(ctx context.Context, appID uuid.UUID, p repository.Provider, externalID string) (*repository.User, error) {
	u, err := r.users.FindByAccount(ctx, appID, p, externalID)
	switch {
	case err == nil:
		return u, nil
	case repository.IsNotFound(err):
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
