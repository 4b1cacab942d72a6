// Package providers define el contrato común de los proveedores de identidad
// externos (Discord, Steam) y un registro cerrado de las variantes activas.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/google/uuid"
)

var (
	ErrUnknownProvider = errors.New("providers: unknown provider")
	// ErrInvalidCallback: faltan parámetros o el state no es interpretable.
	ErrInvalidCallback = errors.New("providers: invalid callback")
	// ErrExchangeFailed: el token endpoint rechazó el código o no respondió.
	ErrExchangeFailed = errors.New("providers: code exchange failed")
	// ErrProfileFailed: no se pudo obtener o parsear el perfil.
	ErrProfileFailed = errors.New("providers: profile fetch failed")
	// ErrClaimVerificationFailed: el proveedor no confirmó la aserción.
	ErrClaimVerificationFailed = errors.New("providers: claim verification failed")
)

// Completion es el resultado de un callback exitoso: la cuenta normalizada
// más la app y el destino que viajaron con el flujo.
type Completion struct {
	Account     repository.Account
	AppID       uuid.UUID
	RedirectURI string
}

// Provider es una variante de login federado.
// AuthorizeURL asume que redirectURI ya pasó por el allowlist.
type Provider interface {
	Name() repository.Provider
	AuthorizeURL(ctx context.Context, appID uuid.UUID, redirectURI string) (string, error)
	Complete(ctx context.Context, query url.Values) (*Completion, error)
}

// Registry resuelve proveedores por nombre.
type Registry struct {
	byName map[repository.Provider]Provider
}

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{byName: make(map[repository.Provider]Provider, len(ps))}
	for _, p := range ps {
		r.byName[p.Name()] = p
	}
	return r
}

// Get devuelve el proveedor name, ErrUnknownProvider si no está habilitado.
func (r *Registry) Get(name repository.Provider) (Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lista los proveedores habilitados, ordenados.
func (r *Registry) Names() []repository.Provider {
	out := make([]repository.Provider, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
