package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantApp es una aplicación cliente que delega el login en el broker.
// Cada app tiene su propio par de claves de firma.
type TenantApp struct {
	ID   uuid.UUID
	Name string
	// PublicKeyPEM: PKIX PEM (Ed25519 o RSA).
	PublicKeyPEM string
	// PrivateKeySealed: PKCS#8 PEM sellado con secretbox.
	PrivateKeySealed string
	CreatedAt        time.Time
}

// RedirectURI es una entrada del allowlist de una app.
// Pattern es exacto, o prefijo si termina en '*'.
type RedirectURI struct {
	AppID   uuid.UUID
	Pattern string
}

// CreateAppInput datos para registrar una app.
// ID cero = se genera uno nuevo. El llamador lo fija cuando necesita
// sellar la privada con el id como scope antes de insertar.
type CreateAppInput struct {
	ID               uuid.UUID
	Name             string
	PublicKeyPEM     string
	PrivateKeySealed string
}

// AppRepository acceso a tenant apps y su allowlist.
type AppRepository interface {
	Create(ctx context.Context, in CreateAppInput) (*TenantApp, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TenantApp, error)
	List(ctx context.Context) ([]TenantApp, error)

	// AddRedirectURI registra un patrón; ErrConflict si ya existe.
	AddRedirectURI(ctx context.Context, appID uuid.UUID, pattern string) error
	// ListRedirectURIs devuelve el allowlist (vacío si la app no existe).
	ListRedirectURIs(ctx context.Context, appID uuid.UUID) ([]RedirectURI, error)
}
