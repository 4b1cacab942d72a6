package jwt

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// AppKeys es el par de firma ya descifrado y parseado de una app.
type AppKeys struct {
	AppID   uuid.UUID
	Private crypto.Signer
	Public  crypto.PublicKey
}

// KeyProvider entrega claves por app. KeySource es la implementación real.
type KeyProvider interface {
	Keys(ctx context.Context, appID uuid.UUID) (*AppKeys, error)
}

// KeySource carga las claves de cada app desde el repositorio, abre la
// privada con secretbox y cachea el resultado en memoria. Cargas concurrentes
// de la misma app se agrupan con singleflight.
type KeySource struct {
	apps  repository.AppRepository
	box   *secretbox.Box
	cache *gocache.Cache
	group singleflight.Group
}

func NewKeySource(apps repository.AppRepository, box *secretbox.Box, ttl time.Duration) *KeySource {
	return &KeySource{
		apps:  apps,
		box:   box,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Keys devuelve las claves de appID. ErrUnknownApp si la app no existe,
// ErrKeyUnavailable si no se pudieron cargar.
func (k *KeySource) Keys(ctx context.Context, appID uuid.UUID) (*AppKeys, error) {
	id := appID.String()
	if v, ok := k.cache.Get(id); ok {
		return v.(*AppKeys), nil
	}

	// La carga es compartida: no debe morir con la cancelación del primer caller.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := k.group.Do(id, func() (any, error) {
		keys, err := k.load(loadCtx, appID)
		if err != nil {
			return nil, err
		}
		k.cache.SetDefault(id, keys)
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AppKeys), nil
}

// Invalidate descarta las claves cacheadas de appID.
func (k *KeySource) Invalidate(appID uuid.UUID) { k.cache.Delete(appID.String()) }

func (k *KeySource) load(ctx context.Context, appID uuid.UUID) (*AppKeys, error) {
	app, err := k.apps.GetByID(ctx, appID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownApp
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	privPEM, err := k.box.Open(appID.String(), app.PrivateKeySealed)
	if err != nil {
		return nil, fmt.Errorf("%w: open private key: %v", ErrKeyUnavailable, err)
	}
	priv, err := ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	pub, err := ParsePublicKeyPEM(app.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	return &AppKeys{AppID: appID, Private: priv, Public: pub}, nil
}
