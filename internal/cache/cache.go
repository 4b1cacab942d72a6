// Package cache es el almacén efímero con TTL del broker.
//
// Dos backends:
//   - Redis (producción, compartido entre réplicas)
//   - Memory (desarrollo/testing, in-process)
//
// Además de claves string con TTL ofrece "miembros con vencimiento": un set
// ordenado donde cada miembro lleva su propio instante de expiración (score).
// Las sesiones de refresh viven ahí.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones del almacén efímero.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL (0 = sin expiración).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Take obtiene y borra atómicamente. Dos Take concurrentes sobre la misma
	// key: exactamente uno recibe el valor, el otro ErrNotFound.
	Take(ctx context.Context, key string) (string, error)

	// Delete elimina una key (idempotente).
	Delete(ctx context.Context, key string) error

	// AddMember agrega member al set de key con vencimiento expiresAt y purga
	// los miembros vencidos.
	AddMember(ctx context.Context, key, member string, expiresAt time.Time) error

	// HasMember reporta si member existe y no venció.
	HasMember(ctx context.Context, key, member string) (bool, error)

	// SwapMember reemplaza oldMember por newMember en un solo paso.
	// Si oldMember no está vigente retorna ErrNotFound y no modifica nada.
	SwapMember(ctx context.Context, key, oldMember, newMember string, expiresAt time.Time) error

	// RemoveMember quita member; reporta si estaba presente.
	RemoveMember(ctx context.Context, key, member string) (bool, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Config configuración para crear un cliente.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // prefijo para todas las keys
}

// ErrNotFound: la key (o el miembro) no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente según la configuración.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }
