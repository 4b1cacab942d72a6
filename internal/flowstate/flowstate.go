// Package flowstate contiene los tres almacenes efímeros del flujo de login:
// estado pendiente (CSRF/state del proveedor), códigos de un solo uso y
// sesiones de refresh rotables. Todos viven sobre cache.Client.
package flowstate

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellobroker/internal/cache"
)

var (
	// ErrFlowStateMissing: el state no existe o expiró.
	ErrFlowStateMissing = errors.New("flowstate: pending flow missing or expired")
	// ErrCodeMissing: el código no existe, expiró o ya fue canjeado.
	ErrCodeMissing = errors.New("flowstate: code missing or expired")
	// ErrSessionNotFound: el refresh token no es miembro vigente de la sesión.
	ErrSessionNotFound = errors.New("flowstate: session not found")
	// ErrStoreUnavailable: falla del backend efímero (no es un miss).
	ErrStoreUnavailable = errors.New("flowstate: ephemeral store unavailable")
)

// storeErr clasifica un error del cache: miss -> notFound, resto -> ErrStoreUnavailable.
func storeErr(err, notFound error) error {
	if cache.IsNotFound(err) {
		return notFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
