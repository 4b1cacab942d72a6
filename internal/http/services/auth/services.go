// Package auth orquesta el login federado: inicio y callback contra el
// proveedor, canje del código de un solo uso y el ciclo de vida de la sesión
// de refresh (rotación y logout).
package auth

import (
	"errors"
	"strings"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	"github.com/dropDatabas3/hellobroker/internal/identity"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/metrics"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	"github.com/dropDatabas3/hellobroker/internal/redirect"
	"github.com/google/uuid"
)

var (
	// ErrInvalidApp: el segmento {app} no es un UUID.
	ErrInvalidApp = errors.New("auth: invalid app id")
	// ErrInvalidRequest: falta redirect_uri, code u otro input obligatorio.
	ErrInvalidRequest = errors.New("auth: invalid request")
	// ErrMissingRefresh: el request no trae la cookie de refresh.
	ErrMissingRefresh = errors.New("auth: missing refresh token")
	// ErrMalformedCodeRef: el valor guardado detrás de un código no es provider:id.
	ErrMalformedCodeRef = errors.New("auth: malformed code reference")
)

// Deps dependencias compartidas por los services de auth.
type Deps struct {
	Providers *providers.Registry
	Policy    *redirect.Policy
	Resolver  *identity.Resolver
	Codes     *flowstate.CodeStore
	Sessions  *flowstate.SessionStore
	Minter    *jwtx.Minter
	// Metrics es opcional.
	Metrics *metrics.Metrics
}

// Services agrupa todos los services del dominio auth.
type Services struct {
	Login   LoginService
	Token   TokenService
	Session SessionService
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	return Services{
		Login:   NewLoginService(d),
		Token:   NewTokenService(d),
		Session: NewSessionService(d),
	}
}

func parseAppID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidApp
	}
	return id, nil
}

// codeRef es el valor guardado detrás de un código: "discord:1234".
func codeRef(p repository.Provider, externalID string) string {
	return string(p) + ":" + externalID
}

func parseCodeRef(ref string) (repository.Provider, string, error) {
	p, id, ok := strings.Cut(ref, ":")
	if !ok || id == "" || !repository.Provider(p).Valid() {
		return "", "", ErrMalformedCodeRef
	}
	return repository.Provider(p), id, nil
}
