// Package auth contiene los controllers de login federado y sesión.
package auth

import (
	"github.com/dropDatabas3/hellobroker/internal/http/helpers"
	svc "github.com/dropDatabas3/hellobroker/internal/http/services/auth"
)

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Login   *LoginController
	Token   *TokenController
	Session *SessionController
}

// NewControllers crea el agregador de controllers auth. cookies define los
// atributos de las cookies de sesión (Secure y Domain solo en prod).
func NewControllers(s svc.Services, cookies helpers.CookiePolicy) *Controllers {
	return &Controllers{
		Login:   NewLoginController(s.Login),
		Token:   NewTokenController(s.Token, cookies),
		Session: NewSessionController(s.Session, cookies),
	}
}
