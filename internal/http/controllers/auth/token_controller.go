package auth

import (
	"fmt"
	"net/http"

	dto "github.com/dropDatabas3/hellobroker/internal/http/dto/auth"
	"github.com/dropDatabas3/hellobroker/internal/http/helpers"
	svc "github.com/dropDatabas3/hellobroker/internal/http/services/auth"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/go-chi/chi/v5"
)

// TokenController maneja POST /auth/{app}/token
type TokenController struct {
	service svc.TokenService
	cookies helpers.CookiePolicy
}

// NewTokenController crea el controller de canje.
func NewTokenController(service svc.TokenService, cookies helpers.CookiePolicy) *TokenController {
	return &TokenController{service: service, cookies: cookies}
}

// Exchange canjea {code} y deja los tokens en cookies. El body de la
// respuesta va vacío: el cliente solo necesita las cookies.
func (c *TokenController) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID := chi.URLParam(r, "app")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("TokenController.Exchange"),
		logger.AppID(appID),
	)

	var req dto.TokenRequest
	if err := helpers.ReadJSON(r, &req); err != nil {
		writeAuthError(w, log, "invalid token request", fmt.Errorf("%w: %v", svc.ErrInvalidRequest, err))
		return
	}

	pair, err := c.service.Exchange(ctx, appID, req.Code)
	if err != nil {
		writeAuthError(w, log, "code exchange failed", err)
		return
	}

	helpers.SetSessionCookies(w, c.cookies, pair.AccessToken, pair.AccessTTL, pair.RefreshToken, pair.RefreshTTL)
	w.WriteHeader(http.StatusOK)
}
