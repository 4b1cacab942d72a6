package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/hellobroker/internal/http/dto/auth"
	"github.com/dropDatabas3/hellobroker/internal/http/helpers"
	svc "github.com/dropDatabas3/hellobroker/internal/http/services/auth"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/go-chi/chi/v5"
)

// SessionController maneja refresh y logout sobre la cookie de refresh.
type SessionController struct {
	service svc.SessionService
	cookies helpers.CookiePolicy
}

// NewSessionController crea el controller de sesiones.
func NewSessionController(service svc.SessionService, cookies helpers.CookiePolicy) *SessionController {
	return &SessionController{service: service, cookies: cookies}
}

func refreshCookie(r *http.Request) string {
	ck, err := r.Cookie(helpers.RefreshCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Refresh maneja POST /auth/{app}/token/refresh
func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID := chi.URLParam(r, "app")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("SessionController.Refresh"),
		logger.AppID(appID),
	)

	pair, err := c.service.Refresh(ctx, appID, refreshCookie(r))
	if err != nil {
		writeAuthError(w, log, "refresh failed", err)
		return
	}

	helpers.SetSessionCookies(w, c.cookies, pair.AccessToken, pair.AccessTTL, pair.RefreshToken, pair.RefreshTTL)
	w.WriteHeader(http.StatusOK)
}

// Logout maneja POST /auth/{app}/logout
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID := chi.URLParam(r, "app")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("SessionController.Logout"),
		logger.AppID(appID),
	)

	if err := c.service.Logout(ctx, appID, refreshCookie(r)); err != nil {
		writeAuthError(w, log, "logout failed", err)
		return
	}

	helpers.ClearSessionCookies(w, c.cookies)
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "success"})
}
