package auth

import (
	"net/http"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	svc "github.com/dropDatabas3/hellobroker/internal/http/services/auth"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/go-chi/chi/v5"
)

// LoginController maneja el inicio y el callback de cada proveedor.
type LoginController struct {
	service svc.LoginService
}

// NewLoginController crea el controller de login.
func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Begin maneja GET /auth/{app}/{provider}/?redirect_uri=
func (c *LoginController) Begin(provider repository.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx).With(
			logger.Layer("controller"),
			logger.Op("LoginController.Begin"),
			logger.Provider(string(provider)),
		)

		appID := chi.URLParam(r, "app")
		target, err := c.service.Begin(ctx, provider, appID, r.URL.Query().Get("redirect_uri"))
		if err != nil {
			writeAuthError(w, log.With(logger.AppID(appID)), "login init failed", err)
			return
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}

// Callback maneja GET /auth/{provider}/redirect
func (c *LoginController) Callback(provider repository.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx).With(
			logger.Layer("controller"),
			logger.Op("LoginController.Callback"),
			logger.Provider(string(provider)),
		)

		target, err := c.service.Callback(ctx, provider, r.URL.Query())
		if err != nil {
			writeAuthError(w, log, "provider callback failed", err)
			return
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}
