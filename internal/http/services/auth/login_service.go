package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/hellobroker/internal/audit"
	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
)

// LoginService define el inicio y el callback del login federado.
type LoginService interface {
	// Begin valida redirectURI contra el allowlist de la app y devuelve la URL
	// del proveedor a la que hay que redirigir al navegador.
	Begin(ctx context.Context, provider repository.Provider, appID, redirectURI string) (string, error)
	// Callback completa el flujo con los parámetros que devolvió el proveedor
	// y devuelve redirect_uri con el código de un solo uso agregado.
	Callback(ctx context.Context, provider repository.Provider, query url.Values) (string, error)
}

type loginService struct {
	deps Deps
}

// NewLoginService crea el service de login.
func NewLoginService(d Deps) LoginService {
	return &loginService{deps: d}
}

func (s *loginService) Begin(ctx context.Context, provider repository.Provider, appID, redirectURI string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Begin"),
		logger.Provider(string(provider)),
	)

	p, err := s.deps.Providers.Get(provider)
	if err != nil {
		return "", err
	}
	id, err := parseAppID(appID)
	if err != nil {
		return "", err
	}
	redirectURI = strings.TrimSpace(redirectURI)
	if redirectURI == "" {
		return "", fmt.Errorf("%w: redirect_uri required", ErrInvalidRequest)
	}

	if err := s.deps.Policy.Check(ctx, id, redirectURI); err != nil {
		log.Debug("redirect rejected", logger.AppID(id.String()), logger.Err(err))
		return "", err
	}

	target, err := p.AuthorizeURL(ctx, id, redirectURI)
	if err != nil {
		return "", err
	}
	return target, nil
}

func (s *loginService) Callback(ctx context.Context, provider repository.Provider, query url.Values) (target string, err error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Callback"),
		logger.Provider(string(provider)),
	)
	defer func() {
		if err != nil {
			s.deps.Metrics.ObserveLogin(string(provider), "failed")
		}
	}()

	p, err := s.deps.Providers.Get(provider)
	if err != nil {
		return "", err
	}

	c, err := p.Complete(ctx, query)
	if err != nil {
		return "", err
	}
	log = log.With(logger.AppID(c.AppID.String()))

	// El destino viene del state; se vuelve a validar porque en Steam el
	// state lo transporta el navegador.
	if err := s.deps.Policy.Check(ctx, c.AppID, c.RedirectURI); err != nil {
		log.Warn("callback redirect rejected", logger.Err(err))
		audit.Log(ctx, audit.LoginRejected, logger.Provider(string(provider)), logger.AppID(c.AppID.String()), logger.ErrorKind("redirect"))
		return "", err
	}

	user, err := s.deps.Resolver.ResolveOrCreate(ctx, c.AppID, provider, c.Account)
	if err != nil {
		return "", err
	}

	code, err := s.deps.Codes.Issue(ctx, c.AppID, codeRef(provider, *c.Account.ID))
	if err != nil {
		return "", err
	}

	target, err = withCode(c.RedirectURI, code)
	if err != nil {
		return "", err
	}

	s.deps.Metrics.ObserveLogin(string(provider), "success")
	log.Info("login completed", logger.UserID(user.UserID))
	audit.Log(ctx, audit.LoginSucceeded, logger.Provider(string(provider)), logger.AppID(c.AppID.String()), logger.UserID(user.UserID))
	return target, nil
}

// withCode agrega (o pisa) el parámetro code en redirectURI.
func withCode(redirectURI, code string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect_uri: %v", ErrInvalidRequest, err)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
