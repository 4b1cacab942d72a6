package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellobroker/internal/audit"
	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	dto "github.com/dropDatabas3/hellobroker/internal/http/dto/auth"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
)

// TokenService canjea el código de un solo uso por el par access/refresh.
type TokenService interface {
	Exchange(ctx context.Context, appID, code string) (*dto.TokenPair, error)
}

type tokenService struct {
	deps Deps
}

// NewTokenService crea el service de canje.
func NewTokenService(d Deps) TokenService {
	return &tokenService{deps: d}
}

func (s *tokenService) Exchange(ctx context.Context, appID, code string) (*dto.TokenPair, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.token"),
		logger.Op("Exchange"),
	)

	id, err := parseAppID(appID)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code required", ErrInvalidRequest)
	}

	// Redeem es GETDEL: desde acá el código ya no sirve, pase lo que pase.
	ref, err := s.deps.Codes.Redeem(ctx, id, code)
	if err != nil {
		return nil, err
	}
	provider, externalID, err := parseCodeRef(ref)
	if err != nil {
		return nil, err
	}

	user, err := s.deps.Resolver.Lookup(ctx, id, provider, externalID)
	if err != nil {
		return nil, err
	}

	pair, err := mintPair(ctx, s.deps.Minter, user)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Sessions.Activate(ctx, id, user.UserID, pair.RefreshToken); err != nil {
		return nil, err
	}

	s.deps.Metrics.ObserveTokensIssued("exchange")
	log.Info("tokens issued", logger.AppID(id.String()), logger.UserID(user.UserID))
	audit.Log(ctx, audit.TokensIssued, logger.AppID(id.String()), logger.UserID(user.UserID), logger.Provider(string(provider)))
	return pair, nil
}

// mintPair firma access y refresh para user. Nada se persiste acá.
func mintPair(ctx context.Context, m *jwtx.Minter, user *repository.User) (*dto.TokenPair, error) {
	access, err := m.MintAccess(ctx, user)
	if err != nil {
		return nil, err
	}
	refresh, err := m.MintRefresh(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPair{
		AccessToken:  access.Value,
		AccessTTL:    m.AccessTTL(),
		RefreshToken: refresh.Value,
		RefreshTTL:   m.RefreshTTL(),
		UserID:       user.UserID,
	}, nil
}
