package auth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/hellobroker/internal/audit"
	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	dto "github.com/dropDatabas3/hellobroker/internal/http/dto/auth"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/google/uuid"
)

// SessionService opera sobre una sesión de refresh existente.
type SessionService interface {
	// Refresh rota refreshToken: el viejo deja de valer y se emite un par nuevo.
	Refresh(ctx context.Context, appID, refreshToken string) (*dto.TokenPair, error)
	// Logout revoca refreshToken.
	Logout(ctx context.Context, appID, refreshToken string) error
}

type sessionService struct {
	deps Deps
}

// NewSessionService crea el service de sesiones.
func NewSessionService(d Deps) SessionService {
	return &sessionService{deps: d}
}

// verify valida el refresh contra la clave de appID.
func (s *sessionService) verify(ctx context.Context, appID, refreshToken string) (uuid.UUID, *jwtx.Claims, error) {
	if refreshToken == "" {
		return uuid.Nil, nil, ErrMissingRefresh
	}
	id, err := parseAppID(appID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	claims, err := s.deps.Minter.VerifyForApp(ctx, refreshToken, id)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, claims, nil
}

func (s *sessionService) Refresh(ctx context.Context, appID, refreshToken string) (*dto.TokenPair, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.Op("Refresh"),
	)

	id, claims, err := s.verify(ctx, appID, refreshToken)
	if err != nil {
		return nil, err
	}
	user := &claims.User

	// Primero se firma y después se rota: si la firma falla el refresh viejo
	// sigue vigente; si la rotación falla el nuevo nunca queda activo.
	pair, err := mintPair(ctx, s.deps.Minter, user)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Sessions.Rotate(ctx, id, user.UserID, refreshToken, pair.RefreshToken); err != nil {
		log.Debug("rotation rejected", logger.AppID(id.String()), logger.UserID(user.UserID), logger.Err(err))
		if errors.Is(err, flowstate.ErrSessionNotFound) {
			// refresh válido pero ya rotado o revocado: posible reuso
			audit.Log(ctx, audit.RefreshRejected, logger.AppID(id.String()), logger.UserID(user.UserID))
		}
		return nil, err
	}

	s.deps.Metrics.ObserveTokensIssued("refresh")
	log.Info("session refreshed", logger.AppID(id.String()), logger.UserID(user.UserID))
	audit.Log(ctx, audit.SessionRotated, logger.AppID(id.String()), logger.UserID(user.UserID))
	return pair, nil
}

func (s *sessionService) Logout(ctx context.Context, appID, refreshToken string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.Op("Logout"),
	)

	id, claims, err := s.verify(ctx, appID, refreshToken)
	if err != nil {
		return err
	}
	userID := claims.User.UserID

	active, err := s.deps.Sessions.IsActive(ctx, id, userID, refreshToken)
	if err != nil {
		return err
	}
	if !active {
		return flowstate.ErrSessionNotFound
	}
	if err := s.deps.Sessions.Revoke(ctx, id, userID, refreshToken); err != nil {
		return err
	}

	log.Info("logout successful", logger.AppID(id.String()), logger.UserID(userID))
	audit.Log(ctx, audit.SessionRevoked, logger.AppID(id.String()), logger.UserID(userID))
	return nil
}
