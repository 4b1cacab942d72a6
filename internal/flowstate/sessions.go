package flowstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/google/uuid"
)

// SessionStore guarda, por (app, usuario), el set de refresh tokens vigentes.
// Cada miembro vence por su cuenta (ttl desde su alta).
type SessionStore struct {
	cache cache.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionStore(c cache.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: c, ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func sessionKey(appID uuid.UUID, userID int64) string {
	return "session:" + appID.String() + ":" + strconv.FormatInt(userID, 10)
}

// Activate agrega token al set con vencimiento now+ttl.
func (s *SessionStore) Activate(ctx context.Context, appID uuid.UUID, userID int64, token string) error {
	if err := s.cache.AddMember(ctx, sessionKey(appID, userID), token, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsActive reporta si token es miembro vigente.
func (s *SessionStore) IsActive(ctx context.Context, appID uuid.UUID, userID int64, token string) (bool, error) {
	ok, err := s.cache.HasMember(ctx, sessionKey(appID, userID), token)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// Rotate reemplaza oldToken por newToken en una sola operación atómica.
// Si oldToken no está vigente retorna ErrSessionNotFound y newToken no se activa.
func (s *SessionStore) Rotate(ctx context.Context, appID uuid.UUID, userID int64, oldToken, newToken string) error {
	err := s.cache.SwapMember(ctx, sessionKey(appID, userID), oldToken, newToken, s.now().Add(s.ttl))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrNotFound):
		return ErrSessionNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// Revoke quita token; quitar un miembro ausente no es error.
func (s *SessionStore) Revoke(ctx context.Context, appID uuid.UUID, userID int64, token string) error {
	if _, err := s.cache.RemoveMember(ctx, sessionKey(appID, userID), token); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
