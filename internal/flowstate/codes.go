package flowstate

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/cache"
	tokens "github.com/dropDatabas3/hellobroker/internal/security/token"
	"github.com/google/uuid"
)

// CodeLength es la longitud del código de un solo uso.
const CodeLength = 32

// CodeStore emite y canjea códigos de un solo uso por tenant app.
type CodeStore struct {
	cache cache.Client
	ttl   time.Duration
}

func NewCodeStore(c cache.Client, ttl time.Duration) *CodeStore {
	return &CodeStore{cache: c, ttl: ttl}
}

func codeKey(appID uuid.UUID, code string) string {
	return appID.String() + ":code:" + code
}

// Issue genera un código nuevo ligado a externalRef (ej: "discord:1234").
func (s *CodeStore) Issue(ctx context.Context, appID uuid.UUID, externalRef string) (string, error) {
	code, err := tokens.GenerateAlphanumeric(CodeLength)
	if err != nil {
		return "", fmt.Errorf("flowstate: generate code: %w", err)
	}
	if err := s.cache.Set(ctx, codeKey(appID, code), externalRef, s.ttl); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return code, nil
}

// Redeem canjea el código (GETDEL). Un segundo canje devuelve ErrCodeMissing.
func (s *CodeStore) Redeem(ctx context.Context, appID uuid.UUID, code string) (string, error) {
	ref, err := s.cache.Take(ctx, codeKey(appID, code))
	if err != nil {
		return "", storeErr(err, ErrCodeMissing)
	}
	return ref, nil
}
