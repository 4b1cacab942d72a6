package flowstate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/google/uuid"
)

// PendingFlow sobrevive al ida y vuelta con el proveedor.
type PendingFlow struct {
	AppID       uuid.UUID
	RedirectURI string
}

// PendingStore mapea state -> PendingFlow con TTL corto.
type PendingStore struct {
	cache cache.Client
	ttl   time.Duration
}

func NewPendingStore(c cache.Client, ttl time.Duration) *PendingStore {
	return &PendingStore{cache: c, ttl: ttl}
}

func pendingKey(state string) string { return "flow:" + state }

// valor: {app_id};{redirect_uri}
func encodePending(f PendingFlow) string { return f.AppID.String() + ";" + f.RedirectURI }

func decodePending(v string) (*PendingFlow, error) {
	app, redirect, ok := strings.Cut(v, ";")
	if !ok {
		return nil, fmt.Errorf("%w: malformed pending flow", ErrStoreUnavailable)
	}
	id, err := uuid.Parse(app)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed pending flow app id", ErrStoreUnavailable)
	}
	return &PendingFlow{AppID: id, RedirectURI: redirect}, nil
}

// Put registra el flujo pendiente para state.
func (s *PendingStore) Put(ctx context.Context, state string, f PendingFlow) error {
	if err := s.cache.Set(ctx, pendingKey(state), encodePending(f), s.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Peek lee sin consumir. Se usa para fallar rápido antes de llamar al proveedor.
func (s *PendingStore) Peek(ctx context.Context, state string) (*PendingFlow, error) {
	v, err := s.cache.Get(ctx, pendingKey(state))
	if err != nil {
		return nil, storeErr(err, ErrFlowStateMissing)
	}
	return decodePending(v)
}

// Take lee y borra atómicamente; un state solo puede completarse una vez.
func (s *PendingStore) Take(ctx context.Context, state string) (*PendingFlow, error) {
	v, err := s.cache.Take(ctx, pendingKey(state))
	if err != nil {
		return nil, storeErr(err, ErrFlowStateMissing)
	}
	return decodePending(v)
}
