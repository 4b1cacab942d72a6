package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	s := NewHealthService(Deps{DBCheck: ok, CacheCheck: ok, Providers: []string{"discord"}})

	res := s.Check(context.Background())
	assert.Equal(t, "ready", res.Status)
	assert.Equal(t, "ok", res.Components["db"].Status)
	assert.Equal(t, "ok", res.Components["cache"].Status)
}

func TestCheck_DisabledChecksAreNotFailures(t *testing.T) {
	s := NewHealthService(Deps{Providers: []string{"steam"}})

	res := s.Check(context.Background())
	assert.Equal(t, "ready", res.Status)
	assert.Equal(t, "disabled", res.Components["db"].Status)
}

func TestCheck_Unavailable(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }
	s := NewHealthService(Deps{CacheCheck: down, Providers: []string{"discord"}})

	res := s.Check(context.Background())
	assert.Equal(t, "unavailable", res.Status)
	assert.Equal(t, "error", res.Components["cache"].Status)
	assert.Contains(t, res.Components["cache"].Message, "connection refused")

	res = NewHealthService(Deps{}).Check(context.Background())
	assert.Equal(t, "unavailable", res.Status)
}
