package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

type failingUsers struct{ repository.UserRepository }

func (failingUsers) FindByAccount(context.Context, uuid.UUID, repository.Provider, string) (*repository.User, error) {
	return nil, errors.New("connection refused")
}

func TestResolveOrCreate_CreatesOnceThenFinds(t *testing.T) {
	r := NewResolver(memory.New().Users())
	ctx := context.Background()
	app := uuid.New()
	acct := repository.Account{ID: strp("123"), Username: strp("neo"), Avatar: strp("abc")}

	u1, err := r.ResolveOrCreate(ctx, app, repository.ProviderDiscord, acct)
	require.NoError(t, err)
	assert.True(t, u1.Discord.Linked())
	assert.False(t, u1.Steam.Linked())
	assert.False(t, u1.Admin)

	u2, err := r.ResolveOrCreate(ctx, app, repository.ProviderDiscord, acct)
	require.NoError(t, err)
	assert.Equal(t, u1.UserID, u2.UserID)

	// mismo id externo en otro proveedor: usuario distinto (sin merge)
	u3, err := r.ResolveOrCreate(ctx, app, repository.ProviderSteam, acct)
	require.NoError(t, err)
	assert.NotEqual(t, u1.UserID, u3.UserID)
}

func TestResolveOrCreate_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewResolver(memory.New().Users()).ResolveOrCreate(ctx, uuid.New(), repository.ProviderDiscord, repository.Account{})
	assert.ErrorIs(t, err, ErrAccountUnlinked)

	_, err = NewResolver(failingUsers{}).ResolveOrCreate(ctx, uuid.New(), repository.ProviderDiscord, repository.Account{ID: strp("1")})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestLookup(t *testing.T) {
	r := NewResolver(memory.New().Users())
	ctx := context.Background()
	app := uuid.New()

	_, err := r.Lookup(ctx, app, repository.ProviderSteam, "76561198000000000")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = r.ResolveOrCreate(ctx, app, repository.ProviderSteam, repository.Account{ID: strp("76561198000000000")})
	require.NoError(t, err)
	u, err := r.Lookup(ctx, app, repository.ProviderSteam, "76561198000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.UserID)
}
