package flowstate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
	mr  *miniredis.Miniredis
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	c.mr.FastForward(d)
}

func newTestCache(t *testing.T) (cache.Client, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	clk := &fakeClock{now: time.Now(), mr: mr}
	return cache.NewRedisWithClient(rdb, "", clk.Now), clk
}

func TestPendingStore_PeekTakeAndExpiry(t *testing.T) {
	c, clk := newTestCache(t)
	s := NewPendingStore(c, 30*time.Second)
	ctx := context.Background()
	app := uuid.New()

	require.NoError(t, s.Put(ctx, "st1", PendingFlow{AppID: app, RedirectURI: "https://ex.com/cb?x=1;y"}))

	f, err := s.Peek(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, app, f.AppID)
	assert.Equal(t, "https://ex.com/cb?x=1;y", f.RedirectURI)

	f, err = s.Take(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, app, f.AppID)

	_, err = s.Take(ctx, "st1")
	assert.ErrorIs(t, err, ErrFlowStateMissing)

	require.NoError(t, s.Put(ctx, "st2", PendingFlow{AppID: app, RedirectURI: "https://ex.com/cb"}))
	clk.Advance(31 * time.Second)
	_, err = s.Peek(ctx, "st2")
	assert.ErrorIs(t, err, ErrFlowStateMissing)
}

func TestCodeStore_SingleUse(t *testing.T) {
	c, _ := newTestCache(t)
	s := NewCodeStore(c, 30*time.Second)
	ctx := context.Background()
	app := uuid.New()

	code, err := s.Issue(ctx, app, "discord:42")
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)

	ref, err := s.Redeem(ctx, app, code)
	require.NoError(t, err)
	assert.Equal(t, "discord:42", ref)

	_, err = s.Redeem(ctx, app, code)
	assert.ErrorIs(t, err, ErrCodeMissing)
}

func TestCodeStore_ScopedPerApp(t *testing.T) {
	c, _ := newTestCache(t)
	s := NewCodeStore(c, 30*time.Second)
	ctx := context.Background()

	code, err := s.Issue(ctx, uuid.New(), "steam:7")
	require.NoError(t, err)

	_, err = s.Redeem(ctx, uuid.New(), code)
	assert.ErrorIs(t, err, ErrCodeMissing)
}

func TestCodeStore_Expiry(t *testing.T) {
	c, clk := newTestCache(t)
	s := NewCodeStore(c, 30*time.Second)
	ctx := context.Background()
	app := uuid.New()

	code, err := s.Issue(ctx, app, "discord:42")
	require.NoError(t, err)
	clk.Advance(31 * time.Second)

	_, err = s.Redeem(ctx, app, code)
	assert.ErrorIs(t, err, ErrCodeMissing)
}

func TestCodeStore_ConcurrentRedeem(t *testing.T) {
	c, _ := newTestCache(t)
	s := NewCodeStore(c, 30*time.Second)
	ctx := context.Background()
	app := uuid.New()

	code, err := s.Issue(ctx, app, "discord:42")
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Redeem(ctx, app, code); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestSessionStore_RotateRevoke(t *testing.T) {
	c, clk := newTestCache(t)
	s := NewSessionStore(c, 72*time.Hour).WithClock(clk.Now)
	ctx := context.Background()
	app := uuid.New()

	require.NoError(t, s.Activate(ctx, app, 1, "r1"))
	ok, err := s.IsActive(ctx, app, 1, "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Rotate(ctx, app, 1, "r1", "r2"))
	ok, _ = s.IsActive(ctx, app, 1, "r1")
	assert.False(t, ok)
	ok, _ = s.IsActive(ctx, app, 1, "r2")
	assert.True(t, ok)

	// el predecesor no vuelve a rotar
	err = s.Rotate(ctx, app, 1, "r1", "r3")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	ok, _ = s.IsActive(ctx, app, 1, "r3")
	assert.False(t, ok)

	require.NoError(t, s.Revoke(ctx, app, 1, "r2"))
	require.NoError(t, s.Revoke(ctx, app, 1, "r2"))
	ok, _ = s.IsActive(ctx, app, 1, "r2")
	assert.False(t, ok)
}

func TestSessionStore_MembersExpireIndependently(t *testing.T) {
	c, clk := newTestCache(t)
	s := NewSessionStore(c, 72*time.Hour).WithClock(clk.Now)
	ctx := context.Background()
	app := uuid.New()

	require.NoError(t, s.Activate(ctx, app, 9, "laptop"))
	clk.Advance(48 * time.Hour)
	require.NoError(t, s.Activate(ctx, app, 9, "phone"))
	clk.Advance(25 * time.Hour)

	ok, _ := s.IsActive(ctx, app, 9, "laptop")
	assert.False(t, ok)
	ok, _ = s.IsActive(ctx, app, 9, "phone")
	assert.True(t, ok)

	assert.ErrorIs(t, s.Rotate(ctx, app, 9, "laptop", "x"), ErrSessionNotFound)
}

func TestSessionStore_ScopedPerUser(t *testing.T) {
	c, _ := newTestCache(t)
	s := NewSessionStore(c, time.Hour)
	ctx := context.Background()
	app := uuid.New()

	require.NoError(t, s.Activate(ctx, app, 1, "tok"))
	ok, _ := s.IsActive(ctx, app, 2, "tok")
	assert.False(t, ok)
	ok, _ = s.IsActive(ctx, uuid.New(), 1, "tok")
	assert.False(t, ok)
}
