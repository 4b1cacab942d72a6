package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscord emula el token endpoint y /users/@me.
type fakeDiscord struct {
	srv          *httptest.Server
	tokenCalls   atomic.Int32
	profileCalls atomic.Int32
	profileBody  atomic.Pointer[string]
}

func (f *fakeDiscord) setProfile(body string) { f.profileBody.Store(&body) }

func newFakeDiscord(t *testing.T) *fakeDiscord {
	t.Helper()
	f := &fakeDiscord{}
	f.setProfile(`{"id":"80351110224678912","username":"nelly","avatar":"8342729096ea3675442027381ff50dfe"}`)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" || r.PostForm.Get("client_secret") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "token_type": "Bearer", "expires_in": 604800})
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		f.profileCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(*f.profileBody.Load()))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestProvider(t *testing.T, f *fakeDiscord) (*Provider, *flowstate.PendingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	pending := flowstate.NewPendingStore(cache.NewRedisWithClient(rdb, "", nil), 30*time.Second)
	p := New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://broker.example.com/auth/discord/redirect",
		AuthURL:      f.srv.URL + "/oauth2/authorize",
		TokenURL:     f.srv.URL + "/api/oauth2/token",
		ProfileURL:   f.srv.URL + "/api/users/@me",
		HTTPClient:   f.srv.Client(),
	}, pending)
	return p, pending, mr
}

func startFlow(t *testing.T, p *Provider, appID uuid.UUID) string {
	t.Helper()
	raw, err := p.AuthorizeURL(context.Background(), appID, "https://ex.com/cb")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "identify", u.Query().Get("scope"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "https://broker.example.com/auth/discord/redirect", u.Query().Get("redirect_uri"))
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestAuthorizeURL_FreshStateEachTime(t *testing.T) {
	f := newFakeDiscord(t)
	p, pending, _ := newTestProvider(t, f)
	appID := uuid.New()

	s1 := startFlow(t, p, appID)
	s2 := startFlow(t, p, appID)
	assert.NotEqual(t, s1, s2)

	flow, err := pending.Peek(context.Background(), s1)
	require.NoError(t, err)
	assert.Equal(t, appID, flow.AppID)
	assert.Equal(t, "https://ex.com/cb", flow.RedirectURI)
}

func TestComplete_Success(t *testing.T) {
	f := newFakeDiscord(t)
	p, pending, _ := newTestProvider(t, f)
	appID := uuid.New()
	state := startFlow(t, p, appID)

	c, err := p.Complete(context.Background(), url.Values{"code": {"good-code"}, "state": {state}})
	require.NoError(t, err)
	assert.Equal(t, appID, c.AppID)
	assert.Equal(t, "https://ex.com/cb", c.RedirectURI)
	assert.Equal(t, "80351110224678912", *c.Account.ID)
	assert.Equal(t, "nelly", *c.Account.Username)
	assert.Equal(t, "8342729096ea3675442027381ff50dfe", *c.Account.Avatar)

	// el state quedó consumido
	_, err = pending.Peek(context.Background(), state)
	assert.ErrorIs(t, err, flowstate.ErrFlowStateMissing)

	_, err = p.Complete(context.Background(), url.Values{"code": {"good-code"}, "state": {state}})
	assert.ErrorIs(t, err, flowstate.ErrFlowStateMissing)
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestComplete_UnknownStateSkipsProvider(t *testing.T) {
	f := newFakeDiscord(t)
	p, _, _ := newTestProvider(t, f)

	_, err := p.Complete(context.Background(), url.Values{"code": {"good-code"}, "state": {"nope"}})
	assert.ErrorIs(t, err, flowstate.ErrFlowStateMissing)
	assert.Zero(t, f.tokenCalls.Load())
}

func TestComplete_MissingParams(t *testing.T) {
	f := newFakeDiscord(t)
	p, _, _ := newTestProvider(t, f)
	state := startFlow(t, p, uuid.New())

	_, err := p.Complete(context.Background(), url.Values{"code": {"good-code"}})
	assert.ErrorIs(t, err, providers.ErrInvalidCallback)

	_, err = p.Complete(context.Background(), url.Values{"error": {"access_denied"}, "state": {state}})
	assert.ErrorIs(t, err, providers.ErrInvalidCallback)
}

func TestComplete_ExchangeFailureKeepsState(t *testing.T) {
	f := newFakeDiscord(t)
	p, pending, _ := newTestProvider(t, f)
	state := startFlow(t, p, uuid.New())

	_, err := p.Complete(context.Background(), url.Values{"code": {"bad-code"}, "state": {state}})
	assert.ErrorIs(t, err, providers.ErrExchangeFailed)

	_, err = pending.Peek(context.Background(), state)
	assert.NoError(t, err)
}

func TestComplete_ProfileFailure(t *testing.T) {
	f := newFakeDiscord(t)
	p, pending, _ := newTestProvider(t, f)

	for _, body := range []string{`not json`, `{"username":"x"}`} {
		f.setProfile(body)
		state := startFlow(t, p, uuid.New())
		_, err := p.Complete(context.Background(), url.Values{"code": {"good-code"}, "state": {state}})
		assert.ErrorIs(t, err, providers.ErrProfileFailed, body)

		_, err = pending.Peek(context.Background(), state)
		assert.NoError(t, err, "profile failure must not consume the state")
	}
}

func TestComplete_StateExpires(t *testing.T) {
	f := newFakeDiscord(t)
	p, _, mr := newTestProvider(t, f)
	state := startFlow(t, p, uuid.New())

	mr.FastForward(31 * time.Second)
	_, err := p.Complete(context.Background(), url.Values{"code": {"good-code"}, "state": {state}})
	assert.ErrorIs(t, err, flowstate.ErrFlowStateMissing)
}
