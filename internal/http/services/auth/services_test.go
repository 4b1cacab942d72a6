package auth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/bootstrap"
	"github.com/dropDatabas3/hellobroker/internal/cache"
	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	"github.com/dropDatabas3/hellobroker/internal/identity"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	"github.com/dropDatabas3/hellobroker/internal/redirect"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/dropDatabas3/hellobroker/internal/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       repository.Provider
	completion *providers.Completion
	err        error
}

func (s *stubProvider) Name() repository.Provider { return s.name }

func (s *stubProvider) AuthorizeURL(_ context.Context, appID uuid.UUID, redirectURI string) (string, error) {
	return "https://provider.test/authorize?app=" + appID.String() + "&redirect=" + url.QueryEscape(redirectURI), nil
}

func (s *stubProvider) Complete(context.Context, url.Values) (*providers.Completion, error) {
	return s.completion, s.err
}

type fixture struct {
	svc   Services
	prov  *stubProvider
	prv   bootstrap.AppProvisionConfig
	codes *flowstate.CodeStore
}

func strp(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := secretbox.GenerateKey()
	require.NoError(t, err)
	box, err := secretbox.New(key)
	require.NoError(t, err)

	st := memory.New()
	c := cache.NewMemory("")
	t.Cleanup(func() { _ = c.Close() })

	prov := &stubProvider{name: repository.ProviderDiscord}
	keys := jwtx.NewKeySource(st.Apps(), box, time.Minute)
	codes := flowstate.NewCodeStore(c, 30*time.Second)
	return &fixture{
		prov:  prov,
		prv:   bootstrap.AppProvisionConfig{Apps: st.Apps(), Box: box},
		codes: codes,
		svc: NewServices(Deps{
			Providers: providers.NewRegistry(prov),
			Policy:    redirect.NewPolicy(st.Apps()),
			Resolver:  identity.NewResolver(st.Users()),
			Codes:     codes,
			Sessions:  flowstate.NewSessionStore(c, 259200*time.Second),
			Minter: jwtx.NewMinter(keys, jwtx.Config{
				AccessTTL:  300 * time.Second,
				RefreshTTL: 259200 * time.Second,
			}),
		}),
	}
}

func (f *fixture) app(t *testing.T, redirects ...string) uuid.UUID {
	t.Helper()
	app, err := bootstrap.CreateApp(context.Background(), f.prv, "app-"+uuid.NewString()[:8], redirects...)
	require.NoError(t, err)
	return app.ID
}

// complete simula el callback del proveedor para appID y devuelve el código emitido.
func (f *fixture) complete(t *testing.T, appID uuid.UUID, redirectURI, externalID string) string {
	t.Helper()
	f.prov.completion = &providers.Completion{
		Account:     repository.Account{ID: strp(externalID), Username: strp("neo")},
		AppID:       appID,
		RedirectURI: redirectURI,
	}
	target, err := f.svc.Login.Callback(context.Background(), repository.ProviderDiscord, url.Values{})
	require.NoError(t, err)
	u, err := url.Parse(target)
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.Len(t, code, flowstate.CodeLength)
	return code
}

func TestBegin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t, "https://ex.com/cb")

	target, err := f.svc.Login.Begin(ctx, repository.ProviderDiscord, app.String(), "https://ex.com/cb")
	require.NoError(t, err)
	assert.Contains(t, target, "https://provider.test/authorize")

	_, err = f.svc.Login.Begin(ctx, repository.ProviderDiscord, app.String(), "https://evil.com/cb")
	assert.ErrorIs(t, err, redirect.ErrNotAllowed)

	_, err = f.svc.Login.Begin(ctx, repository.ProviderDiscord, "not-a-uuid", "https://ex.com/cb")
	assert.ErrorIs(t, err, ErrInvalidApp)

	_, err = f.svc.Login.Begin(ctx, repository.ProviderDiscord, app.String(), " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.Login.Begin(ctx, repository.ProviderSteam, app.String(), "https://ex.com/cb")
	assert.ErrorIs(t, err, providers.ErrUnknownProvider)

	// redirect de otra app
	other := f.app(t, "https://other.com/cb")
	_, err = f.svc.Login.Begin(ctx, repository.ProviderDiscord, other.String(), "https://ex.com/cb")
	assert.ErrorIs(t, err, redirect.ErrNotAllowed)
}

func TestCallback_AppendsCodeToRedirect(t *testing.T) {
	f := newFixture(t)
	app := f.app(t, "https://ex.com/*")
	f.prov.completion = &providers.Completion{
		Account:     repository.Account{ID: strp("42")},
		AppID:       app,
		RedirectURI: "https://ex.com/cb?next=%2Fhome&code=attacker",
	}

	target, err := f.svc.Login.Callback(context.Background(), repository.ProviderDiscord, url.Values{})
	require.NoError(t, err)

	u, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "ex.com", u.Host)
	assert.Equal(t, "/cb", u.Path)
	assert.Equal(t, "/home", u.Query().Get("next"))
	assert.Len(t, u.Query()["code"], 1)
	assert.NotEqual(t, "attacker", u.Query().Get("code"))
}

func TestCallback_RevalidatesRedirect(t *testing.T) {
	f := newFixture(t)
	app := f.app(t, "https://ex.com/cb")
	f.prov.completion = &providers.Completion{
		Account:     repository.Account{ID: strp("42")},
		AppID:       app,
		RedirectURI: "https://evil.com/cb",
	}

	_, err := f.svc.Login.Callback(context.Background(), repository.ProviderDiscord, url.Values{})
	assert.ErrorIs(t, err, redirect.ErrNotAllowed)
}

func TestCallback_ProviderError(t *testing.T) {
	f := newFixture(t)
	f.prov.err = flowstate.ErrFlowStateMissing

	_, err := f.svc.Login.Callback(context.Background(), repository.ProviderDiscord, url.Values{})
	assert.ErrorIs(t, err, flowstate.ErrFlowStateMissing)
}

func TestExchange_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t, "https://ex.com/cb")
	code := f.complete(t, app, "https://ex.com/cb", "1234")

	pair, err := f.svc.Token.Exchange(ctx, app.String(), code)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 300*time.Second, pair.AccessTTL)
	assert.Equal(t, 259200*time.Second, pair.RefreshTTL)

	_, err = f.svc.Token.Exchange(ctx, app.String(), code)
	assert.ErrorIs(t, err, flowstate.ErrCodeMissing)
}

func TestExchange_FailedExchangeStillConsumesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t, "https://ex.com/cb")
	// código válido que apunta a una cuenta sin usuario: falla después del canje
	code, err := f.codes.Issue(ctx, app, "discord:999")
	require.NoError(t, err)

	_, err = f.svc.Token.Exchange(ctx, app.String(), code)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	_, err = f.svc.Token.Exchange(ctx, app.String(), code)
	assert.ErrorIs(t, err, flowstate.ErrCodeMissing)
}

func TestExchange_CodeIsScopedToApp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.app(t, "https://ex.com/cb")
	a2 := f.app(t, "https://ex.com/cb")
	code := f.complete(t, a1, "https://ex.com/cb", "1234")

	_, err := f.svc.Token.Exchange(ctx, a2.String(), code)
	assert.ErrorIs(t, err, flowstate.ErrCodeMissing)

	_, err = f.svc.Token.Exchange(ctx, a1.String(), code)
	assert.NoError(t, err)
}

func TestExchange_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t)

	_, err := f.svc.Token.Exchange(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrInvalidApp)

	_, err = f.svc.Token.Exchange(ctx, app.String(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSameAccountResolvesSameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t, "https://ex.com/cb")

	p1, err := f.svc.Token.Exchange(ctx, app.String(), f.complete(t, app, "https://ex.com/cb", "77"))
	require.NoError(t, err)
	p2, err := f.svc.Token.Exchange(ctx, app.String(), f.complete(t, app, "https://ex.com/cb", "77"))
	require.NoError(t, err)
	assert.Equal(t, p1.UserID, p2.UserID)
}

func TestRefresh_RotatesAndInvalidatesPredecessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t, "https://ex.com/cb")
	pair, err := f.svc.Token.Exchange(ctx, app.String(), f.complete(t, app, "https://ex.com/cb", "1"))
	require.NoError(t, err)

	next, err := f.svc.Session.Refresh(ctx, app.String(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.Equal(t, pair.UserID, next.UserID)

	_, err = f.svc.Session.Refresh(ctx, app.String(), pair.RefreshToken)
	assert.ErrorIs(t, err, flowstate.ErrSessionNotFound)

	_, err = f.svc.Session.Refresh(ctx, app.String(), next.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.app(t, "https://ex.com/cb")
	a2 := f.app(t, "https://ex.com/cb")
	pair, err := f.svc.Token.Exchange(ctx, a1.String(), f.complete(t, a1, "https://ex.com/cb", "1"))
	require.NoError(t, err)

	_, err = f.svc.Session.Refresh(ctx, a1.String(), "")
	assert.ErrorIs(t, err, ErrMissingRefresh)

	_, err = f.svc.Session.Refresh(ctx, a2.String(), pair.RefreshToken)
	assert.ErrorIs(t, err, jwtx.ErrTokenInvalid)

	_, err = f.svc.Session.Refresh(ctx, uuid.NewString(), pair.RefreshToken)
	assert.ErrorIs(t, err, jwtx.ErrUnknownApp)

	_, err = f.svc.Session.Refresh(ctx, a1.String(), "garbage")
	assert.ErrorIs(t, err, jwtx.ErrTokenInvalid)

	// el access token firma bien pero nunca fue una sesión
	_, err = f.svc.Session.Refresh(ctx, a1.String(), pair.AccessToken)
	assert.ErrorIs(t, err, flowstate.ErrSessionNotFound)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app(t, "https://ex.com/cb")
	pair, err := f.svc.Token.Exchange(ctx, app.String(), f.complete(t, app, "https://ex.com/cb", "1"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Session.Logout(ctx, app.String(), pair.RefreshToken))

	assert.ErrorIs(t, f.svc.Session.Logout(ctx, app.String(), pair.RefreshToken), flowstate.ErrSessionNotFound)

	_, err = f.svc.Session.Refresh(ctx, app.String(), pair.RefreshToken)
	assert.ErrorIs(t, err, flowstate.ErrSessionNotFound)

	assert.ErrorIs(t, f.svc.Session.Logout(ctx, app.String(), ""), ErrMissingRefresh)
}

func TestParseCodeRef(t *testing.T) {
	p, id, err := parseCodeRef("steam:76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, repository.ProviderSteam, p)
	assert.Equal(t, "76561197960287930", id)

	for _, bad := range []string{"", "discord", "discord:", "github:1"} {
		_, _, err := parseCodeRef(bad)
		assert.ErrorIs(t, err, ErrMalformedCodeRef, bad)
	}
}
