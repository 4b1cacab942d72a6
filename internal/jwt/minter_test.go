package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/dropDatabas3/hellobroker/internal/store/memory"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

type fixture struct {
	store *memory.Store
	box   *secretbox.Box
	keys  *KeySource
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := secretbox.GenerateKey()
	require.NoError(t, err)
	box, err := secretbox.New(key)
	require.NoError(t, err)
	st := memory.New()
	return &fixture{
		store: st,
		box:   box,
		keys:  NewKeySource(st.Apps(), box, time.Minute),
		now:   time.Now(),
	}
}

// createApp registra una app con el par dado (o uno Ed25519 nuevo si privPEM == "").
func (f *fixture) createApp(t *testing.T, name, privPEM, pubPEM string) uuid.UUID {
	t.Helper()
	if privPEM == "" {
		var err error
		privPEM, pubPEM, err = GenerateEd25519PEM()
		require.NoError(t, err)
	}
	id := uuid.New()
	sealed, err := f.box.Seal(id.String(), privPEM)
	require.NoError(t, err)
	app, err := f.store.Apps().Create(context.Background(), repository.CreateAppInput{
		ID: id, Name: name, PublicKeyPEM: pubPEM, PrivateKeySealed: sealed,
	})
	require.NoError(t, err)
	return app.ID
}

func (f *fixture) minter() *Minter {
	return NewMinter(f.keys, Config{
		AccessTTL:  300 * time.Second,
		RefreshTTL: 259200 * time.Second,
		Now:        func() time.Time { return f.now },
	})
}

func testUser(appID uuid.UUID) *repository.User {
	return &repository.User{
		AppID:   appID,
		UserID:  7,
		Discord: repository.Account{ID: strp("123"), Username: strp("neo"), Avatar: strp("abc")},
	}
}

func TestMintAndVerify_RoundTrip(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "MAIN", "", "")
	m := f.minter()
	ctx := context.Background()

	access, err := m.MintAccess(ctx, testUser(appID))
	require.NoError(t, err)
	assert.Equal(t, f.now.UTC().Add(300*time.Second).Unix(), access.ExpiresAt.Unix())
	assert.Len(t, strings.Split(access.Value, "."), 3)

	claims, err := m.VerifyForApp(ctx, access.Value, appID)
	require.NoError(t, err)
	assert.Equal(t, appID.String(), claims.AppID)
	assert.Equal(t, int64(7), claims.User.UserID)
	assert.Equal(t, "neo", *claims.User.Discord.Username)
	assert.Nil(t, claims.User.Steam.ID)
	assert.NotEmpty(t, claims.ID)

	refresh, err := m.MintRefresh(ctx, testUser(appID))
	require.NoError(t, err)
	assert.Equal(t, f.now.UTC().Add(259200*time.Second).Unix(), refresh.ExpiresAt.Unix())
	assert.NotEqual(t, access.Value, refresh.Value)
}

func TestMint_SameSecondTokensDiffer(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "MAIN", "", "")
	m := f.minter()

	a, err := m.MintRefresh(context.Background(), testUser(appID))
	require.NoError(t, err)
	b, err := m.MintRefresh(context.Background(), testUser(appID))
	require.NoError(t, err)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestVerify_CrossTenantFails(t *testing.T) {
	f := newFixture(t)
	appA := f.createApp(t, "A", "", "")
	appB := f.createApp(t, "B", "", "")
	m := f.minter()
	ctx := context.Background()

	tk, err := m.MintAccess(ctx, testUser(appA))
	require.NoError(t, err)

	_, err = m.VerifyForApp(ctx, tk.Value, appB)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "MAIN", "", "")
	m := f.minter()
	ctx := context.Background()

	tk, err := m.MintAccess(ctx, testUser(appID))
	require.NoError(t, err)

	f.now = f.now.Add(301 * time.Second)
	_, err = m.VerifyForApp(ctx, tk.Value, appID)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Garbage(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "MAIN", "", "")
	m := f.minter()

	for _, tk := range []string{"", "abc", "a.b.c"} {
		_, err := m.VerifyForApp(context.Background(), tk, appID)
		assert.ErrorIs(t, err, ErrTokenInvalid, tk)
	}
}

func TestVerify_RejectsAlgSwitch(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "MAIN", "", "")
	m := f.minter()

	// HS256 firmado con bytes arbitrarios no debe pasar contra una pública Ed25519
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, Claims{
		AppID:            appID.String(),
		RegisteredClaims: jwtv5.RegisteredClaims{ExpiresAt: jwtv5.NewNumericDate(f.now.Add(time.Hour))},
	})
	s, err := tk.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.VerifyForApp(context.Background(), s, appID)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRSAKeys(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))

	f := newFixture(t)
	appID := f.createApp(t, "RSA", privPEM, pubPEM)
	m := f.minter()
	ctx := context.Background()

	tk, err := m.MintAccess(ctx, testUser(appID))
	require.NoError(t, err)

	parsed, _, err := jwtv5.NewParser().ParseUnverified(tk.Value, &Claims{})
	require.NoError(t, err)
	assert.Equal(t, "RS256", parsed.Method.Alg())
	assert.Equal(t, appID.String(), parsed.Header["kid"])

	_, err = m.VerifyForApp(ctx, tk.Value, appID)
	require.NoError(t, err)
}

func TestKeySource_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.keys.Keys(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUnknownApp)

	// sellado con otro scope: no abre
	privPEM, pubPEM, err := GenerateEd25519PEM()
	require.NoError(t, err)
	sealed, err := f.box.Seal("other", privPEM)
	require.NoError(t, err)
	app, err := f.store.Apps().Create(ctx, repository.CreateAppInput{Name: "BAD", PublicKeyPEM: pubPEM, PrivateKeySealed: sealed})
	require.NoError(t, err)

	_, err = f.keys.Keys(ctx, app.ID)
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestKeySource_CachesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "MAIN", "", "")
	ctx := context.Background()

	k1, err := f.keys.Keys(ctx, appID)
	require.NoError(t, err)
	k2, err := f.keys.Keys(ctx, appID)
	require.NoError(t, err)
	assert.Same(t, k1, k2)

	f.keys.Invalidate(appID)
	k3, err := f.keys.Keys(ctx, appID)
	require.NoError(t, err)
	assert.NotSame(t, k1, k3)
}

func TestParseKeys_Invalid(t *testing.T) {
	_, err := ParsePrivateKeyPEM("nope")
	assert.Error(t, err)
	_, err = ParsePublicKeyPEM("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n")
	assert.Error(t, err)
}

// ctxAppRepo falla como lo haría pgx si el contexto ya no sirve.
type ctxAppRepo struct {
	repository.AppRepository
}

func (r ctxAppRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.TenantApp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.AppRepository.GetByID(ctx, id)
}

func TestKeySource_LoadSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t)
	appID := f.createApp(t, "A1", "", "")
	ks := NewKeySource(ctxAppRepo{f.store.Apps()}, f.box, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	keys, err := ks.Keys(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, appID, keys.AppID)
}
