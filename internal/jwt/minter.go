package jwt

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrUnknownApp     = errors.New("jwt: unknown app")
	ErrKeyUnavailable = errors.New("jwt: signing key unavailable")
	ErrSigningFailed  = errors.New("jwt: signing failed")
	ErrTokenInvalid   = errors.New("jwt: token invalid")
)

// Claims payload de access y refresh tokens.
type Claims struct {
	User  repository.User `json:"user"`
	AppID string          `json:"app_id"`
	jwtv5.RegisteredClaims
}

// Config TTLs del minter. Now == nil usa time.Now.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Token es un JWT firmado y su vencimiento.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Minter firma y verifica tokens con el par de cada app.
type Minter struct {
	keys KeyProvider
	cfg  Config
}

func NewMinter(keys KeyProvider, cfg Config) *Minter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Minter{keys: keys, cfg: cfg}
}

// AccessTTL y RefreshTTL: vida de cada token (Max-Age de las cookies).
func (m *Minter) AccessTTL() time.Duration  { return m.cfg.AccessTTL }
func (m *Minter) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

func (m *Minter) MintAccess(ctx context.Context, user *repository.User) (Token, error) {
	return m.mint(ctx, user, m.cfg.AccessTTL)
}

func (m *Minter) MintRefresh(ctx context.Context, user *repository.User) (Token, error) {
	return m.mint(ctx, user, m.cfg.RefreshTTL)
}

func (m *Minter) mint(ctx context.Context, user *repository.User, ttl time.Duration) (Token, error) {
	keys, err := m.keys.Keys(ctx, user.AppID)
	if err != nil {
		return Token{}, err
	}
	method, err := methodFor(keys.Private)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	now := m.cfg.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		User:  *user,
		AppID: user.AppID.String(),
		RegisteredClaims: jwtv5.RegisteredClaims{
			ExpiresAt: jwtv5.NewNumericDate(exp),
			IssuedAt:  jwtv5.NewNumericDate(now),
			// jti: dos tokens del mismo segundo nunca coinciden
			ID: uuid.NewString(),
		},
	}
	tk := jwtv5.NewWithClaims(method, claims)
	tk.Header["kid"] = user.AppID.String()

	signed, err := tk.SignedString(keys.Private)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify valida firma y vencimiento con pub. No confía en el kid del header:
// el llamador pasa la pública de la app a la que el token dice pertenecer.
func (m *Minter) Verify(token string, pub crypto.PublicKey) (*Claims, error) {
	method, err := methodFor(pub)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	var claims Claims
	_, err = jwtv5.ParseWithClaims(token, &claims,
		func(*jwtv5.Token) (any, error) { return pub, nil },
		jwtv5.WithValidMethods([]string{method.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(m.cfg.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return &claims, nil
}

// VerifyForApp carga la pública de appID, verifica y exige que el claim
// app_id coincida. Un token de otra app falla por firma o por claim.
func (m *Minter) VerifyForApp(ctx context.Context, token string, appID uuid.UUID) (*Claims, error) {
	keys, err := m.keys.Keys(ctx, appID)
	if err != nil {
		return nil, err
	}
	claims, err := m.Verify(token, keys.Public)
	if err != nil {
		return nil, err
	}
	if claims.AppID != appID.String() {
		return nil, fmt.Errorf("%w: app mismatch", ErrTokenInvalid)
	}
	claims.User.AppID = appID
	return claims, nil
}
