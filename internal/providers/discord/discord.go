// Package discord implementa el login OAuth 2.0 (authorization code) con Discord.
// Discord no emite ID token: el perfil se pide aparte a /users/@me.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	tokens "github.com/dropDatabas3/hellobroker/internal/security/token"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL    = "https://discord.com/oauth2/authorize"
	DefaultTokenURL   = "https://discord.com/api/oauth2/token"
	DefaultProfileURL = "https://discord.com/api/users/@me"

	// CallbackPath es la ruta pública del callback.
	CallbackPath = "/auth/discord/redirect"

	// scope mínimo: solo lectura del perfil
	scopeIdentify = "identify"
	stateBytes    = 24
	maxProfile    = 64 << 10
)

// Config del cliente OAuth de Discord. RedirectURL es el callback del broker.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	HTTPClient   *http.Client
}

// Provider adaptador de Discord. Guarda el flujo pendiente en PendingStore.
type Provider struct {
	oauth      *oauth2.Config
	profileURL string
	http       *http.Client
	pending    *flowstate.PendingStore
}

var _ providers.Provider = (*Provider)(nil)

func New(cfg Config, pending *flowstate.PendingStore) *Provider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = DefaultProfileURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scopeIdentify},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: cfg.ProfileURL,
		http:       cfg.HTTPClient,
		pending:    pending,
	}
}

func (p *Provider) Name() repository.Provider { return repository.ProviderDiscord }

// AuthorizeURL genera un state nuevo, registra el flujo pendiente y arma la URL
// de autorización.
func (p *Provider) AuthorizeURL(ctx context.Context, appID uuid.UUID, redirectURI string) (string, error) {
	state, err := tokens.GenerateOpaqueToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("discord: generate state: %w", err)
	}
	if err := p.pending.Put(ctx, state, flowstate.PendingFlow{AppID: appID, RedirectURI: redirectURI}); err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state), nil
}

// Complete procesa el callback (?code&state).
//
// El flujo pendiente se lee antes de llamar a Discord y se consume recién
// cuando el perfil está resuelto: si el canje o el perfil fallan, el state
// sigue vivo hasta su TTL. Un segundo callback con el mismo state pierde en
// el Take.
func (p *Provider) Complete(ctx context.Context, q url.Values) (*providers.Completion, error) {
	code, state := q.Get("code"), q.Get("state")
	if state == "" {
		return nil, fmt.Errorf("%w: missing state", providers.ErrInvalidCallback)
	}
	if _, err := p.pending.Peek(ctx, state); err != nil {
		return nil, err
	}
	if code == "" {
		// Discord devuelve ?error=access_denied&state=... cuando el usuario cancela
		return nil, fmt.Errorf("%w: missing code (error=%q)", providers.ErrInvalidCallback, q.Get("error"))
	}

	octx := context.WithValue(ctx, oauth2.HTTPClient, p.http)
	tok, err := p.oauth.Exchange(octx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrExchangeFailed, err)
	}

	acct, err := p.fetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	flow, err := p.pending.Take(ctx, state)
	if err != nil {
		return nil, err
	}
	return &providers.Completion{Account: *acct, AppID: flow.AppID, RedirectURI: flow.RedirectURI}, nil
}

type profile struct {
	ID       string  `json:"id"`
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (*repository.Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrProfileFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", providers.ErrProfileFailed, resp.StatusCode)
	}

	var pr profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfile)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", providers.ErrProfileFailed, err)
	}
	if pr.ID == "" {
		return nil, fmt.Errorf("%w: empty id", providers.ErrProfileFailed)
	}
	id := pr.ID
	return &repository.Account{ID: &id, Username: pr.Username, Avatar: pr.Avatar}, nil
}
