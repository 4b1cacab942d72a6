// Package steam implementa el login OpenID 2.0 (relying party) de Steam.
//
// No hay registro pendiente del lado del broker: el destino y la app viajan
// en el return_to como state={redirect_uri};{app_id} y Steam los devuelve
// tal cual. La aserción se confirma con un check_authentication directo
// contra Steam; no hay firma verificable localmente.
package steam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	DefaultOpenIDURL    = "https://steamcommunity.com/openid/login"
	DefaultSummariesURL = "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v0002/"

	// CallbackPath es la ruta pública del callback.
	CallbackPath = "/auth/steam/redirect"

	ClaimedIDPrefix = "https://steamcommunity.com/openid/id/"

	openIDNS         = "http://specs.openid.net/auth/2.0"
	identifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"
	maxBody          = 64 << 10
)

// Config del relying party. BaseURL es la URL pública del broker (realm).
type Config struct {
	APIKey       string
	BaseURL      string
	OpenIDURL    string
	SummariesURL string
	HTTPClient   *http.Client
}

type Provider struct {
	cfg  Config
	http *http.Client
}

var _ providers.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if cfg.OpenIDURL == "" {
		cfg.OpenIDURL = DefaultOpenIDURL
	}
	if cfg.SummariesURL == "" {
		cfg.SummariesURL = DefaultSummariesURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{cfg: cfg, http: cfg.HTTPClient}
}

func (p *Provider) Name() repository.Provider { return repository.ProviderSteam }

func (p *Provider) callbackURL() string { return p.cfg.BaseURL + CallbackPath }

// AuthorizeURL arma el checkid_setup. ctx no se usa: no hay I/O.
func (p *Provider) AuthorizeURL(_ context.Context, appID uuid.UUID, redirectURI string) (string, error) {
	returnTo := p.callbackURL() + "?" + url.Values{"state": {encodeState(redirectURI, appID)}}.Encode()

	q := url.Values{}
	q.Set("openid.ns", openIDNS)
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.return_to", returnTo)
	q.Set("openid.realm", p.cfg.BaseURL)
	q.Set("openid.identity", identifierSelect)
	q.Set("openid.claimed_id", identifierSelect)
	return p.cfg.OpenIDURL + "?" + q.Encode(), nil
}

func encodeState(redirectURI string, appID uuid.UUID) string {
	return redirectURI + ";" + appID.String()
}

// decodeState corta en el último ';' (el redirect_uri puede contener ';').
func decodeState(state string) (string, uuid.UUID, error) {
	i := strings.LastIndex(state, ";")
	if i <= 0 {
		return "", uuid.Nil, fmt.Errorf("%w: malformed state", providers.ErrInvalidCallback)
	}
	appID, err := uuid.Parse(state[i+1:])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: malformed state app id", providers.ErrInvalidCallback)
	}
	return state[:i], appID, nil
}

// Complete valida la respuesta id_res y resuelve el perfil.
func (p *Provider) Complete(ctx context.Context, q url.Values) (*providers.Completion, error) {
	state := q.Get("state")
	if state == "" {
		return nil, fmt.Errorf("%w: missing state", providers.ErrInvalidCallback)
	}
	redirectURI, appID, err := decodeState(state)
	if err != nil {
		return nil, err
	}
	if mode := q.Get("openid.mode"); mode != "id_res" {
		return nil, fmt.Errorf("%w: openid.mode=%q", providers.ErrInvalidCallback, mode)
	}
	// el state de la query tiene que ser el mismo que quedó firmado en return_to
	if err := p.checkReturnTo(q.Get("openid.return_to"), state); err != nil {
		return nil, err
	}

	steamID, err := steamIDFromClaim(q.Get("openid.claimed_id"))
	if err != nil {
		return nil, err
	}
	if err := p.verify(ctx, q); err != nil {
		return nil, err
	}

	acct, err := p.fetchSummary(ctx, steamID)
	if err != nil {
		return nil, err
	}
	return &providers.Completion{Account: *acct, AppID: appID, RedirectURI: redirectURI}, nil
}

func (p *Provider) checkReturnTo(returnTo, state string) error {
	u, err := url.Parse(returnTo)
	if err != nil {
		return fmt.Errorf("%w: bad return_to", providers.ErrInvalidCallback)
	}
	base := u.Scheme + "://" + u.Host + u.Path
	if base != p.callbackURL() || u.Query().Get("state") != state {
		return fmt.Errorf("%w: return_to mismatch", providers.ErrInvalidCallback)
	}
	return nil
}

func steamIDFromClaim(claimedID string) (string, error) {
	id, ok := strings.CutPrefix(claimedID, ClaimedIDPrefix)
	if !ok || id == "" || strings.Trim(id, "0123456789") != "" {
		return "", fmt.Errorf("%w: unexpected claimed_id %q", providers.ErrClaimVerificationFailed, claimedID)
	}
	return id, nil
}

// verify reenvía todos los campos openid.* con mode=check_authentication.
func (p *Provider) verify(ctx context.Context, q url.Values) error {
	form := url.Values{}
	for k, v := range q {
		if strings.HasPrefix(k, "openid.") {
			form[k] = v
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.OpenIDURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", providers.ErrClaimVerificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", providers.ErrClaimVerificationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read: %v", providers.ErrClaimVerificationFailed, err)
	}
	if resp.StatusCode != http.StatusOK || !isValid(string(body)) {
		return fmt.Errorf("%w: status %d", providers.ErrClaimVerificationFailed, resp.StatusCode)
	}
	return nil
}

// isValid busca la línea key-value "is_valid:true".
func isValid(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "is_valid:true" {
			return true
		}
	}
	return false
}

func (p *Provider) fetchSummary(ctx context.Context, steamID string) (*repository.Account, error) {
	u := p.cfg.SummariesURL + "?" + url.Values{"key": {p.cfg.APIKey}, "steamids": {steamID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrProfileFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		// la URL lleva la api key: no se loguea el error crudo
		return nil, fmt.Errorf("%w: summaries request failed", providers.ErrProfileFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", providers.ErrProfileFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", providers.ErrProfileFailed, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", providers.ErrProfileFailed)
	}

	player := gjson.GetBytes(body, "response.players.0")
	if !player.Exists() {
		return nil, fmt.Errorf("%w: no player for %s", providers.ErrProfileFailed, steamID)
	}
	id := player.Get("steamid").String()
	if id != steamID {
		return nil, fmt.Errorf("%w: steamid mismatch", providers.ErrProfileFailed)
	}
	name := player.Get("personaname").String()
	avatar := player.Get("avatarhash").String()
	return &repository.Account{ID: &id, Username: &name, Avatar: &avatar}, nil
}
