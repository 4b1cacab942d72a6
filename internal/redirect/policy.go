// Package redirect valida el redirect_uri pedido contra el allowlist de la app.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/google/uuid"
)

var (
	// ErrNotAllowed: el URI no coincide con ninguna entrada del allowlist.
	ErrNotAllowed = errors.New("redirect: uri not allowed")
	// ErrLookupFailed: no se pudo leer el allowlist.
	ErrLookupFailed = errors.New("redirect: allowlist lookup failed")
)

// Policy consulta el allowlist de cada app.
type Policy struct {
	apps repository.AppRepository
}

func NewPolicy(apps repository.AppRepository) *Policy {
	return &Policy{apps: apps}
}

// Check valida uri para appID. Un patrón que termina en '*' es prefijo;
// cualquier otro debe coincidir exacto. El input nunca se usa como patrón.
func (p *Policy) Check(ctx context.Context, appID uuid.UUID, uri string) error {
	if !wellFormed(uri) {
		return ErrNotAllowed
	}
	entries, err := p.apps.ListRedirectURIs(ctx, appID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	for _, e := range entries {
		if Match(e.Pattern, uri) {
			return nil
		}
	}
	return ErrNotAllowed
}

// Match aplica un patrón del allowlist. Un prefijo ("https://ex.com/app/*")
// exige mismo scheme y host (con puerto) y compara solo el path.
func Match(pattern, uri string) bool {
	base, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		return pattern == uri
	}
	b, ok := parsePrefix(base)
	if !ok {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil || u.User != nil || u.Fragment != "" {
		return false
	}
	if !strings.EqualFold(u.Scheme, b.Scheme) || !strings.EqualFold(u.Host, b.Host) {
		return false
	}
	path := u.EscapedPath()
	if hasDotSegment(path) {
		return false
	}
	return strings.HasPrefix(path, b.EscapedPath())
}

// parsePrefix: origen completo + path terminado en '/', sin query.
func parsePrefix(base string) (*url.URL, bool) {
	if !wellFormed(base) {
		return nil, false
	}
	b, err := url.Parse(base)
	if err != nil || b.RawQuery != "" || b.ForceQuery || !strings.HasSuffix(b.EscapedPath(), "/") {
		return nil, false
	}
	return b, true
}

// hasDotSegment detecta "/../" para que un prefijo no se escape por el path.
func hasDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || strings.EqualFold(seg, "%2e%2e") {
			return true
		}
	}
	return false
}

// wellFormed: URL absoluta http(s), sin userinfo ni fragmento.
func wellFormed(uri string) bool {
	if uri == "" || strings.ContainsAny(uri, "\r\n") {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" || u.User != nil || u.Fragment != "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}

// ValidatePattern rechaza patrones que no podrían matchear un URI válido.
// Un prefijo debe cortar después del host: "https://ex.com/" + path + '*'.
func ValidatePattern(pattern string) error {
	base, prefix := strings.CutSuffix(pattern, "*")
	if base == "" || strings.Contains(base, "*") {
		return fmt.Errorf("redirect: invalid pattern %q", pattern)
	}
	if prefix {
		if _, ok := parsePrefix(base); !ok {
			return fmt.Errorf("redirect: invalid prefix pattern %q (needs scheme://host/path/*)", pattern)
		}
		return nil
	}
	if !wellFormed(base) {
		return fmt.Errorf("redirect: invalid pattern %q", pattern)
	}
	return nil
}
