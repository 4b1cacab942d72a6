package helpers

import (
	"net/http"
	"strings"
	"time"
)

// Nombres de cookie que leen las apps cliente.
const (
	RefreshCookieName = "refresh"
	AccessCookieName  = "access"
)

// CookiePolicy atributos comunes de las cookies de sesión. En prod Secure va
// en true y Domain es el dominio base compartido con las apps; en dev ambos
// quedan vacíos.
type CookiePolicy struct {
	Domain   string
	Secure   bool
	SameSite string
}

func ParseSameSite(s string) http.SameSite {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func BuildCookie(name, value string, p CookiePolicy, httpOnly bool, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   p.Secure,
		SameSite: ParseSameSite(p.SameSite),
	}
	if strings.TrimSpace(p.Domain) != "" {
		ck.Domain = p.Domain
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func BuildDeletionCookie(name string, p CookiePolicy, httpOnly bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   p.Secure,
		SameSite: ParseSameSite(p.SameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if strings.TrimSpace(p.Domain) != "" {
		ck.Domain = p.Domain
	}
	return ck
}

// SetSessionCookies escribe refresh (HttpOnly) y access (legible por JS).
func SetSessionCookies(w http.ResponseWriter, p CookiePolicy, access string, accessTTL time.Duration, refresh string, refreshTTL time.Duration) {
	http.SetCookie(w, BuildCookie(RefreshCookieName, refresh, p, true, refreshTTL))
	http.SetCookie(w, BuildCookie(AccessCookieName, access, p, false, accessTTL))
}

// ClearSessionCookies expira ambas cookies.
func ClearSessionCookies(w http.ResponseWriter, p CookiePolicy) {
	http.SetCookie(w, BuildDeletionCookie(RefreshCookieName, p, true))
	http.SetCookie(w, BuildDeletionCookie(AccessCookieName, p, false))
}
