package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
)

// CookieConfig controls the attributes of the token cookies.
type CookieConfig struct {
	Domain string // omitted when empty
	Secure bool
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if !c.Secure {
		ck.SameSite = http.SameSiteLaxMode
	}
	return ck
}

// setSessionCookies writes both token cookies.
func (c CookieConfig) setSessionCookies(w http.ResponseWriter, s domain.Session) {
	http.SetCookie(w, c.cookie(authsdk.AccessTokenCookie, s.AccessToken, s.AccessExpiresAt))
	http.SetCookie(w, c.cookie(authsdk.RefreshTokenCookie, s.RefreshToken, s.RefreshExpiresAt))
}

// clearSessionCookies expires both token cookies.
func (c CookieConfig) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{authsdk.AccessTokenCookie, authsdk.RefreshTokenCookie} {
		ck := c.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
