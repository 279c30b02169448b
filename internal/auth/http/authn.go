package http

import (
	"net/http"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
)

// SessionAuthenticator resolves callers from, in order: the AccessToken
// cookie, a transparent refresh with the RefreshToken cookie (setting the
// rotated cookies on the response), and the apiKey header.
type SessionAuthenticator struct {
	Sessions *service.SessionService
	Users    *service.UserService
	Cookies  CookieConfig
}

func (a *SessionAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request) (httpx.Principal, error) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if access := cookieValue(r, authsdk.AccessTokenCookie); access != "" {
		u, err := a.Sessions.AuthenticateAccess(ctx, access)
		if err == nil {
			return principal(u, "cookie"), nil
		}
		log.Debug("access cookie rejected", "err", err)
	}

	if refresh := cookieValue(r, authsdk.RefreshTokenCookie); refresh != "" {
		u, sess, err := a.Sessions.Refresh(ctx, refresh)
		if err == nil {
			a.Cookies.setSessionCookies(w, sess)
			// Later handlers read the refresh token from the request.
			replaceCookie(r, authsdk.RefreshTokenCookie, sess.RefreshToken)
			log.Info("session refreshed transparently", "user_id", u.ID)
			return principal(u, "refresh"), nil
		}
		log.Debug("refresh cookie rejected", "err", err)
	}

	if key := r.Header.Get(authsdk.APIKeyHeader); key != "" {
		u, err := a.Users.GetUserByAPIKey(ctx, key)
		if err != nil {
			return httpx.Principal{}, err
		}
		return principal(u, "api_key"), nil
	}

	return httpx.Principal{}, service.Translate(service.ErrInvalidToken)
}

func principal(u domain.User, method string) httpx.Principal {
	return httpx.Principal{UserID: u.ID, Role: u.Role.String(), Method: method}
}

func replaceCookie(r *http.Request, name, value string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, ck := range cookies {
		if ck.Name == name {
			ck.Value = value
		}
		r.AddCookie(ck)
	}
}
