package http_test

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/aussiebroadwan/patchnotes/pkg/telegram"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	resp := s.register(t, "u1", "ada")

	var user authsdk.UserResponse
	resp.decode(t, &user)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "USER", user.Role)
	require.NotEmpty(t, user.APIKey)
	require.NotContains(t, string(resp.body), "argon2id")

	access := resp.cookie(authsdk.AccessTokenCookie)
	require.NotNil(t, access)
	require.True(t, access.HttpOnly)
	require.Equal(t, "/", access.Path)
	require.NotNil(t, resp.cookie(authsdk.RefreshTokenCookie))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	dup := s.do(t, http.MethodPost, "/v1/auth/register", authsdk.RegisterRequest{ID: "u1", FirstName: "Again"}, nil)
	requireError(t, dup, http.StatusBadRequest)

	invalid := s.do(t, http.MethodPost, "/v1/auth/register", authsdk.RegisterRequest{ID: "u2"}, nil)
	requireError(t, invalid, http.StatusBadRequest)

	unknownField := s.do(t, http.MethodPost, "/v1/auth/register", map[string]any{"id": "u3", "firstName": "A", "role": "ADMIN"}, nil)
	requireError(t, unknownField, http.StatusBadRequest)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.register(t, "u1", "ada")

	ok := s.do(t, http.MethodPost, "/v1/auth/login", authsdk.LoginRequest{Username: "ada", Password: "correct horse"}, nil)
	require.Equal(t, http.StatusOK, ok.StatusCode, string(ok.body))
	ok.tokens(t)

	wrongPassword := s.do(t, http.MethodPost, "/v1/auth/login", authsdk.LoginRequest{Username: "ada", Password: "wrong horse"}, nil)
	wrongUser := s.do(t, http.MethodPost, "/v1/auth/login", authsdk.LoginRequest{Username: "nobody", Password: "correct horse"}, nil)

	// Both failures look the same.
	require.Equal(t, requireError(t, wrongPassword, http.StatusUnauthorized), requireError(t, wrongUser, http.StatusUnauthorized))

	missing := s.do(t, http.MethodPost, "/v1/auth/login", authsdk.LoginRequest{Username: "ada"}, nil)
	requireError(t, missing, http.StatusBadRequest)
}

func TestLoginRateLimited(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	var last response
	for range 6 {
		last = s.do(t, http.MethodPost, "/v1/auth/login", authsdk.LoginRequest{Username: "ada", Password: "guess-guess"}, nil)
	}
	requireError(t, last, http.StatusTooManyRequests)
	require.NotEmpty(t, last.Header.Get("Retry-After"))

	// Another username has its own bucket.
	other := s.do(t, http.MethodPost, "/v1/auth/login", authsdk.LoginRequest{Username: "grace", Password: "guess-guess"}, nil)
	requireError(t, other, http.StatusUnauthorized)
}

func TestRefreshAndLogout(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	first := s.register(t, "u1", "ada").tokens(t)
	r1 := first[1]

	rotated := s.do(t, http.MethodPost, "/v1/auth/refresh", nil, nil, r1)
	require.Equal(t, http.StatusOK, rotated.StatusCode, string(rotated.body))
	second := rotated.tokens(t)
	require.NotEqual(t, r1.Value, second[1].Value)

	replay := s.do(t, http.MethodPost, "/v1/auth/refresh", nil, nil, r1)
	requireError(t, replay, http.StatusUnauthorized)

	noCookie := s.do(t, http.MethodPost, "/v1/auth/refresh", nil, nil)
	requireError(t, noCookie, http.StatusUnauthorized)

	out := s.do(t, http.MethodPost, "/v1/auth/logout", nil, nil, second...)
	require.Equal(t, http.StatusOK, out.StatusCode, string(out.body))
	require.JSONEq(t, `{"success":true}`, string(out.body))
	for _, name := range []string{authsdk.AccessTokenCookie, authsdk.RefreshTokenCookie} {
		ck := out.cookie(name)
		require.NotNil(t, ck)
		require.Empty(t, ck.Value)
		require.Negative(t, ck.MaxAge)
	}

	afterLogout := s.do(t, http.MethodPost, "/v1/auth/refresh", nil, nil, second[1])
	requireError(t, afterLogout, http.StatusUnauthorized)

	anonymous := s.do(t, http.MethodPost, "/v1/auth/logout", nil, nil)
	requireError(t, anonymous, http.StatusUnauthorized)
}

func TestTransparentRefresh(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	tokens := s.register(t, "u1", "ada").tokens(t)
	s.clock.Advance(jwtx.DefaultAccessTokenTTL + time.Minute)

	me := s.do(t, http.MethodGet, "/v1/users/me", nil, nil, tokens...)
	require.Equal(t, http.StatusOK, me.StatusCode, string(me.body))
	rotated := me.tokens(t)
	require.NotEqual(t, tokens[1].Value, rotated[1].Value)

	// The refresh token used transparently is now revoked.
	replay := s.do(t, http.MethodPost, "/v1/auth/refresh", nil, nil, tokens[1])
	requireError(t, replay, http.StatusUnauthorized)

	// An expired access cookie plus a live refresh cookie still logs out,
	// and the handler revokes the token rotated during authentication.
	out := s.do(t, http.MethodPost, "/v1/auth/logout", nil, nil, tokens[0], rotated[1])
	require.Equal(t, http.StatusOK, out.StatusCode, string(out.body))

	stale := s.do(t, http.MethodPost, "/v1/auth/refresh", nil, nil, rotated[1])
	requireError(t, stale, http.StatusUnauthorized)
}

func TestTelegramLogin(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(s.clock.Now().Unix(), 10))
	v.Set("user", `{"id":678478970,"first_name":"Ada","username":"ada_l"}`)
	v.Set("hash", telegram.Sign(v, botToken))

	resp := s.do(t, http.MethodPost, "/v1/auth/login/telegram", nil, map[string]string{"Authorization": "tma " + v.Encode()})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.body))
	resp.tokens(t)

	var user authsdk.UserResponse
	resp.decode(t, &user)
	require.Equal(t, "678478970", user.ID)

	v.Set("user", `{"id":1,"first_name":"Mallory"}`)
	forged := s.do(t, http.MethodPost, "/v1/auth/login/telegram", nil, map[string]string{"Authorization": "tma " + v.Encode()})
	requireError(t, forged, http.StatusUnauthorized)

	malformed := s.do(t, http.MethodPost, "/v1/auth/login/telegram", nil, map[string]string{"Authorization": "Bearer x"})
	requireError(t, malformed, http.StatusBadRequest)
}
