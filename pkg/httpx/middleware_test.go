package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func authAs(p httpx.Principal, err error) httpx.Authenticator {
	return httpx.AuthenticatorFunc(func(http.ResponseWriter, *http.Request) (httpx.Principal, error) {
		return p, err
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := httpx.PrincipalFromContext(r.Context())
		require.True(t, ok)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": p.UserID, "role": p.Role})
	})

	t.Run("injects principal", func(t *testing.T) {
		t.Parallel()
		h := httpx.AuthnMiddleware(authAs(httpx.Principal{UserID: "42", Role: "USER"}, nil), unauthorized)(echo)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"id":"42","role":"USER"}`, rec.Body.String())
	})

	t.Run("rejects failures", func(t *testing.T) {
		t.Parallel()
		h := httpx.AuthnMiddleware(authAs(httpx.Principal{}, errors.New("no credentials")), unauthorized)(echo)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		roles []string
		p     *httpx.Principal
		want  int
	}{
		{"admin passes default guard", nil, &httpx.Principal{UserID: "1", Role: "ADMIN"}, http.StatusOK},
		{"user blocked by default guard", nil, &httpx.Principal{UserID: "1", Role: "USER"}, http.StatusForbidden},
		{"user allowed when listed", []string{"USER", "ADMIN"}, &httpx.Principal{UserID: "1", Role: "USER"}, http.StatusOK},
		{"anonymous", nil, nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.p != nil {
				req = req.WithContext(httpx.ContextWithPrincipal(req.Context(), *tt.p))
			}
			rec := httptest.NewRecorder()
			httpx.RequireRole(tt.roles...)(okHandler).ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := httpx.CORS([]string{"https://app.example.com", " "})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// No origins configured: pass-through.
	passthrough := httpx.CORS(nil)(okHandler)
	rec = httptest.NewRecorder()
	passthrough.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Code string `json:"code"`
	}

	decode := func(s string) (body, error) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(s))
		err := httpx.DecodeJSON(httptest.NewRecorder(), req, &b)
		return b, err
	}

	b, err := decode(`{"code":"abc"}`)
	require.NoError(t, err)
	require.Equal(t, "abc", b.Code)

	_, err = decode(``)
	require.Error(t, err)
	_, err = decode(`{"code":"abc","extra":1}`)
	require.Error(t, err)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpx.WriteError(rec, http.StatusBadRequest, "Bad Request", "invalid or expired code")

	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var got httpx.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, httpx.ErrorBody{StatusCode: 400, Error: "Bad Request", Message: "invalid or expired code"}, got)
}
