package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
)

// Authenticator resolves the caller of a request. It may write headers (for
// example rotated cookies) but must not write a body.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(w http.ResponseWriter, r *http.Request) (Principal, error)

func (f AuthenticatorFunc) Authenticate(w http.ResponseWriter, r *http.Request) (Principal, error) {
	return f(w, r)
}

// AuthnMiddleware rejects requests the authenticator cannot resolve and
// injects the principal into the request context otherwise.
func AuthnMiddleware(a Authenticator, onFailure func(http.ResponseWriter, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			p, err := a.Authenticate(w, r)
			if err != nil {
				slogx.FromContext(ctx).Debug("authentication failed", "err", err)
				onFailure(w, err)
				return
			}

			ctx = ContextWithPrincipal(ctx, p)
			ctx = slogx.With(ctx, "user_id", p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
