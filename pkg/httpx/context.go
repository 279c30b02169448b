package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyRole   ctxKey = "role"
	CtxKeyMethod ctxKey = "auth_method" // "cookie", "refresh" or "api_key"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   string
	Method string
}

// ContextWithPrincipal stores the principal for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, p.UserID)
	ctx = context.WithValue(ctx, CtxKeyRole, p.Role)
	ctx = context.WithValue(ctx, CtxKeyMethod, p.Method)
	return ctx
}

// PrincipalFromContext returns the principal set by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	id, ok := ctx.Value(CtxKeyUserID).(string)
	if !ok || id == "" {
		return Principal{}, false
	}
	role, _ := ctx.Value(CtxKeyRole).(string)
	method, _ := ctx.Value(CtxKeyMethod).(string)
	return Principal{UserID: id, Role: role, Method: method}, true
}
