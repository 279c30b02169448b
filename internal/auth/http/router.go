package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"

	_ "github.com/aussiebroadwan/patchnotes/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache cache.Cache

	SessionService  *service.SessionService
	QRService       *service.QRService
	TelegramService *service.TelegramService
	UserService     *service.UserService

	Cookies     CookieConfig
	CORSOrigins []string
}

func NewRouter(buildVersion string, st store.Store, c cache.Cache, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        c,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers every endpoint. Services and cookie settings must be
// set before calling it.
func (r *Router) ApplyRoutes() {
	authn := httpx.AuthnMiddleware(&SessionAuthenticator{
		Sessions: r.SessionService,
		Users:    r.UserService,
		Cookies:  r.Cookies,
	}, writeAuthnError)

	r.registerAuth(authn)
	r.registerQRCode(authn)
	r.registerUsers(authn)
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())

	r.middlewares = append(r.middlewares, httpx.CORS(r.CORSOrigins))
	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Patchnotes Authentication Service API
//	@version					0.1.0
//	@description				Cookie-based authentication: username/password, Telegram Mini App and cross-device QR login.
//	@description
//	@description				Successful logins set the AccessToken and RefreshToken cookies (HS256 JWTs).
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/patchnotes
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:3001
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						AccessToken
//
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						apiKey
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.handler == nil {
		httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
		return
	}
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerAuth(authn httpx.Middleware) {
	h := &AuthHandler{
		Sessions: r.SessionService,
		Telegram: r.TelegramService,
		Cookies:  r.Cookies,
	}

	// Credential endpoints - strict rate limit by IP
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Note: Rate limited by IP + username to slow down password guessing
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("POST /v1/auth/login/telegram",
		httpx.Chain(http.HandlerFunc(h.HandleTelegram),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerQRCode(authn httpx.Middleware) {
	h := &QRCodeHandler{
		QR:       r.QRService,
		Sessions: r.SessionService,
		Cookies:  r.Cookies,
	}

	r.Mux.Handle("POST /v1/auth/qr-code/generate",
		httpx.Chain(http.HandlerFunc(h.HandleGenerate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Status and image are polled by the waiting device - lenient
	r.Mux.Handle("GET /v1/auth/qr-code/{code}/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/auth/qr-code/{code}/image",
		httpx.Chain(http.HandlerFunc(h.HandleImage),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/qr-code/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/qr-code/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/qr-code/ws",
		httpx.Chain(NewQRCodeGateway(r.QRService, r.CORSOrigins),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers(authn httpx.Middleware) {
	h := &UsersHandler{Users: r.UserService}

	r.Mux.Handle("GET /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Administration - ADMIN role only
	r.Mux.Handle("POST /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			authn,
			httpx.RequireRole(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			authn,
			httpx.RequireRole(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
