package http

import (
	"net/http"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
)

// AuthHandler serves the /v1/auth endpoints that issue or revoke the
// session cookies.
type AuthHandler struct {
	Sessions *service.SessionService
	Telegram *service.TelegramService
	Cookies  CookieConfig
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a USER account and signs it in. A random password is set when none is given.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserResponse	"Registered; AccessToken and RefreshToken cookies set"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid input or id already registered"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, err.Error()).WriteError(w)
		return
	}

	u, err := h.Sessions.Register(r.Context(), fromRegisterRequest(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user registered", "user_id", u.ID)
	h.issue(w, r, u, http.StatusCreated)
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies a username and password and sets the session cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.UserResponse	"AccessToken and RefreshToken cookies set"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Bad credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many attempts"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, err.Error()).WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		authsdk.NewAPIError(http.StatusBadRequest, "username and password are required").WriteError(w)
		return
	}

	u, err := h.Sessions.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.issue(w, r, u, http.StatusOK)
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotates the token pair. The presented refresh token is revoked.
//	@Tags			Auth
//	@Produce		json
//	@Param			RefreshToken	header		string					false	"Sent as the RefreshToken cookie"
//	@Success		200				{object}	authsdk.UserResponse	"New AccessToken and RefreshToken cookies set"
//	@Failure		401				{object}	authsdk.ErrorResponse	"Missing, invalid, expired or revoked refresh token"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	u, sess, err := h.Sessions.Refresh(r.Context(), cookieValue(r, authsdk.RefreshTokenCookie))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.setSessionCookies(w, sess)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the refresh token and clears both cookies.
//	@Tags			Auth
//	@Security		CookieAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SuccessResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Not signed in"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.Sessions.Logout(r.Context(), p.UserID, cookieValue(r, authsdk.RefreshTokenCookie)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.clearSessionCookies(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleTelegram godoc
//
//	@Summary		Log in with Telegram
//	@Description	Validates Mini App init data, creating or updating the user, and sets the session cookies.
//	@Tags			Auth
//	@Produce		json
//	@Param			Authorization	header		string					true	"tma <init-data>"
//	@Success		201				{object}	authsdk.UserResponse	"AccessToken and RefreshToken cookies set"
//	@Failure		400				{object}	authsdk.ErrorResponse	"Malformed header or init data"
//	@Failure		401				{object}	authsdk.ErrorResponse	"Invalid signature or expired init data"
//	@Router			/v1/auth/login/telegram [post].
func (h *AuthHandler) HandleTelegram(w http.ResponseWriter, r *http.Request) {
	u, err := h.Telegram.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.issue(w, r, u, http.StatusCreated)
}

// issue starts a session for u and writes it as cookies plus the user body.
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, u domain.User, status int) {
	sess, err := h.Sessions.Login(r.Context(), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.setSessionCookies(w, sess)
	httpx.WriteJSON(w, status, toUserResponse(u))
}
