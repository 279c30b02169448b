package http

import (
	"net/http"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
)

type UsersHandler struct {
	Users *service.UserService
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the authenticated user, including their API key.
//	@Tags			Users
//	@Security		CookieAuth
//	@Security		APIKeyAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Not signed in"
//	@Router			/v1/users/me [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	u, err := h.Users.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleCreate godoc
//
//	@Summary		Create user
//	@Description	Creates an account with any role. Administrators only.
//	@Tags			Users
//	@Security		CookieAuth
//	@Security		APIKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CreateUserRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid input or duplicate id/username"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Not signed in"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Not an administrator"
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, err.Error()).WriteError(w)
		return
	}

	in := fromRegisterRequest(req.RegisterRequest)
	in.Role = domain.Role(req.Role)

	u, err := h.Users.CreateUser(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user created", "created_user_id", u.ID, "role", u.Role)
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleGet godoc
//
//	@Summary		Get user
//	@Description	Fetches a user by id. Administrators only.
//	@Tags			Users
//	@Security		CookieAuth
//	@Security		APIKeyAuth
//	@Produce		json
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Not signed in"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not an administrator"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Unknown user"
//	@Router			/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}
