package http

import (
	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
)

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:                    u.ID,
		Username:              u.Username,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		LanguageCode:          u.LanguageCode,
		PhotoURL:              u.PhotoURL,
		IsPremium:             u.IsPremium,
		IsBot:                 u.IsBot,
		AddedToAttachmentMenu: u.AddedToAttachmentMenu,
		Role:                  u.Role.String(),
		APIKey:                u.APIKey,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func fromRegisterRequest(req authsdk.RegisterRequest) service.UserInput {
	return service.UserInput{
		ID:                    req.ID,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Username:              req.Username,
		Password:              req.Password,
		LanguageCode:          req.LanguageCode,
		PhotoURL:              req.PhotoURL,
		IsPremium:             req.IsPremium,
		IsBot:                 req.IsBot,
		AddedToAttachmentMenu: req.AddedToAttachmentMenu,
	}
}
