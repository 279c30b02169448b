package domain

import "time"

type User struct {
	ID           string // external id; numeric string for Telegram users
	Username     string // optional, unique when set
	PasswordHash string // argon2 encoded (bcrypt accepted for legacy rows)
	Role         Role
	APIKey       string // UUID, unique

	FirstName             string
	LastName              string
	LanguageCode          string
	PhotoURL              string
	IsPremium             bool
	IsBot                 bool
	AddedToAttachmentMenu bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the mutable, user-visible part of a User.
type Profile struct {
	Username              string
	FirstName             string
	LastName              string
	LanguageCode          string
	PhotoURL              string
	IsPremium             bool
	IsBot                 bool
	AddedToAttachmentMenu bool
}

func (u User) Profile() Profile {
	return Profile{
		Username:              u.Username,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		LanguageCode:          u.LanguageCode,
		PhotoURL:              u.PhotoURL,
		IsPremium:             u.IsPremium,
		IsBot:                 u.IsBot,
		AddedToAttachmentMenu: u.AddedToAttachmentMenu,
	}
}

// WithProfile returns a copy of u with the profile fields replaced.
func (u User) WithProfile(p Profile) User {
	u.Username = p.Username
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.LanguageCode = p.LanguageCode
	u.PhotoURL = p.PhotoURL
	u.IsPremium = p.IsPremium
	u.IsBot = p.IsBot
	u.AddedToAttachmentMenu = p.AddedToAttachmentMenu
	return u
}
