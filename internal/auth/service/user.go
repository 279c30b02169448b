package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/cryptox"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

var ErrInvalidAPIKey = errors.New("invalid api key")

// UserInput describes a new account, from registration or an administrator.
type UserInput struct {
	ID                    string
	FirstName             string
	LastName              string
	Username              string
	Password              string // random when empty
	LanguageCode          string
	PhotoURL              string
	IsPremium             bool
	IsBot                 bool
	AddedToAttachmentMenu bool
	Role                  domain.Role // USER when empty
}

func (in UserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ID, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 128)),
		validation.Field(&in.LastName, validation.Length(0, 128)),
		validation.Field(&in.Username, validation.Length(3, 64)),
		validation.Field(&in.Password, validation.Length(8, 128)),
		validation.Field(&in.LanguageCode, validation.Length(2, 16)),
		validation.Field(&in.PhotoURL, is.URL),
		validation.Field(&in.Role, validation.In(domain.RoleAdmin, domain.RoleUser)),
	)
}

func (in UserInput) profile() domain.Profile {
	return domain.Profile{
		Username:              in.Username,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		LanguageCode:          in.LanguageCode,
		PhotoURL:              in.PhotoURL,
		IsPremium:             in.IsPremium,
		IsBot:                 in.IsBot,
		AddedToAttachmentMenu: in.AddedToAttachmentMenu,
	}
}

// createUser validates in, hashes the password and inserts the user with a
// fresh API key. It works on a Store or a Tx.
func createUser(ctx context.Context, st store.Store, in UserInput) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, err
	}

	if _, err := st.Users().GetUserByID(ctx, in.ID); err == nil {
		return domain.User{}, ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	password := in.Password
	if password == "" {
		generated, err := cryptox.GeneratePassword()
		if err != nil {
			return domain.User{}, err
		}
		password = generated
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	u := domain.User{
		ID:           in.ID,
		PasswordHash: hash,
		Role:         role,
		APIKey:       uuid.NewString(),
	}.WithProfile(in.profile())

	if err := st.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, fmt.Errorf("%w: %w", ErrUserExists, err)
		}
		return domain.User{}, err
	}

	return st.Users().GetUserByID(ctx, u.ID)
}

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id. Unknown ids are NotFound.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	return u, Translate(err)
}

// GetUserByAPIKey resolves an apiKey header. Unknown keys are Unauthorized.
func (s *UserService) GetUserByAPIKey(ctx context.Context, apiKey string) (domain.User, error) {
	if apiKey == "" {
		return domain.User{}, &Error{Kind: KindUnauthorized, Message: "invalid api key", Err: ErrInvalidAPIKey}
	}

	u, err := s.Store.Users().GetUserByAPIKey(ctx, apiKey)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, &Error{Kind: KindUnauthorized, Message: "invalid api key", Err: ErrInvalidAPIKey}
	}
	return u, Translate(err)
}

// CreateUser is the administrator path; the role may be ADMIN.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) (domain.User, error) {
	u, err := createUser(ctx, s.Store, in)
	return u, Translate(err)
}

// SeedAdmin creates id as an ADMIN, or promotes an existing account and
// resets its password when one is given.
func (s *UserService) SeedAdmin(ctx context.Context, id, username, password string) (domain.User, error) {
	var out domain.User

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			out, err = createUser(ctx, tx, UserInput{
				ID:        id,
				FirstName: username,
				Username:  username,
				Password:  password,
				Role:      domain.RoleAdmin,
			})
			return err
		}
		if err != nil {
			return err
		}

		if err := tx.Users().UpdateRole(ctx, id, domain.RoleAdmin); err != nil {
			return err
		}
		if password != "" {
			if err := (UserInput{ID: id, FirstName: "-", Password: password}).Validate(); err != nil {
				return err
			}
			hash, err := cryptox.HashPassword(password)
			if err != nil {
				return err
			}
			if err := tx.Users().UpdatePasswordHash(ctx, id, hash); err != nil {
				return err
			}
		}
		if username != "" && username != existing.Username {
			p := existing.Profile()
			p.Username = username
			if err := tx.Users().UpdateProfile(ctx, id, p); err != nil {
				return err
			}
		}

		out, err = tx.Users().GetUserByID(ctx, id)
		return err
	})

	return out, Translate(err)
}
