package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
	"github.com/aussiebroadwan/patchnotes/pkg/telegram"
)

// TelegramService signs users in from Mini App init data.
type TelegramService struct {
	Store       store.Store
	BotToken    string
	InitDataTTL time.Duration // <= 0 disables the auth_date age check
	Now         func() time.Time
}

func (s *TelegramService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Authenticate validates an "Authorization: tma <raw>" header and returns
// the matching user, creating it or refreshing its profile atomically.
func (s *TelegramService) Authenticate(ctx context.Context, authorization string) (domain.User, error) {
	if s.BotToken == "" {
		return domain.User{}, Translate(ErrTelegramDisabled)
	}

	raw, err := telegram.ParseAuthorization(authorization)
	if err != nil {
		return domain.User{}, Translate(err)
	}

	data, err := telegram.Parse(raw)
	if err != nil {
		return domain.User{}, Translate(err)
	}
	if err := telegram.Validate(raw, s.BotToken, s.InitDataTTL, s.now()); err != nil {
		slogx.FromContext(ctx).Info("telegram init data rejected", "err", err)
		return domain.User{}, Translate(err)
	}
	if data.User == nil || data.User.ID == 0 {
		return domain.User{}, Translate(telegram.ErrUserMissing)
	}

	u, err := s.upsert(ctx, data.User)
	return u, Translate(err)
}

func (s *TelegramService) upsert(ctx context.Context, tu *telegram.User) (domain.User, error) {
	id := strconv.FormatInt(tu.ID, 10)
	profile := domain.Profile{
		Username:              tu.Username,
		FirstName:             tu.FirstName,
		LastName:              tu.LastName,
		LanguageCode:          tu.LanguageCode,
		PhotoURL:              tu.PhotoURL,
		IsPremium:             tu.IsPremium,
		IsBot:                 tu.IsBot,
		AddedToAttachmentMenu: tu.AddedToAttachmentMenu,
	}

	var out domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().GetUserByID(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Telegram does not guarantee a first name for every account
			// shape; fall back to the id so validation passes.
			first := profile.FirstName
			if first == "" {
				first = id
			}
			out, err = createUser(ctx, tx, UserInput{
				ID:                    id,
				FirstName:             first,
				LastName:              profile.LastName,
				Username:              profile.Username,
				LanguageCode:          profile.LanguageCode,
				PhotoURL:              profile.PhotoURL,
				IsPremium:             profile.IsPremium,
				IsBot:                 profile.IsBot,
				AddedToAttachmentMenu: profile.AddedToAttachmentMenu,
			})
			return err
		case err != nil:
			return err
		}

		if err := tx.Users().UpdateProfile(ctx, id, profile); err != nil {
			return err
		}
		out, err = tx.Users().GetUserByID(ctx, id)
		return err
	})
	return out, err
}
