package service_test

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/telegram"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:test-bot-token"

func tmaHeader(authDate time.Time, user string) string {
	v := url.Values{}
	v.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	if user != "" {
		v.Set("user", user)
	}
	v.Set("hash", telegram.Sign(v, botToken))
	return "tma " + v.Encode()
}

func newTelegram(h *harness) *service.TelegramService {
	return &service.TelegramService{
		Store:       h.store,
		BotToken:    botToken,
		InitDataTTL: time.Hour,
		Now:         h.clock.Now,
	}
}

func TestTelegramAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, service.RevocationPerToken)
	tg := newTelegram(h)

	user := `{"id":678478970,"first_name":"Ada","username":"ada_l","language_code":"en","is_premium":true}`

	u, err := tg.Authenticate(ctx, tmaHeader(h.clock.Now(), user))
	require.NoError(t, err)
	require.Equal(t, "678478970", u.ID)
	require.Equal(t, "Ada", u.FirstName)
	require.Equal(t, "ada_l", u.Username)
	require.True(t, u.IsPremium)
	require.NotEmpty(t, u.APIKey)
	require.NotEmpty(t, u.PasswordHash)

	// A second login refreshes the profile and keeps the account.
	renamed := `{"id":678478970,"first_name":"Augusta","username":"ada_l","language_code":"en"}`
	again, err := tg.Authenticate(ctx, tmaHeader(h.clock.Now(), renamed))
	require.NoError(t, err)
	require.Equal(t, "Augusta", again.FirstName)
	require.False(t, again.IsPremium)
	require.Equal(t, u.APIKey, again.APIKey)
	require.Equal(t, u.PasswordHash, again.PasswordHash)
}

func TestTelegramAuthenticateFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	user := `{"id":1,"first_name":"Ada"}`

	tests := []struct {
		name   string
		header func(now time.Time) string
		kind   service.Kind
	}{
		{"wrong scheme", func(now time.Time) string { return "Bearer abc" }, service.KindBadRequest},
		{"empty", func(now time.Time) string { return "" }, service.KindBadRequest},
		{"no user", func(now time.Time) string { return tmaHeader(now, "") }, service.KindBadRequest},
		{"stale", func(now time.Time) string { return tmaHeader(now.Add(-2*time.Hour), user) }, service.KindUnauthorized},
		{"tampered", func(now time.Time) string { return tmaHeader(now, user) + "&extra=1" }, service.KindUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, service.RevocationPerToken)
			_, err := newTelegram(h).Authenticate(ctx, tt.header(h.clock.Now()))
			requireKind(t, err, tt.kind)
		})
	}

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, service.RevocationPerToken)
		tg := newTelegram(h)
		tg.BotToken = ""
		_, err := tg.Authenticate(ctx, tmaHeader(h.clock.Now(), user))
		requireKind(t, err, service.KindUnauthorized)
	})
}
