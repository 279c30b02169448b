package telegram_test

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/pkg/telegram"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:test-bot-token"

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func signedInitData(t *testing.T, authDate time.Time, user string) string {
	t.Helper()

	v := url.Values{}
	v.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	if user != "" {
		v.Set("user", user)
	}
	v.Set("hash", telegram.Sign(v, botToken))
	return v.Encode()
}

func TestValidate(t *testing.T) {
	t.Parallel()

	user := `{"id":678478970,"first_name":"Ada","username":"ada","language_code":"en","is_premium":true}`

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		raw := signedInitData(t, now.Add(-time.Minute), user)
		require.NoError(t, telegram.Validate(raw, botToken, time.Hour, now))
	})

	t.Run("signed by another bot", func(t *testing.T) {
		t.Parallel()
		raw := signedInitData(t, now, user)
		require.ErrorIs(t, telegram.Validate(raw, "999:other", time.Hour, now), telegram.ErrSignatureInvalid)
	})

	t.Run("tampered field", func(t *testing.T) {
		t.Parallel()
		v, err := url.ParseQuery(signedInitData(t, now, user))
		require.NoError(t, err)
		v.Set("user", `{"id":1,"first_name":"Mallory"}`)
		require.ErrorIs(t, telegram.Validate(v.Encode(), botToken, time.Hour, now), telegram.ErrSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		raw := signedInitData(t, now.Add(-2*time.Hour), user)
		require.ErrorIs(t, telegram.Validate(raw, botToken, time.Hour, now), telegram.ErrExpired)
		require.NoError(t, telegram.Validate(raw, botToken, 0, now), "zero ttl disables the age check")
	})

	t.Run("missing pieces", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, telegram.Validate("auth_date=1", botToken, 0, now), telegram.ErrSignatureMissing)
		require.ErrorIs(t, telegram.Validate("hash=ab", botToken, 0, now), telegram.ErrAuthDateMissing)
		require.ErrorIs(t, telegram.Validate("hash=zz&auth_date=1", botToken, 0, now), telegram.ErrSignatureInvalid)
		require.ErrorIs(t, telegram.Validate("hash=ab&auth_date=x", botToken, 0, now), telegram.ErrMalformed)
		require.ErrorIs(t, telegram.Validate("x", "", 0, now), telegram.ErrEmptyBotToken)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	raw := signedInitData(t, now, `{"id":678478970,"first_name":"Ada","last_name":"L","username":"ada","is_premium":true,"photo_url":"https://t.me/a.jpg"}`)

	d, err := telegram.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, now, d.AuthDate)
	require.NotEmpty(t, d.Hash)
	require.NotNil(t, d.User)
	require.Equal(t, int64(678478970), d.User.ID)
	require.Equal(t, "ada", d.User.Username)
	require.True(t, d.User.IsPremium)
	require.Equal(t, "https://t.me/a.jpg", d.User.PhotoURL)

	_, err = telegram.Parse("user=%7Bnot-json")
	require.ErrorIs(t, err, telegram.ErrMalformed)

	_, err = telegram.Parse("%zz")
	require.ErrorIs(t, err, telegram.ErrMalformed)
}

func TestParseAuthorization(t *testing.T) {
	t.Parallel()

	raw, err := telegram.ParseAuthorization("tma query_id=1&hash=ab")
	require.NoError(t, err)
	require.Equal(t, "query_id=1&hash=ab", raw)

	for _, bad := range []string{"", "tma", "tma   ", "Bearer abc", "query_id=1"} {
		_, err := telegram.ParseAuthorization(bad)
		require.ErrorIs(t, err, telegram.ErrAuthorizationShape, bad)
	}
}
