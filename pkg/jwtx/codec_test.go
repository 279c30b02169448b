package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newCodec() (*jwtx.Codec, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return &jwtx.Codec{Now: clock.Now}, clock
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec()
	secret := []byte("access-secret")
	payload := jwtx.Payload{UserID: "678478970", Role: "ADMIN", JTI: "c0ffee"}

	token, signed, err := codec.Sign(payload, secret, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, payload, signed.Payload())

	got, err := codec.Verify(token, secret)
	require.NoError(t, err)
	require.Equal(t, payload, got.Payload())
	require.Equal(t, signed.ExpiresAtTime(), got.ExpiresAtTime())
}

func TestCodecSignIsDeterministic(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec()
	payload := jwtx.Payload{UserID: "1", Role: "USER", JTI: "same"}

	a, _, err := codec.Sign(payload, []byte("s"), time.Minute)
	require.NoError(t, err)
	b, _, err := codec.Sign(payload, []byte("s"), time.Minute)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCodecVerifyFailures(t *testing.T) {
	t.Parallel()

	t.Run("different secret", func(t *testing.T) {
		codec, _ := newCodec()
		token, _, err := codec.Sign(jwtx.Payload{UserID: "1"}, []byte("right"), time.Minute)
		require.NoError(t, err)

		_, err = codec.Verify(token, []byte("wrong"))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("tampered payload", func(t *testing.T) {
		codec, _ := newCodec()
		token, _, err := codec.Sign(jwtx.Payload{UserID: "1"}, []byte("s"), time.Minute)
		require.NoError(t, err)

		other, _, err := codec.Sign(jwtx.Payload{UserID: "2"}, []byte("s2"), time.Minute)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

		_, err = codec.Verify(forged, []byte("s"))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("expired after ttl", func(t *testing.T) {
		codec, clock := newCodec()
		token, _, err := codec.Sign(jwtx.Payload{UserID: "1"}, []byte("s"), time.Minute)
		require.NoError(t, err)

		clock.Advance(59 * time.Second)
		_, err = codec.Verify(token, []byte("s"))
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = codec.Verify(token, []byte("s"))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		codec, _ := newCodec()
		_, err := codec.Verify("not-a-token", []byte("s"))
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("empty secret", func(t *testing.T) {
		codec, _ := newCodec()
		_, _, err := codec.Sign(jwtx.Payload{UserID: "1"}, nil, time.Minute)
		require.ErrorIs(t, err, jwtx.ErrEmptySecret)

		_, err = codec.Verify("a.b.c", nil)
		require.ErrorIs(t, err, jwtx.ErrEmptySecret)
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		codec, _ := newCodec()
		_, _, err := codec.Sign(jwtx.Payload{UserID: "1"}, []byte("s"), 0)
		require.ErrorIs(t, err, jwtx.ErrInvalidTTL)
	})
}

func TestDecode(t *testing.T) {
	t.Parallel()

	codec, clock := newCodec()
	token, signed, err := codec.Sign(jwtx.Payload{UserID: "7", Role: "USER"}, []byte("s"), time.Minute)
	require.NoError(t, err)

	// Decode ignores expiry and secrets.
	clock.Advance(time.Hour)
	got, err := jwtx.Decode(token)
	require.NoError(t, err)
	require.Equal(t, signed.ID, got.ID)
	require.Equal(t, "7", got.UserID)

	_, err = jwtx.Decode("###")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
