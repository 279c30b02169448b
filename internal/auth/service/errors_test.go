package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/aussiebroadwan/patchnotes/pkg/telegram"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"bad credentials", ErrBadCredentials, KindUnauthorized, "bad credentials"},
		{"wrapped expiry", fmt.Errorf("verify: %w", jwtx.ErrExpired), KindUnauthorized, "token expired"},
		{"blacklisted", ErrTokenBlacklisted, KindUnauthorized, "token is blacklisted"},
		{"qr not confirmed", ErrCodeNotConfirmed, KindUnauthorized, "invalid QR code or session not confirmed"},
		{"invalid code", ErrInvalidCode, KindBadRequest, "invalid or expired code"},
		{"telegram signature", telegram.ErrSignatureInvalid, KindUnauthorized, "invalid init data signature"},
		{"telegram header", telegram.ErrAuthorizationShape, KindBadRequest, telegram.ErrAuthorizationShape.Error()},
		{"user exists wins over store", fmt.Errorf("%w: %w", ErrUserExists, store.ErrAlreadyExists), KindBadRequest, "user already exists"},
		{"validation", validation.Errors{"id": errors.New("cannot be blank")}, KindBadRequest, "id: cannot be blank."},
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), KindNotFound, "not found"},
		{"unknown", errors.New("disk on fire"), KindInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var se *Error
			require.ErrorAs(t, Translate(tt.err), &se)
			require.Equal(t, tt.kind, se.Kind)
			require.Equal(t, tt.message, se.Message)
			require.Equal(t, tt.err, se.Err)
		})
	}
}

func TestTranslatePassthrough(t *testing.T) {
	t.Parallel()

	require.NoError(t, Translate(nil))

	orig := &Error{Kind: KindNotFound, Message: "gone"}
	require.Same(t, orig, Translate(fmt.Errorf("ctx: %w", orig)))
}

func TestUnauthorized(t *testing.T) {
	t.Parallel()

	var se *Error
	require.ErrorAs(t, unauthorized(errors.New("redis down")), &se)
	require.Equal(t, KindUnauthorized, se.Kind)
	require.Equal(t, "invalid refresh token", se.Message)

	require.ErrorAs(t, unauthorized(jwtx.ErrExpired), &se)
	require.Equal(t, "token expired", se.Message)
}
