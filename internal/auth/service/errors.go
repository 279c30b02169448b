package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/aussiebroadwan/patchnotes/pkg/telegram"
	validation "github.com/go-ozzo/ozzo-validation"
)

// Kind classifies a service failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindBadRequest
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindBadRequest:
		return "Bad Request"
	case KindNotFound:
		return "Not Found"
	default:
		return "Internal Server Error"
	}
}

// Error is the only error type services return to handlers.
type Error struct {
	Kind    Kind
	Message string // safe to show to clients
	Err     error  // cause, for logs
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrBadCredentials   = errors.New("bad credentials")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenBlacklisted = errors.New("token is blacklisted")
	ErrInvalidCode      = errors.New("invalid or expired code")
	ErrCodeNotConfirmed = errors.New("invalid QR code or session not confirmed")
	ErrTelegramDisabled = errors.New("telegram login is not configured")
	ErrInvalidInput     = errors.New("invalid input")
)

type mapping struct {
	match   func(error) bool
	kind    Kind
	message string // empty: use the error text
}

func matches(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func isValidation(err error) bool {
	var verrs validation.Errors
	return errors.As(err, &verrs)
}

// errorTable maps internal failures to the kinds clients see. The first
// matching row wins, so specific sentinels come before generic ones.
// store.ErrNotFound is listed last on purpose: callers that must not leak
// existence wrap it in a more specific sentinel first.
var errorTable = []mapping{
	{matches(ErrBadCredentials), KindUnauthorized, "bad credentials"},
	{matches(ErrTokenBlacklisted), KindUnauthorized, "token is blacklisted"},
	{matches(ErrInvalidToken), KindUnauthorized, "invalid token"},
	{matches(jwtx.ErrExpired), KindUnauthorized, "token expired"},
	{matches(jwtx.ErrInvalidSig), KindUnauthorized, "invalid token"},
	{matches(jwtx.ErrMalformed), KindUnauthorized, "invalid token"},
	{matches(ErrCodeNotConfirmed), KindUnauthorized, "invalid QR code or session not confirmed"},

	{matches(telegram.ErrSignatureInvalid), KindUnauthorized, "invalid init data signature"},
	{matches(telegram.ErrSignatureMissing), KindUnauthorized, "invalid init data signature"},
	{matches(telegram.ErrExpired), KindUnauthorized, "init data expired"},
	{matches(telegram.ErrAuthDateMissing), KindUnauthorized, "invalid init data"},
	{matches(ErrTelegramDisabled), KindUnauthorized, "telegram login is not configured"},
	{matches(telegram.ErrAuthorizationShape), KindBadRequest, ""},
	{matches(telegram.ErrMalformed), KindBadRequest, "malformed init data"},
	{matches(telegram.ErrUserMissing), KindBadRequest, "init data has no user"},

	{matches(ErrInvalidCode), KindBadRequest, "invalid or expired code"},
	{matches(ErrUserExists), KindBadRequest, "user already exists"},
	{matches(store.ErrAlreadyExists), KindBadRequest, "user already exists"},
	{isValidation, KindBadRequest, ""},
	{matches(ErrInvalidInput), KindBadRequest, ""},

	{matches(store.ErrNotFound), KindNotFound, "not found"},
}

// Translate maps err to a *Error using errorTable. Unknown errors become
// KindInternal with a generic message. Translate(nil) is nil.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return se
	}

	for _, m := range errorTable {
		if !m.match(err) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = userMessage(err)
		}
		return &Error{Kind: m.kind, Message: msg, Err: err}
	}

	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// unauthorized forces the Unauthorized kind, keeping the mapped message when
// the table already classifies err as Unauthorized.
func unauthorized(err error) error {
	se := Translate(err).(*Error)
	if se.Kind == KindUnauthorized {
		return se
	}
	return &Error{Kind: KindUnauthorized, Message: "invalid refresh token", Err: err}
}

// userMessage prefers the validation summary over the wrapped error text.
func userMessage(err error) string {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}
	return err.Error()
}
