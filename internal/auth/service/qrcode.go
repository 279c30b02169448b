package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
	"github.com/google/uuid"
)

// DefaultQRCodeTTL is how long a generated code stays PENDING.
const DefaultQRCodeTTL = 5 * time.Minute

// QRService drives the cross-device login codes:
// PENDING -> CONFIRMED | EXPIRED. Transitions are conditional updates in
// the store, so concurrent confirms and expiry checks cannot both win.
type QRService struct {
	Store    store.Store
	Notifier notify.Notifier
	TTL      time.Duration
	Now      func() time.Time
}

func (s *QRService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *QRService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultQRCodeTTL
	}
	return s.TTL
}

// Generate creates a new PENDING code.
func (s *QRService) Generate(ctx context.Context) (domain.QRSession, error) {
	now := s.now()
	q := domain.QRSession{
		Code:      uuid.NewString(),
		Status:    domain.QRStatusPending,
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}

	if err := s.Store.QRSessions().CreateQRSession(ctx, q); err != nil {
		return domain.QRSession{}, Translate(err)
	}

	slogx.FromContext(ctx).Debug("qr code generated", "code", q.Code, "expires_at", q.ExpiresAt)
	return q, nil
}

// CheckStatus reports the code's status, expiring it first when its window
// has passed. Unknown codes are NOT_FOUND rather than an error.
func (s *QRService) CheckStatus(ctx context.Context, code string) (domain.QRStatus, error) {
	st, err := s.checkStatus(ctx, code)
	return st, Translate(err)
}

func (s *QRService) checkStatus(ctx context.Context, code string) (domain.QRStatus, error) {
	q, err := s.Store.QRSessions().GetQRSession(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return domain.QRStatusNotFound, nil
	}
	if err != nil {
		return "", err
	}

	now := s.now()
	if !q.PendingExpired(now) {
		return q.Status, nil
	}

	expired, err := s.Store.QRSessions().ExpireQRSession(ctx, code, now)
	if err != nil {
		return "", err
	}
	if expired {
		s.publish(ctx, code, domain.QRStatusExpired)
		return domain.QRStatusExpired, nil
	}

	// Lost the race to a concurrent transition; report whatever won.
	q, err = s.Store.QRSessions().GetQRSession(ctx, code)
	if err != nil {
		return "", err
	}
	return q.Status, nil
}

// Confirm binds a PENDING code to userID. Anything else, including a code
// that is already CONFIRMED, is BadRequest.
func (s *QRService) Confirm(ctx context.Context, userID, code string) error {
	ok, err := s.Store.QRSessions().ConfirmQRSession(ctx, code, userID, s.now())
	if err != nil {
		return Translate(err)
	}
	if !ok {
		// Apply lazy expiry so the stored status matches what clients see.
		if _, err := s.checkStatus(ctx, code); err != nil {
			slogx.FromContext(ctx).Warn("qr status refresh failed", "code", code, "err", err)
		}
		return Translate(ErrInvalidCode)
	}

	slogx.FromContext(ctx).Info("qr code confirmed", "code", code, "user_id", userID)
	s.publish(ctx, code, domain.QRStatusConfirmed)
	return nil
}

// LoginWithCode returns the user bound to a CONFIRMED code. The session is
// left in place and stays CONFIRMED.
func (s *QRService) LoginWithCode(ctx context.Context, code string) (domain.User, error) {
	q, err := s.Store.QRSessions().GetQRSession(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, Translate(ErrCodeNotConfirmed)
	}
	if err != nil {
		return domain.User{}, Translate(err)
	}
	if q.Status != domain.QRStatusConfirmed || q.UserID == "" {
		return domain.User{}, Translate(ErrCodeNotConfirmed)
	}

	u, err := s.Store.Users().GetUserByID(ctx, q.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, Translate(ErrCodeNotConfirmed)
	}
	return u, Translate(err)
}

// Subscribe exposes the notifier for the websocket gateway.
func (s *QRService) Subscribe(ctx context.Context, code string) (<-chan notify.Event, func(), error) {
	if s.Notifier == nil {
		return nil, nil, notify.ErrClosed
	}
	return s.Notifier.Subscribe(ctx, code)
}

func (s *QRService) publish(ctx context.Context, code string, status domain.QRStatus) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, notify.Event{Code: code, Status: status}); err != nil {
		slogx.FromContext(ctx).Warn("qr status publish failed", "code", code, "status", status, "err", err)
	}
}
