package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
)

type qrSessionsRepo struct {
	q querier
}

func (r *qrSessionsRepo) CreateQRSession(ctx context.Context, s domain.QRSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = domain.QRStatusPending
	}

	query := `INSERT INTO qr_sessions (code, status, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.Exec(ctx, query, s.Code, string(s.Status), nullable(s.UserID), s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create qr session: %w", mapConstraint(err))
	}
	return nil
}

func (r *qrSessionsRepo) GetQRSession(ctx context.Context, code string) (domain.QRSession, error) {
	var (
		s      domain.QRSession
		status string
	)
	query := `SELECT code, status, COALESCE(user_id, ''), expires_at, created_at
		FROM qr_sessions WHERE code = $1`

	err := r.q.QueryRow(ctx, query, code).Scan(&s.Code, &status, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return domain.QRSession{}, mapNotFound(err)
	}
	s.Status = domain.QRStatus(status)
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func (r *qrSessionsRepo) ExpireQRSession(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `UPDATE qr_sessions SET status = 'EXPIRED'
		WHERE code = $1 AND status = 'PENDING' AND expires_at <= $2`

	tag, err := r.q.Exec(ctx, query, code, now)
	if err != nil {
		return false, fmt.Errorf("expire qr session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *qrSessionsRepo) ConfirmQRSession(ctx context.Context, code, userID string, now time.Time) (bool, error) {
	query := `UPDATE qr_sessions SET status = 'CONFIRMED', user_id = $1
		WHERE code = $2 AND status = 'PENDING' AND expires_at > $3`

	tag, err := r.q.Exec(ctx, query, userID, code, now)
	if err != nil {
		return false, fmt.Errorf("confirm qr session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *qrSessionsRepo) DeleteQRSessionsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM qr_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete qr sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
