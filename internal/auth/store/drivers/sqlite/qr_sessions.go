package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
)

const (
	createQRSessionQuery = `INSERT INTO qr_sessions (code, status, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`

	getQRSessionQuery = `SELECT code, status, user_id, expires_at, created_at
		FROM qr_sessions WHERE code = ?`

	expireQRSessionQuery = `UPDATE qr_sessions SET status = 'EXPIRED'
		WHERE code = ? AND status = 'PENDING' AND expires_at <= ?`

	confirmQRSessionQuery = `UPDATE qr_sessions SET status = 'CONFIRMED', user_id = ?
		WHERE code = ? AND status = 'PENDING' AND expires_at > ?`

	deleteQRSessionsQuery = `DELETE FROM qr_sessions WHERE expires_at < ?`
)

type qrSessionsRepo struct {
	db dbtx
}

func (r *qrSessionsRepo) CreateQRSession(ctx context.Context, s domain.QRSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = domain.QRStatusPending
	}

	_, err := r.db.ExecContext(ctx, createQRSessionQuery,
		s.Code, string(s.Status), nullString(s.UserID), toMillis(s.ExpiresAt), toMillis(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create qr session: %w", mapConstraint(err))
	}
	return nil
}

func (r *qrSessionsRepo) GetQRSession(ctx context.Context, code string) (domain.QRSession, error) {
	var (
		s                    domain.QRSession
		status               string
		userID               sql.NullString
		expiresAt, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, getQRSessionQuery, code).Scan(&s.Code, &status, &userID, &expiresAt, &createdAt)
	if err != nil {
		return domain.QRSession{}, mapNotFound(err)
	}

	s.Status = domain.QRStatus(status)
	s.UserID = userID.String
	s.ExpiresAt = fromMillis(expiresAt)
	s.CreatedAt = fromMillis(createdAt)
	return s, nil
}

func (r *qrSessionsRepo) ExpireQRSession(ctx context.Context, code string, now time.Time) (bool, error) {
	return r.transition(ctx, expireQRSessionQuery, code, toMillis(now))
}

func (r *qrSessionsRepo) ConfirmQRSession(ctx context.Context, code, userID string, now time.Time) (bool, error) {
	return r.transition(ctx, confirmQRSessionQuery, userID, code, toMillis(now))
}

func (r *qrSessionsRepo) transition(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("qr session transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("qr session transition: %w", err)
	}
	return n == 1, nil
}

func (r *qrSessionsRepo) DeleteQRSessionsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteQRSessionsQuery, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete qr sessions: %w", err)
	}
	return res.RowsAffected()
}
