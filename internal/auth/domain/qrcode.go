package domain

import "time"

type QRStatus string

const (
	QRStatusPending   QRStatus = "PENDING"
	QRStatusConfirmed QRStatus = "CONFIRMED"
	QRStatusExpired   QRStatus = "EXPIRED"
	// QRStatusNotFound is reported for unknown codes; it is never stored.
	QRStatusNotFound QRStatus = "NOT_FOUND"
)

// Terminal reports whether no further transition is possible.
func (s QRStatus) Terminal() bool {
	return s == QRStatusConfirmed || s == QRStatusExpired
}

// QRSession is a one-time cross-device login code.
type QRSession struct {
	Code      string // UUID
	Status    QRStatus
	UserID    string // set once confirmed
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PendingExpired reports whether a PENDING session has outlived its window.
func (q QRSession) PendingExpired(now time.Time) bool {
	return q.Status == QRStatusPending && !now.Before(q.ExpiresAt)
}
