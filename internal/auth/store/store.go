package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it (and off Tx) so a transaction
// can never be opened from inside another one.
type Store interface {
	Users() Users
	QRSessions() QRSessions

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (domain.User, error)

	// CreateUser inserts u. A clash on id, username or api key yields
	// ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile replaces the profile fields and bumps updated_at.
	UpdateProfile(ctx context.Context, id string, p domain.Profile) error

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
}

// QRSessions persists QR login codes. The conditional transitions report
// whether they won the race; false means the row was absent or not in the
// required state.
type QRSessions interface {
	CreateQRSession(ctx context.Context, s domain.QRSession) error
	GetQRSession(ctx context.Context, code string) (domain.QRSession, error)

	// ExpireQRSession moves a PENDING session whose expiry is <= now to EXPIRED.
	ExpireQRSession(ctx context.Context, code string, now time.Time) (bool, error)

	// ConfirmQRSession moves a PENDING session whose expiry is > now to
	// CONFIRMED and records the user.
	ConfirmQRSession(ctx context.Context, code, userID string, now time.Time) (bool, error)

	// DeleteQRSessionsExpiredBefore removes sessions that expired before cutoff.
	DeleteQRSessionsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
