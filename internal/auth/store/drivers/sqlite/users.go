package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
)

const userColumns = `id, username, password_hash, role, api_key, first_name, last_name,
	language_code, photo_url, is_premium, is_bot, added_to_attachment_menu, created_at, updated_at`

const (
	getUserByIDQuery       = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	getUserByUsernameQuery = `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	getUserByAPIKeyQuery   = `SELECT ` + userColumns + ` FROM users WHERE api_key = ?`

	createUserQuery = `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateProfileQuery = `UPDATE users SET username = ?, first_name = ?, last_name = ?, language_code = ?,
		photo_url = ?, is_premium = ?, is_bot = ?, added_to_attachment_menu = ?, updated_at = ?
		WHERE id = ?`

	updatePasswordHashQuery = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	updateRoleQuery         = `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, getUserByIDQuery, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, getUserByUsernameQuery, username)
}

func (r *usersRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (domain.User, error) {
	return r.getOne(ctx, getUserByAPIKeyQuery, apiKey)
}

func (r *usersRepo) getOne(ctx context.Context, query string, arg string) (domain.User, error) {
	var (
		u                    domain.User
		username             sql.NullString
		role                 string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &username, &u.PasswordHash, &role, &u.APIKey, &u.FirstName, &u.LastName,
		&u.LanguageCode, &u.PhotoURL, &u.IsPremium, &u.IsBot, &u.AddedToAttachmentMenu,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Username = username.String
	u.Role = domain.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, createUserQuery,
		u.ID, nullString(u.Username), u.PasswordHash, string(u.Role), u.APIKey,
		u.FirstName, u.LastName, u.LanguageCode, u.PhotoURL,
		u.IsPremium, u.IsBot, u.AddedToAttachmentMenu,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", mapConstraint(err))
	}
	return nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id string, p domain.Profile) error {
	return r.execOne(ctx, updateProfileQuery,
		nullString(p.Username), p.FirstName, p.LastName, p.LanguageCode,
		p.PhotoURL, p.IsPremium, p.IsBot, p.AddedToAttachmentMenu, toMillis(time.Now()),
		id,
	)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, updatePasswordHashQuery, hash, toMillis(time.Now()), id)
}

func (r *usersRepo) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.execOne(ctx, updateRoleQuery, string(role), toMillis(time.Now()), id)
}

// execOne runs an update that must touch exactly one row.
func (r *usersRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
