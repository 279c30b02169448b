package postgres

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
)

const userColumns = `id, COALESCE(username, ''), password_hash, role, api_key, first_name, last_name,
	language_code, photo_url, is_premium, is_bot, added_to_attachment_menu, created_at, updated_at`

type usersRepo struct {
	q querier
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *usersRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = $1`, apiKey)
}

func (r *usersRepo) getOne(ctx context.Context, query, arg string) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &role, &u.APIKey, &u.FirstName, &u.LastName,
		&u.LanguageCode, &u.PhotoURL, &u.IsPremium, &u.IsBot, &u.AddedToAttachmentMenu,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	query := `INSERT INTO users (id, username, password_hash, role, api_key, first_name, last_name,
			language_code, photo_url, is_premium, is_bot, added_to_attachment_menu)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q.Exec(ctx, query,
		u.ID, nullable(u.Username), u.PasswordHash, string(u.Role), u.APIKey,
		u.FirstName, u.LastName, u.LanguageCode, u.PhotoURL,
		u.IsPremium, u.IsBot, u.AddedToAttachmentMenu,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", mapConstraint(err))
	}
	return nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id string, p domain.Profile) error {
	query := `UPDATE users SET username = $1, first_name = $2, last_name = $3, language_code = $4,
			photo_url = $5, is_premium = $6, is_bot = $7, added_to_attachment_menu = $8, updated_at = NOW()
		WHERE id = $9`

	return r.execOne(ctx, query,
		nullable(p.Username), p.FirstName, p.LastName, p.LanguageCode,
		p.PhotoURL, p.IsPremium, p.IsBot, p.AddedToAttachmentMenu, id,
	)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
}

func (r *usersRepo) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.execOne(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, string(role), id)
}

func (r *usersRepo) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
