package storage

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

type Profiles struct {
	pool *db.Pool
}

func NewProfiles(pool *db.Pool) *Profiles {
	return &Profiles{pool: pool}
}

// NewProfile is the input for account and client creation. PasswordHash is
// empty for clients created by staff who have not registered.
type NewProfile struct {
	FullName     string
	Email        string
	Phone        string
	IsAdmin      bool
	PasswordHash string
}

const profileColumns = `id::text, full_name, COALESCE(email, ''), COALESCE(phone, ''), is_admin::text, created_at`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	var isAdmin string
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &isAdmin, &p.CreatedAt); err != nil {
		return model.Profile{}, mapErr(err)
	}
	p.IsAdmin = model.ParseAdminFlag(isAdmin)
	return p, nil
}

func adminText(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func (r *Profiles) Create(ctx context.Context, in NewProfile) (model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (full_name, email, phone, is_admin, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+profileColumns,
		strings.TrimSpace(in.FullName), nullIfEmpty(strings.ToLower(strings.TrimSpace(in.Email))),
		nullIfEmpty(in.Phone), adminText(in.IsAdmin), nullIfEmpty(in.PasswordHash)))
}

// UpsertByEmail creates the profile or refreshes name, phone, admin flag and
// password on the existing row with the same email.
func (r *Profiles) UpsertByEmail(ctx context.Context, in NewProfile) (model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (full_name, email, phone, is_admin, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(email)) WHERE email IS NOT NULL DO UPDATE
		SET full_name = EXCLUDED.full_name,
			phone = COALESCE(EXCLUDED.phone, profiles.phone),
			is_admin = EXCLUDED.is_admin,
			password_hash = COALESCE(EXCLUDED.password_hash, profiles.password_hash),
			updated_at = now()
		RETURNING `+profileColumns,
		strings.TrimSpace(in.FullName), strings.ToLower(strings.TrimSpace(in.Email)),
		nullIfEmpty(in.Phone), adminText(in.IsAdmin), nullIfEmpty(in.PasswordHash)))
}

func (r *Profiles) GetByID(ctx context.Context, id string) (model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// Credentials returns the profile and its password hash for login.
func (r *Profiles) Credentials(ctx context.Context, email string) (model.Profile, string, error) {
	var p model.Profile
	var isAdmin, hash string
	err := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`, COALESCE(password_hash, '')
		FROM profiles
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email)).Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &isAdmin, &p.CreatedAt, &hash)
	if err != nil {
		return model.Profile{}, "", mapErr(err)
	}
	p.IsAdmin = model.ParseAdminFlag(isAdmin)
	return p, hash, nil
}

// SetPassword attaches a login to a staff-created client profile.
func (r *Profiles) SetPassword(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns profiles matching search on name, email or phone, newest first.
func (r *Profiles) List(ctx context.Context, search string, limit int) ([]model.Profile, error) {
	limit = clampLimit(limit, 50, 500)
	pattern := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE $1 = '%%'
			OR lower(full_name) LIKE $1
			OR lower(COALESCE(email, '')) LIKE $1
			OR COALESCE(phone, '') LIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Profiles) Update(ctx context.Context, p model.Profile) (model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE profiles
		SET full_name = $2, email = $3, phone = $4, is_admin = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns,
		p.ID, strings.TrimSpace(p.FullName), nullIfEmpty(strings.ToLower(strings.TrimSpace(p.Email))),
		nullIfEmpty(p.Phone), adminText(p.IsAdmin)))
}

func (r *Profiles) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
