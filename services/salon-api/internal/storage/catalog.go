package storage

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

type Catalog struct {
	pool *db.Pool
}

func NewCatalog(pool *db.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (r *Catalog) ListCategories(ctx context.Context) ([]model.ServiceCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, slug FROM service_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ServiceCategory
	for rows.Next() {
		var c model.ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCategory inserts the category or renames the one with the same slug.
func (r *Catalog) UpsertCategory(ctx context.Context, c model.ServiceCategory) (model.ServiceCategory, error) {
	if c.Slug == "" {
		c.Slug = model.Slugify(c.Name)
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO service_categories (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text, name, slug
	`, strings.TrimSpace(c.Name), c.Slug).Scan(&c.ID, &c.Name, &c.Slug)
	return c, mapErr(err)
}

type ServiceFilter struct {
	CategorySlug    string
	IncludeInactive bool
}

const serviceColumns = `s.id::text, s.name, s.description, s.price_cents, s.duration_minutes,
	COALESCE(s.category_id::text, ''), s.active, s.average_rating::float8, s.review_count, s.created_at`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.PriceCents, &s.DurationMinutes,
		&s.CategoryID, &s.Active, &s.AverageRating, &s.ReviewCount, &s.CreatedAt)
	if err != nil {
		return model.Service{}, mapErr(err)
	}
	return s, nil
}

func (r *Catalog) ListServices(ctx context.Context, f ServiceFilter) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services s
		LEFT JOIN service_categories c ON c.id = s.category_id
		WHERE ($1 OR s.active)
			AND ($2 = '' OR c.slug = $2)
		ORDER BY c.name NULLS LAST, s.name
	`, f.IncludeInactive, strings.TrimSpace(f.CategorySlug))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Catalog) GetService(ctx context.Context, id string) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services s WHERE s.id = $1`, id))
}

func (r *Catalog) CreateService(ctx context.Context, s model.Service) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		INSERT INTO services AS s (name, description, price_cents, duration_minutes, category_id, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+serviceColumns,
		strings.TrimSpace(s.Name), strings.TrimSpace(s.Description), s.PriceCents, s.DurationMinutes,
		nullIfEmpty(s.CategoryID), s.Active))
}

// UpsertServiceByName is used by the seeder; ratings are left untouched.
func (r *Catalog) UpsertServiceByName(ctx context.Context, s model.Service) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		INSERT INTO services AS s (name, description, price_cents, duration_minutes, category_id, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lower(name)) DO UPDATE
		SET description = EXCLUDED.description,
			price_cents = EXCLUDED.price_cents,
			duration_minutes = EXCLUDED.duration_minutes,
			category_id = EXCLUDED.category_id,
			active = EXCLUDED.active
		RETURNING `+serviceColumns,
		strings.TrimSpace(s.Name), strings.TrimSpace(s.Description), s.PriceCents, s.DurationMinutes,
		nullIfEmpty(s.CategoryID), s.Active))
}

func (r *Catalog) UpdateService(ctx context.Context, s model.Service) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		UPDATE services AS s
		SET name = $2, description = $3, price_cents = $4, duration_minutes = $5, category_id = $6, active = $7
		WHERE s.id = $1
		RETURNING `+serviceColumns,
		s.ID, strings.TrimSpace(s.Name), strings.TrimSpace(s.Description), s.PriceCents, s.DurationMinutes,
		nullIfEmpty(s.CategoryID), s.Active))
}

// DeactivateService hides a service from the catalog. Rows are kept because
// appointments and reviews reference them.
func (r *Catalog) DeactivateService(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE services SET active = false WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
