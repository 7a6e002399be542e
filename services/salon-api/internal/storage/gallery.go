package storage

import (
	"context"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

type Gallery struct {
	pool *db.Pool
}

func NewGallery(pool *db.Pool) *Gallery {
	return &Gallery{pool: pool}
}

func (g *Gallery) List(ctx context.Context) ([]model.GalleryItem, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id::text, image_url, caption, COALESCE(service_id::text, ''), sort_order, created_at
		FROM gallery
		ORDER BY sort_order, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GalleryItem
	for rows.Next() {
		var it model.GalleryItem
		if err := rows.Scan(&it.ID, &it.ImageURL, &it.Caption, &it.ServiceID, &it.SortOrder, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (g *Gallery) Create(ctx context.Context, it model.GalleryItem) (model.GalleryItem, error) {
	err := g.pool.QueryRow(ctx, `
		INSERT INTO gallery (image_url, caption, service_id, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`, it.ImageURL, it.Caption, nullIfEmpty(it.ServiceID), it.SortOrder).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return model.GalleryItem{}, mapErr(err)
	}
	return it, nil
}

func (g *Gallery) Delete(ctx context.Context, id string) error {
	tag, err := g.pool.Exec(ctx, `DELETE FROM gallery WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
