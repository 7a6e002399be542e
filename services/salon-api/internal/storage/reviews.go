package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

type Reviews struct {
	pool *db.Pool
}

func NewReviews(pool *db.Pool) *Reviews {
	return &Reviews{pool: pool}
}

const reviewSelect = `
	SELECT r.id::text, r.service_id::text, r.appointment_id::text, r.client_id::text, COALESCE(p.full_name, ''),
		r.rating, r.comment, r.published, r.created_at
	FROM reviews r
	LEFT JOIN profiles p ON p.id = r.client_id`

func scanReview(row pgx.Row) (model.Review, error) {
	var r model.Review
	err := row.Scan(&r.ID, &r.ServiceID, &r.AppointmentID, &r.ClientID, &r.ClientName,
		&r.Rating, &r.Comment, &r.Published, &r.CreatedAt)
	if err != nil {
		return model.Review{}, mapErr(err)
	}
	return r, nil
}

func collectReviews(rows pgx.Rows) ([]model.Review, error) {
	defer rows.Close()
	var out []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Create stores an unpublished review. One review per appointment.
func (s *Reviews) Create(ctx context.Context, r model.Review) (model.Review, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reviews (service_id, appointment_id, client_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, r.ServiceID, r.AppointmentID, r.ClientID, r.Rating, r.Comment).Scan(&id)
	if err != nil {
		return model.Review{}, mapErr(err)
	}
	return s.Get(ctx, id)
}

func (s *Reviews) Get(ctx context.Context, id string) (model.Review, error) {
	return scanReview(s.pool.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
}

func (s *Reviews) ListPublished(ctx context.Context, serviceID string) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, reviewSelect+`
		WHERE r.service_id = $1 AND r.published
		ORDER BY r.created_at DESC
		LIMIT 100
	`, serviceID)
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

type ReviewFilter struct {
	Published *bool
	Limit     int
}

func (s *Reviews) List(ctx context.Context, f ReviewFilter) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, reviewSelect+`
		WHERE $1::boolean IS NULL OR r.published = $1
		ORDER BY r.created_at DESC
		LIMIT $2
	`, f.Published, clampLimit(f.Limit, 100, 500))
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

// SetPublished toggles visibility and refreshes the service's rating
// aggregate from its published reviews.
func (s *Reviews) SetPublished(ctx context.Context, id string, published bool) (model.Review, error) {
	var serviceID string
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE reviews SET published = $2 WHERE id = $1 RETURNING service_id::text
		`, id, published).Scan(&serviceID)
		if err != nil {
			return mapErr(err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE services s
			SET average_rating = COALESCE(agg.avg, 0), review_count = agg.n
			FROM (
				SELECT ROUND(AVG(rating)::numeric, 2) AS avg, COUNT(*)::int AS n
				FROM reviews WHERE service_id = $1 AND published
			) agg
			WHERE s.id = $1
		`, serviceID)
		return err
	})
	if err != nil {
		return model.Review{}, err
	}
	return s.Get(ctx, id)
}
