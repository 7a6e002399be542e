package storage

import (
	"context"
	"encoding/json"

	"github.com/md-rashed-zaman/salonbook/libs/db"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is one delivery attempt on one channel.
type Notification struct {
	EventID       string
	EventType     string
	AppointmentID string
	Channel       string
	Recipient     string
	Status        string
	ProviderID    string
	Error         string
	Payload       map[string]any
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records an attempt. A second attempt for the same event, channel
// and recipient is ignored.
func (r *Repository) Insert(ctx context.Context, n Notification) error {
	if n.Payload == nil {
		n.Payload = map[string]any{}
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (event_id, event_type, appointment_id, channel, recipient, status, provider_id, error, payload)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
		ON CONFLICT (event_id, channel, recipient) DO NOTHING
	`, n.EventID, n.EventType, n.AppointmentID, n.Channel, n.Recipient, n.Status, n.ProviderID, n.Error, payload)
	return err
}

// Attempted reports whether a message of eventID already went out to
// recipient on channel.
func (r *Repository) Attempted(ctx context.Context, eventID, channel, recipient string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications WHERE event_id = $1 AND channel = $2 AND recipient = $3
		)
	`, eventID, channel, recipient).Scan(&ok)
	return ok, err
}
