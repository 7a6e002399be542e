package storage

import (
	"context"
	"encoding/json"

	"github.com/md-rashed-zaman/salonbook/libs/db"
)

type AuditEvent struct {
	Type      string
	ActorID   string
	SubjectID string
	Metadata  map[string]any
}

type Audit struct {
	pool *db.Pool
}

func NewAudit(pool *db.Pool) *Audit {
	return &Audit{pool: pool}
}

func (a *Audit) Record(ctx context.Context, evt AuditEvent) error {
	if evt.Metadata == nil {
		evt.Metadata = map[string]any{}
	}
	meta, err := json.Marshal(evt.Metadata)
	if err != nil {
		return err
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO audit_events (event_type, actor_id, subject_id, metadata)
		VALUES ($1, $2, $3, $4)
	`, evt.Type, nullIfEmpty(evt.ActorID), nullIfEmpty(evt.SubjectID), meta)
	return err
}
