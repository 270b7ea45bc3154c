package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink writes audit events into the audit_logs table.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink returns a new PGSink.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

// Write implements Sink.
func (s *PGSink) Write(ctx context.Context, ev Event) error {
	meta, err := json.Marshal(ev.Meta)
	if err != nil {
		return err
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, company_id, role, action, entity, entity_id, decision, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ActorID, ev.CompanyID, ev.Role, ev.Action, ev.Entity, ev.EntityID, ev.Decision, meta, at)
	return err
}
