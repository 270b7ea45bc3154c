package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPurge removes audit log entries past the retention window.
	TaskAuditPurge = "audit:purge"
)

// AuditPurgePayload sets the retention window in days.
type AuditPurgePayload struct {
	RetainDays int `json:"retain_days"`
}

// NewAuditPurgeTask constructs an Asynq task.
func NewAuditPurgeTask(payload AuditPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, data), nil
}

// NewAuditPurgeHandler processes TaskAuditPurge tasks.
func NewAuditPurgeHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.RetainDays <= 0 {
			payload.RetainDays = 90
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -payload.RetainDays)
		tag, err := pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("audit purge complete",
				slog.Int64("deleted", tag.RowsAffected()),
				slog.Time("cutoff", cutoff))
		}
		return nil
	}
}
