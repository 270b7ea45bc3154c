package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeRecord is the asynq task type carrying one audit event.
const TaskTypeRecord = "audit:record"

// NewRecordTask wraps an event in an asynq task.
func NewRecordTask(ev Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, payload), nil
}

// AsynqRecorder enqueues events onto the background queue. Enqueue failures
// are logged and dropped; auditing must never take a request down.
type AsynqRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqRecorder constructs a Recorder backed by the asynq client.
func NewAsynqRecorder(client *asynq.Client, logger *slog.Logger) *AsynqRecorder {
	return &AsynqRecorder{client: client, logger: logger}
}

// Record implements Recorder.
func (r *AsynqRecorder) Record(ctx context.Context, ev Event) {
	if r == nil || r.client == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	task, err := NewRecordTask(ev)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("marshal audit event", slog.Any("error", err))
		}
		return
	}
	if _, err := r.client.EnqueueContext(ctx, task); err != nil && r.logger != nil {
		r.logger.Error("enqueue audit event", slog.Any("error", err))
	}
}

// Sink persists audit events; the worker drains the queue into one.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

// NewTaskHandler returns the asynq handler that persists queued events.
func NewTaskHandler(sink Sink, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var ev Event
		if err := json.Unmarshal(t.Payload(), &ev); err != nil {
			if logger != nil {
				logger.Error("decode audit task", slog.Any("error", err))
			}
			return asynq.SkipRetry
		}
		return sink.Write(ctx, ev)
	}
}
