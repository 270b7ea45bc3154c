// Package audit records security-relevant access events: permission denials,
// admin bypass operations, and role changes. Events are queued and persisted
// asynchronously so recording never blocks a request.
package audit

import (
	"context"
	"time"
)

// Decisions recorded against events.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
	DecisionBypass  = "admin_bypass"
)

// Event is one access audit record.
type Event struct {
	ActorID   int64          `json:"actor_id"`
	CompanyID int64          `json:"company_id"`
	Role      string         `json:"role"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Decision  string         `json:"decision"`
	Meta      map[string]any `json:"meta,omitempty"`
	At        time.Time      `json:"at"`
}

// Recorder accepts events for asynchronous persistence. Implementations must
// not block on storage.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// NopRecorder discards events.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(ctx context.Context, ev Event) {}
