// Package context carries per-call correlation data for logs, the audit
// journal and operation events.
package context

import (
	"time"

	"github.com/google/uuid"
)

// TraceContext carries only cross-cutting concerns needed for observability.
type TraceContext struct {
	TraceID   string    // Globally unique ID for logs, spans and journal lines
	Action    string    // Normalized action code
	StartTime time.Time // When the call entered the dispatcher
}

// NewTraceContext starts a trace for one bridge call.
func NewTraceContext(action string) TraceContext {
	return TraceContext{
		TraceID:   uuid.NewString(),
		Action:    action,
		StartTime: time.Now(),
	}
}

// Elapsed returns the time since the call started.
func (tc TraceContext) Elapsed() time.Duration {
	return time.Since(tc.StartTime)
}
