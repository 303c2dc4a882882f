// Package telemetry defines auth events and the best-effort emitter contract the session engine
// reports through. Exporters live in the otel subpackage.
package telemetry

import (
	"context"
	"time"
)

// EventType names an auth lifecycle event.
type EventType string

const (
	EventLoginSuccess         EventType = "login_success"
	EventLoginFailure         EventType = "login_failure"
	EventRefreshSuccess       EventType = "refresh_success"
	EventRefreshFailure       EventType = "refresh_failure"
	EventRefreshReuseDetected EventType = "refresh_reuse_detected"
	EventLogout               EventType = "logout"
)

// Event is one auth lifecycle event. It never carries secrets; UserID is zero when unknown.
type Event struct {
	Type   EventType
	UserID int64
	OrgID  string
	Scope  string
	JTI    string
	// Reason is the internal failure cause. It is recorded for operators and never returned to callers.
	Reason string
	At     time.Time
}

// EventEmitter emits auth events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
