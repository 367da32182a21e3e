package telemetry

import (
	"context"
	"time"
)

// Journal records finished collection sessions.
type Journal interface {
	RecordSession(ctx context.Context, session *SessionSummary) error
	Close() error
}

// Repository is the storage behind a Journal.
type Repository interface {
	Store(ctx context.Context, session *SessionSummary) error
	Close() error
}

// SessionSummary is one finished collection session.
type SessionSummary struct {
	ID       string
	DeviceID string
	Endpoint string
	Started  time.Time
	Stopped  time.Time
	Reason   string
	Sensors  []SensorCount
}

// SensorCount holds the per-stream totals of a session.
type SensorCount struct {
	Type     int
	Raw      int
	Accepted int
}
