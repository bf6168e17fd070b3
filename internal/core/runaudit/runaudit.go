package runaudit

import (
	"context"
	"time"
)

// RunLog represents an audit record for one reconciliation run.
// It captures inputs, outputs and failures for traceability of what was
// loaded into the ERP and when.
type RunLog struct {
	ID               int64
	RunID            string
	CorrelationID    string
	EPS              string
	FilesProcessed   int
	FilesSkipped     int
	DetailRows       int
	ObjectionRows    int
	ConsolidatedPath string
	ObjectionsPath   string
	Errors           []string
	Warnings         []string
	DurationMs       int64
	CreatedAt        time.Time
}

// Repository defines the contract for persisting and retrieving run audit logs.
type Repository interface {
	// Save persists a run audit entry to storage.
	Save(ctx context.Context, log RunLog) error

	// FindByEPS retrieves the most recent runs for an EPS, newest first.
	FindByEPS(ctx context.Context, eps string, limit int) ([]RunLog, error)
}
