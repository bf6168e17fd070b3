package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"3tcapital/goglosas/internal/core/runaudit"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the runaudit.Repository interface using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a new PostgreSQL run audit repository.
func NewRepository(pool *pgxpool.Pool) runaudit.Repository {
	return &Repository{pool: pool, log: nil}
}

// NewRepositoryWithLogger creates a new PostgreSQL run audit repository with logging.
func NewRepositoryWithLogger(pool *pgxpool.Pool, log *slog.Logger) runaudit.Repository {
	return &Repository{pool: pool, log: log}
}

// Save persists a run audit entry to the database.
func (r *Repository) Save(ctx context.Context, entry runaudit.RunLog) error {
	if r.log != nil {
		r.log.Debug("Attempting to save run audit log",
			"run_id", entry.RunID,
			"eps", entry.EPS,
			"objection_rows", entry.ObjectionRows,
			"duration_ms", entry.DurationMs,
		)
	}

	query := `
		INSERT INTO run_audit_log (
			run_id, correlation_id, eps, files_processed, files_skipped,
			detail_rows, objection_rows, consolidated_path, objections_path,
			errors, warnings, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	errorsJSON, err := json.Marshal(emptyIfNil(entry.Errors))
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	warningsJSON, err := json.Marshal(emptyIfNil(entry.Warnings))
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		entry.RunID,
		entry.CorrelationID,
		entry.EPS,
		entry.FilesProcessed,
		entry.FilesSkipped,
		entry.DetailRows,
		entry.ObjectionRows,
		entry.ConsolidatedPath,
		entry.ObjectionsPath,
		errorsJSON,
		warningsJSON,
		entry.DurationMs,
	)
	if err != nil {
		errMsg := fmt.Errorf("insert run audit log: %w", err)
		if r.log != nil {
			r.log.Error("Failed to insert run audit log into database",
				"run_id", entry.RunID,
				"eps", entry.EPS,
				"error", errMsg,
			)
		}
		return errMsg
	}

	if r.log != nil {
		r.log.Debug("Run audit log saved successfully",
			"run_id", entry.RunID,
			"eps", entry.EPS,
		)
	}
	return nil
}

// FindByEPS retrieves the most recent runs for an EPS, newest first.
func (r *Repository) FindByEPS(ctx context.Context, eps string, limit int) ([]runaudit.RunLog, error) {
	query := `
		SELECT id, run_id, correlation_id, eps, files_processed, files_skipped,
			detail_rows, objection_rows, consolidated_path, objections_path,
			errors, warnings, duration_ms, created_at
		FROM run_audit_log
		WHERE eps = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, eps, limit)
	if err != nil {
		return nil, fmt.Errorf("query run audit log: %w", err)
	}
	defer rows.Close()

	var logs []runaudit.RunLog
	for rows.Next() {
		var entry runaudit.RunLog
		var errorsJSON, warningsJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.RunID,
			&entry.CorrelationID,
			&entry.EPS,
			&entry.FilesProcessed,
			&entry.FilesSkipped,
			&entry.DetailRows,
			&entry.ObjectionRows,
			&entry.ConsolidatedPath,
			&entry.ObjectionsPath,
			&errorsJSON,
			&warningsJSON,
			&entry.DurationMs,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run audit log: %w", err)
		}
		if err := json.Unmarshal(errorsJSON, &entry.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal errors: %w", err)
		}
		if err := json.Unmarshal(warningsJSON, &entry.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run audit log: %w", err)
	}
	return logs, nil
}

// emptyIfNil keeps JSONB columns as [] instead of null.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
