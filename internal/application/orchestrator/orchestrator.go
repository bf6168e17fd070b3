package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"3tcapital/goglosas/internal/application/pipeline"
	"3tcapital/goglosas/internal/core/glosas"
	"3tcapital/goglosas/internal/core/runaudit"
	appcontext "3tcapital/goglosas/internal/infrastructure/context"
)

// Service runs one reconciliation end to end: it dispatches to the EPS
// pipeline, aggregates per-file failures into the run result and records an
// audit entry when a repository is configured.
type Service struct {
	runners map[glosas.EPS]pipeline.Runner
	audit   runaudit.Repository
	log     *slog.Logger
	now     func() time.Time

	// mu serializes runs: pipelines share the homologation store and
	// write into the same output directory.
	mu sync.Mutex
}

// New creates the orchestrator. audit may be nil when no database is
// configured; runs then complete without persistence.
func New(runners map[glosas.EPS]pipeline.Runner, audit runaudit.Repository, log *slog.Logger) *Service {
	return &Service{
		runners: runners,
		audit:   audit,
		log:     log.With(slog.String("component", "orchestrator")),
		now:     time.Now,
	}
}

// Run executes the pipeline for the requested EPS synchronously. The run
// completes only when at least one objection row was emitted; otherwise it
// fails with ErrNoRowsEmitted and leaves no output files behind.
func (s *Service) Run(ctx context.Context, req glosas.RunRequest) (*glosas.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runner, ok := s.runners[req.EPS]
	if !ok {
		return nil, fmt.Errorf("unsupported eps: %q", req.EPS)
	}
	if req.ProcessDate.IsZero() {
		req.ProcessDate = s.now()
	}

	started := s.now()
	runID := uuid.NewString()
	ctx = appcontext.WithRunID(ctx, runID)
	s.log.Info("run started",
		slog.String("run_id", runID),
		slog.String("eps", req.EPS.String()),
		slog.Int("files", len(req.Files)))

	outcome, err := runner.Run(ctx, req)
	if err != nil {
		s.log.Error("run failed", slog.String("run_id", runID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("running %s pipeline: %w", req.EPS, err)
	}

	duration := s.now().Sub(started)
	result := &glosas.RunResult{
		RunID:            runID,
		EPS:              req.EPS,
		ConsolidatedPath: outcome.ConsolidatedPath,
		ObjectionsPath:   outcome.ObjectionsPath,
		DetailRows:       outcome.DetailRows,
		ObjectionRows:    outcome.ObjectionRows,
		FilesProcessed:   outcome.FilesProcessed,
		FilesSkipped:     outcome.FilesSkipped,
		Errors:           outcome.Errors,
		Warnings:         outcome.Warnings,
		StartedAt:        started,
		Duration:         duration,
		DurationMs:       duration.Milliseconds(),
	}

	s.record(ctx, result)

	if result.ObjectionRows == 0 {
		s.log.Warn("run produced no objection rows",
			slog.String("run_id", runID),
			slog.Int("files_skipped", result.FilesSkipped))
		return nil, fmt.Errorf("%w: %d files processed, %d skipped",
			glosas.ErrNoRowsEmitted, result.FilesProcessed, result.FilesSkipped)
	}

	s.log.Info("run completed",
		slog.String("run_id", runID),
		slog.Int("detail_rows", result.DetailRows),
		slog.Int("objection_rows", result.ObjectionRows),
		slog.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// record persists the audit entry. Persistence failures are logged, never
// propagated; the run already produced its outputs.
func (s *Service) record(ctx context.Context, result *glosas.RunResult) {
	if s.audit == nil {
		return
	}

	errs := make([]string, 0, len(result.Errors))
	for _, fe := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %s", fe.Path, fe.Message))
	}

	entry := runaudit.RunLog{
		RunID:            result.RunID,
		CorrelationID:    appcontext.GetCorrelationID(ctx),
		EPS:              result.EPS.String(),
		FilesProcessed:   result.FilesProcessed,
		FilesSkipped:     result.FilesSkipped,
		DetailRows:       result.DetailRows,
		ObjectionRows:    result.ObjectionRows,
		ConsolidatedPath: result.ConsolidatedPath,
		ObjectionsPath:   result.ObjectionsPath,
		Errors:           errs,
		Warnings:         result.Warnings,
		DurationMs:       result.DurationMs,
		CreatedAt:        result.StartedAt,
	}
	if err := s.audit.Save(ctx, entry); err != nil {
		s.log.Warn("run audit not persisted",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()))
	}
}

// History returns the most recent audit entries for an EPS, newest first.
func (s *Service) History(ctx context.Context, eps glosas.EPS, limit int) ([]runaudit.RunLog, error) {
	if s.audit == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.audit.FindByEPS(ctx, eps.String(), limit)
}
