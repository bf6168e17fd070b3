package pipeline

import (
	"context"
	"log/slog"

	"3tcapital/goglosas/internal/core/glosas"
	appcontext "3tcapital/goglosas/internal/infrastructure/context"
)

// Outcome is what an EPS pipeline hands back to the orchestrator: output
// paths, row counts and the per-file errors that did not abort the run.
type Outcome struct {
	ConsolidatedPath string
	ObjectionsPath   string
	DetailRows       int
	ObjectionRows    int
	FilesProcessed   int
	FilesSkipped     int
	Errors           []glosas.FileError
	Warnings         []string
}

// Runner is one EPS-specific transformation pipeline. Implementations run
// synchronously and process files in the request order.
type Runner interface {
	Run(ctx context.Context, req glosas.RunRequest) (*Outcome, error)
}

// RunLogger returns log with the run ID from the context attached, so that
// per-file messages can be tied back to their run.
func RunLogger(ctx context.Context, log *slog.Logger) *slog.Logger {
	if id := appcontext.GetRunID(ctx); id != "" {
		return log.With(slog.String("run_id", id))
	}
	return log
}
