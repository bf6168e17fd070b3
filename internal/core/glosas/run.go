package glosas

import "time"

// InputFile is one downloaded supplier artifact plus the metadata the mail
// client attached to it. ReceivedAt is zero when the file did not come from
// a mailbox.
type InputFile struct {
	Path       string
	ReceivedAt time.Time
}

// RunRequest describes one user-initiated reconciliation run.
type RunRequest struct {
	EPS         EPS
	Files       []InputFile
	OutputDir   string
	ProcessDate time.Time
}

// FileError records a per-file failure that did not abort the run.
type FileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID            string        `json:"runId"`
	EPS              EPS           `json:"eps"`
	ConsolidatedPath string        `json:"consolidatedPath"`
	ObjectionsPath   string        `json:"objectionsPath"`
	DetailRows       int           `json:"detailRows"`
	ObjectionRows    int           `json:"objectionRows"`
	FilesProcessed   int           `json:"filesProcessed"`
	FilesSkipped     int           `json:"filesSkipped"`
	Errors           []FileError   `json:"errors,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	StartedAt        time.Time     `json:"startedAt"`
	Duration         time.Duration `json:"-"`
	DurationMs       int64         `json:"durationMs"`
}

// GridReader loads the raw cell grid of a tabular file, with no header
// assumption. Implemented by the excel adapter for .xlsx, .xls and .csv.
type GridReader interface {
	ReadGrid(path string) ([][]string, error)
}

// SheetData is one sheet of an output workbook, already rendered to cells.
type SheetData struct {
	Name  string
	Cells [][]any
}

// WorkbookWriter persists output workbooks. Implemented by the excel adapter.
type WorkbookWriter interface {
	WriteWorkbook(path string, sheets []SheetData) error
}
