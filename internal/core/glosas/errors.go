package glosas

import "errors"

// Error kinds surfaced by the pipeline. Per-file errors are collected into
// the run result; only emission failures abort a run.
var (
	// ErrMalformedSupplierFile indicates the header row could not be located.
	ErrMalformedSupplierFile = errors.New("malformed supplier file: header row not found")

	// ErrUnsupportedFormat indicates the file extension is not in the accepted set.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingHomologationColumn indicates a required homologation column is absent.
	ErrMissingHomologationColumn = errors.New("missing homologation column")

	// ErrPairIncomplete indicates a Coosalud DETALLE without GLOSAS or vice versa.
	ErrPairIncomplete = errors.New("incomplete DETALLE/GLOSAS pair")

	// ErrEmissionIO indicates a failure writing an output workbook. Fatal for the run.
	ErrEmissionIO = errors.New("emission I/O error")

	// ErrNoRowsEmitted indicates the run produced no output rows at all.
	ErrNoRowsEmitted = errors.New("no output rows emitted")
)
