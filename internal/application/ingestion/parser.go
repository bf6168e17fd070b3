package ingestion

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"3tcapital/goglosas/internal/core/glosas"
)

const (
	headerTrigger    = "numero de factura"
	secondaryTrigger = "detalle de glosa"
)

// Parser locates the true header row inside supplier files and produces a
// trimmed Sheet plus the sheet-level metadata found above the header.
type Parser struct {
	reader glosas.GridReader
	log    *slog.Logger
}

// NewParser creates a parser over the given grid reader.
func NewParser(reader glosas.GridReader, log *slog.Logger) *Parser {
	return &Parser{reader: reader, log: log}
}

// ParseFile reads a supplier file with no assumed header, scans for the
// header trigger phrase, and returns the tabular slice below it. Footer rows
// (empty invoice cell, or TOTAL/SUMA summaries) are dropped.
func (p *Parser) ParseFile(path string) (*glosas.Sheet, glosas.FileMetadata, error) {
	grid, err := p.reader.ReadGrid(path)
	if err != nil {
		return nil, glosas.FileMetadata{}, err
	}

	headerIdx := -1
	var meta glosas.FileMetadata

	for i, row := range grid {
		text := joinedRowText(row)
		if text == "" {
			continue
		}

		if strings.Contains(text, headerTrigger) {
			headerIdx = i
			break
		}
		if strings.Contains(text, secondaryTrigger) {
			// The trigger labels the block; the actual header is the next row.
			if i+1 >= len(grid) {
				return nil, meta, fmt.Errorf("%w: %s", glosas.ErrMalformedSupplierFile, path)
			}
			headerIdx = i + 1
			break
		}

		extractMetadata(row, text, &meta)
	}

	if headerIdx < 0 {
		return nil, meta, fmt.Errorf("%w: %s", glosas.ErrMalformedSupplierFile, path)
	}

	sheet := buildSheet(grid, headerIdx)
	dropFooterRows(sheet)

	p.log.Debug("supplier file parsed",
		"path", path,
		"header_row", headerIdx+1,
		"rows", len(sheet.Rows),
		"columns", len(sheet.Columns),
	)
	return sheet, meta, nil
}

// joinedRowText joins the non-empty cells of a row into one normalized
// string for trigger scanning.
func joinedRowText(row []string) string {
	var parts []string
	for _, cell := range row {
		if c := CleanCell(cell); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return Normalize(strings.Join(parts, " "))
}

// extractMetadata pulls the document date and document-level invoice id from
// preamble rows, best effort.
func extractMetadata(row []string, text string, meta *glosas.FileMetadata) {
	if meta.DocumentDate.IsZero() && strings.Contains(text, "fecha") {
		for _, cell := range row {
			if d, ok := ParseDate(CleanCell(cell)); ok {
				meta.DocumentDate = d
				break
			}
		}
	}
	if meta.InvoiceID == "" && strings.Contains(text, "factura") {
		for _, cell := range row {
			c := CleanCell(cell)
			if c == "" {
				continue
			}
			upper := strings.ToUpper(c)
			if strings.HasPrefix(upper, "FC") && glosas.DigitsOnly(c) != "" {
				meta.InvoiceID = c
				break
			}
			if c == glosas.DigitsOnly(c) && c != "" {
				meta.InvoiceID = c
				break
			}
		}
	}
}

func buildSheet(grid [][]string, headerIdx int) *glosas.Sheet {
	header := grid[headerIdx]
	columns := make([]string, 0, len(header))
	seen := make(map[string]int, len(header))
	for i, cell := range header {
		name := CleanCell(cell)
		if name == "" {
			name = fmt.Sprintf("columna_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		columns = append(columns, name)
	}

	sheet := &glosas.Sheet{Columns: columns}
	for _, row := range grid[headerIdx+1:] {
		record := make(map[string]string, len(columns))
		empty := true
		for i, col := range columns {
			var value string
			if i < len(row) {
				value = CleanCell(row[i])
			}
			if value != "" {
				empty = false
			}
			record[col] = value
		}
		if !empty {
			sheet.Rows = append(sheet.Rows, record)
		}
	}
	return sheet
}

// dropFooterRows removes summary rows: an empty invoice cell, or one whose
// upper-cased value contains TOTAL or SUMA. When no invoice column exists
// the sheet is left as-is.
func dropFooterRows(sheet *glosas.Sheet) {
	invoiceCol, ok := Resolve(sheet.Columns, "numero de factura", "factura")
	if !ok {
		return
	}

	kept := sheet.Rows[:0]
	for _, row := range sheet.Rows {
		value := strings.ToUpper(row[invoiceCol])
		if value == "" || strings.Contains(value, "TOTAL") || strings.Contains(value, "SUMA") {
			continue
		}
		kept = append(kept, row)
	}
	sheet.Rows = kept
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"01-02-06",
}

// ParseDate attempts the date layouts seen across supplier files.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
