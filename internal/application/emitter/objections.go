package emitter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"3tcapital/goglosas/internal/core/glosas"
)

// Input is one objection line as assembled by an EPS pipeline, before the
// fixed-column layout is applied.
type Input struct {
	InvoiceID     string
	ObjectionDate time.Time
	ObjectionCode string
	ServiceCode   string
	Amount        string
	Observation   string
	RegGlosa      string
}

// Emitter builds and writes the fixed fourteen-column Objections workbook
// that the ERP imports.
type Emitter struct {
	writer glosas.WorkbookWriter
	log    *slog.Logger
	now    func() time.Time
}

func New(writer glosas.WorkbookWriter, log *slog.Logger) *Emitter {
	return &Emitter{
		writer: writer,
		log:    log.With(slog.String("component", "emitter")),
		now:    time.Now,
	}
}

// Build maps pipeline inputs onto ObjectionRows. CDCONSEC numbers distinct
// invoices by first occurrence, CRNCXC rewrites the invoice id as
// "FC0000"+digits, and amounts follow the EPS rounding convention
// (Mutualser imports integer pesos).
func (e *Emitter) Build(eps glosas.EPS, inputs []Input) []glosas.ObjectionRow {
	docDate := unpaddedDate(e.now())

	consec := make(map[string]int)
	rows := make([]glosas.ObjectionRow, 0, len(inputs))
	for _, in := range inputs {
		seq, ok := consec[in.InvoiceID]
		if !ok {
			seq = len(consec) + 1
			consec[in.InvoiceID] = seq
		}

		var fecObj string
		if !in.ObjectionDate.IsZero() {
			fecObj = in.ObjectionDate.Format("02/01/2006")
		}

		value := ParseMoney(in.Amount)
		if eps == glosas.EPSMutualser {
			value = value.Round(0)
		}

		rows = append(rows, glosas.ObjectionRow{
			CDConsec:    seq,
			CDFecDoc:    docDate,
			CRNCxC:      FormatInvoiceID(in.InvoiceID),
			CROFecObj:   fecObj,
			CROObserv:   e.observ(eps, in, fecObj),
			GenUsuario4: glosas.GenUsuario4,
			CRNConObj:   in.ObjectionCode,
			SLNSerPro:   in.ServiceCode,
			CROValObj:   value,
			CRDObserv:   in.Observation,
		})
	}
	return rows
}

func (e *Emitter) observ(eps glosas.EPS, in Input, fecObj string) string {
	if eps == glosas.EPSCoosalud {
		if fecObj == "" {
			return ""
		}
		return "REG, GLOSA SEGUN RAD N. " + fecObj
	}
	return in.RegGlosa
}

// Write saves the rows as the single-sheet Objections workbook and returns
// the file path.
func (e *Emitter) Write(eps glosas.EPS, rows []glosas.ObjectionRow, outputDir string) (string, error) {
	name := fmt.Sprintf("Objeciones_%s.xlsx", e.now().Format("20060102_150405"))
	if eps == glosas.EPSCoosalud {
		name = fmt.Sprintf("Objeciones_COOSALUD_%s.xlsx", e.now().Format("20060102_150405"))
	}
	path := filepath.Join(outputDir, name)

	cells := make([][]any, 0, len(rows)+1)
	header := make([]any, len(glosas.ObjectionColumns))
	for i, col := range glosas.ObjectionColumns {
		header[i] = col
	}
	cells = append(cells, header)
	for _, row := range rows {
		cells = append(cells, row.Cells())
	}

	sheets := []glosas.SheetData{{Name: glosas.ObjectionSheetName, Cells: cells}}
	if err := e.writer.WriteWorkbook(path, sheets); err != nil {
		return "", fmt.Errorf("%w: %s: %v", glosas.ErrEmissionIO, path, err)
	}

	e.log.Info("objections workbook written",
		slog.String("eps", eps.String()),
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return path, nil
}

// FormatInvoiceID rewrites a supplier invoice id into the ERP account key:
// an existing FC prefix is dropped, the remaining digits are kept and
// prefixed with "FC0000". No digits means no key.
func FormatInvoiceID(invoiceID string) string {
	s := strings.TrimSpace(invoiceID)
	if len(s) >= 2 && strings.EqualFold(s[:2], "FC") {
		s = s[2:]
	}
	digits := glosas.DigitsOnly(s)
	if digits == "" {
		return ""
	}
	return "FC0000" + digits
}

// unpaddedDate renders M/D/YYYY without zero padding, the format the ERP
// expects in CDFECDOC.
func unpaddedDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}
