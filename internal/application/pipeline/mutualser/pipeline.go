package mutualser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"3tcapital/goglosas/internal/application/emitter"
	"3tcapital/goglosas/internal/application/homologacion"
	"3tcapital/goglosas/internal/application/ingestion"
	"3tcapital/goglosas/internal/application/pipeline"
	"3tcapital/goglosas/internal/core/glosas"
)

// Mutualser sends every objection for one or more invoices in a single
// sheet per file. The pipeline parses each file into the canonical detail
// schema, homologates service codes, and emits a consolidated workbook plus
// the Objections workbook with the AU/TA collapse applied.
type Pipeline struct {
	parser  *ingestion.Parser
	engine  *homologacion.Engine
	emitter *emitter.Emitter
	writer  glosas.WorkbookWriter
	log     *slog.Logger
	now     func() time.Time
}

func New(parser *ingestion.Parser, engine *homologacion.Engine, em *emitter.Emitter, writer glosas.WorkbookWriter, log *slog.Logger) *Pipeline {
	return &Pipeline{
		parser:  parser,
		engine:  engine,
		emitter: em,
		writer:  writer,
		log:     log.With(slog.String("pipeline", "mutualser")),
		now:     time.Now,
	}
}

// Consolidated sheet layout: the canonical detail schema plus the three
// derived columns appended by the run.
var consolidatedColumns = []string{
	"Numero de Factura",
	"Fecha Factura",
	"Numero de Glosa",
	"Codigo Servicio",
	"Cantidad Facturada",
	"Cantidad Glosada",
	"Valor Facturado",
	"Valor Glosado",
	"Concepto",
	"Codigo Objecion",
	"Observacion",
	"Codigo homologado DGH",
	"Tecnologia NO homologada",
	"REG GLOSA",
}

func (p *Pipeline) Run(ctx context.Context, req glosas.RunRequest) (*pipeline.Outcome, error) {
	out := &pipeline.Outcome{}
	log := pipeline.RunLogger(ctx, p.log)

	var records []glosas.DetailRecord
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheet, meta, err := p.parser.ParseFile(file.Path)
		if err != nil {
			out.FilesSkipped++
			out.Errors = append(out.Errors, glosas.FileError{
				Path:    file.Path,
				Message: err.Error(),
			})
			log.Warn("supplier file skipped", "path", file.Path, "error", err)
			continue
		}

		records = append(records, extractRecords(sheet, meta, file.ReceivedAt)...)
		out.FilesProcessed++
	}

	records = dropIncomplete(records)
	if len(records) == 0 {
		return out, nil
	}
	if missing, err := p.engine.MissingColumns(glosas.EPSMutualser); err == nil && len(missing) > 0 {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("%s: %s", glosas.ErrMissingHomologationColumn, strings.Join(missing, ", ")))
	}
	if err := p.homologate(records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].GlosaID != "" {
			records[i].RegGlosa = "REG, GLOSA SEGUN RAD N. " + records[i].GlosaID
		}
	}
	out.DetailRows = len(records)

	consolidated, err := p.writeConsolidated(records, req.OutputDir)
	if err != nil {
		return nil, err
	}
	out.ConsolidatedPath = consolidated

	rows := Collapse(p.emitter.Build(glosas.EPSMutualser, toInputs(records)))
	objPath, err := p.emitter.Write(glosas.EPSMutualser, rows, req.OutputDir)
	if err != nil {
		return nil, err
	}
	out.ObjectionsPath = objPath
	out.ObjectionRows = len(rows)

	return out, nil
}

// extractRecords maps a parsed sheet onto canonical detail records, filling
// invoice id and date from the sheet metadata when the columns are absent.
func extractRecords(sheet *glosas.Sheet, meta glosas.FileMetadata, receivedAt time.Time) []glosas.DetailRecord {
	invoiceCol, _ := ingestion.Resolve(sheet.Columns, "numero de factura", "factura")
	glosaCol, _ := ingestion.Resolve(sheet.Columns, "numero de glosa", "no. glosa", "id glosa")
	serviceCol, _ := ingestion.Resolve(sheet.Columns, "codigo de servicio", "codigo servicio", "codigo del servicio")
	qtyBilledCol, _ := ingestion.Resolve(sheet.Columns, "cantidad facturada")
	qtyRejectedCol, _ := ingestion.Resolve(sheet.Columns, "cantidad glosada", "cantidad objetada")
	amtBilledCol, _ := ingestion.Resolve(sheet.Columns, "valor facturado", "valor factura")
	amtRejectedCol, _ := ingestion.Resolve(sheet.Columns, "valor glosado", "valor glosa", "valor objetado")
	conceptCol, _ := ingestion.Resolve(sheet.Columns, "concepto")
	objectionCol, _ := ingestion.Resolve(sheet.Columns, "codigo de glosa", "codigo glosa", "codigo objecion")
	obsCol, _ := ingestion.Resolve(sheet.Columns, "observacion", "observaciones")
	dateCol, _ := ingestion.Resolve(sheet.Columns, "fecha factura", "fecha de factura")

	records := make([]glosas.DetailRecord, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rec := glosas.DetailRecord{
			InvoiceID:           row[invoiceCol],
			GlosaID:             row[glosaCol],
			ServiceCodeSupplier: row[serviceCol],
			QtyBilled:           row[qtyBilledCol],
			QtyRejected:         row[qtyRejectedCol],
			AmountBilled:        row[amtBilledCol],
			AmountRejected:      row[amtRejectedCol],
			Concept:             row[conceptCol],
			ObjectionCode:       row[objectionCol],
			Observation:         row[obsCol],
			InvoiceDate:         meta.DocumentDate,
			EmailReceivedAt:     receivedAt,
		}
		if rec.InvoiceID == "" {
			rec.InvoiceID = meta.InvoiceID
		}
		if dateCol != "" {
			if d, ok := ingestion.ParseDate(row[dateCol]); ok {
				rec.InvoiceDate = d
			}
		}
		records = append(records, rec)
	}
	return records
}

func dropIncomplete(records []glosas.DetailRecord) []glosas.DetailRecord {
	kept := records[:0]
	for _, rec := range records {
		if rec.ServiceCodeSupplier == "" || rec.InvoiceID == "" {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func (p *Pipeline) homologate(records []glosas.DetailRecord) error {
	codes := make([]string, 0, len(records))
	for _, rec := range records {
		codes = append(codes, rec.ServiceCodeSupplier)
	}
	resolved, err := p.engine.ResolveMany(glosas.EPSMutualser, codes)
	if err != nil {
		return fmt.Errorf("homologating mutualser codes: %w", err)
	}
	for i := range records {
		records[i].ServiceCodeERP = resolved[records[i].ServiceCodeSupplier]
		if records[i].ServiceCodeERP == "" {
			records[i].ServiceCodeUnmapped = records[i].ServiceCodeSupplier
		}
	}
	return nil
}

func (p *Pipeline) writeConsolidated(records []glosas.DetailRecord, outputDir string) (string, error) {
	cells := make([][]any, 0, len(records)+1)
	header := make([]any, len(consolidatedColumns))
	for i, c := range consolidatedColumns {
		header[i] = c
	}
	cells = append(cells, header)
	for _, rec := range records {
		var date string
		if !rec.InvoiceDate.IsZero() {
			date = rec.InvoiceDate.Format("2006-01-02")
		}
		cells = append(cells, []any{
			rec.InvoiceID,
			date,
			rec.GlosaID,
			rec.ServiceCodeSupplier,
			rec.QtyBilled,
			rec.QtyRejected,
			rec.AmountBilled,
			rec.AmountRejected,
			rec.Concept,
			rec.ObjectionCode,
			rec.Observation,
			rec.ServiceCodeERP,
			rec.ServiceCodeUnmapped,
			rec.RegGlosa,
		})
	}

	path := filepath.Join(outputDir, fmt.Sprintf("MUTUALSER_consolidado_%s.xlsx", p.now().Format("20060102_150405")))
	sheets := []glosas.SheetData{{Name: "Consolidado", Cells: cells}}
	if err := p.writer.WriteWorkbook(path, sheets); err != nil {
		return "", fmt.Errorf("%w: %s: %v", glosas.ErrEmissionIO, path, err)
	}
	return path, nil
}

// toInputs renders canonical records as emitter inputs. CRDOBSERV joins
// concept and observation with " - ", omitting empty parts.
func toInputs(records []glosas.DetailRecord) []emitter.Input {
	inputs := make([]emitter.Input, 0, len(records))
	for _, rec := range records {
		obs := rec.Concept
		switch {
		case obs == "":
			obs = rec.Observation
		case rec.Observation != "":
			obs = obs + " - " + rec.Observation
		}
		inputs = append(inputs, emitter.Input{
			InvoiceID:     rec.InvoiceID,
			ObjectionDate: rec.InvoiceDate,
			ObjectionCode: rec.ObjectionCode,
			ServiceCode:   rec.ServiceCodeERP,
			Amount:        rec.AmountRejected,
			Observation:   obs,
			RegGlosa:      rec.RegGlosa,
		})
	}
	return inputs
}
