package coosalud

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

const (
	colInvoiceTag   = "_invoice_tag"
	colFechaProceso = "FECHA_PROCESO"
	colFechaCorreo  = "fecha_correo"
	colDGH          = "Codigo homologado DGH"
	colNoHomologado = "Codigo no homologado"
	sheetDetalles   = "Detalles"
	sheetGlosa      = "Glosa"
)

// Coosalud delivers objections as DETALLE/GLOSAS file pairs per invoice.
// The pipeline pairs the files, homologates the DETALLE service codes,
// reduces the GLOSAS rows per id_detalle and left-joins the aggregate back
// onto the detail table before emitting the Objections workbook.
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
		log:     log.With(slog.String("pipeline", "coosalud")),
		now:     time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context, req glosas.RunRequest) (*pipeline.Outcome, error) {
	out := &pipeline.Outcome{}
	log := pipeline.RunLogger(ctx, p.log)

	pairs, skipped, warnings := classify(req.Files)
	out.FilesSkipped = skipped
	out.Warnings = append(out.Warnings, warnings...)

	processDate := req.ProcessDate
	if processDate.IsZero() {
		processDate = p.now()
	}

	details := &glosas.Sheet{}
	glosaRows := &glosas.Sheet{}
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, g, errs := p.processPair(log, pair, processDate)
		if len(errs) > 0 {
			out.Errors = append(out.Errors, errs...)
			out.FilesSkipped += 2
			continue
		}
		details.Append(d)
		glosaRows.Append(g)
		out.FilesProcessed += 2
	}

	if len(details.Rows) > 0 {
		if missing, err := p.engine.MissingColumns(glosas.EPSCoosalud); err == nil && len(missing) > 0 {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("%s: %s", glosas.ErrMissingHomologationColumn, strings.Join(missing, ", ")))
		}
	}

	p.joinGlosas(details, glosaRows, out)
	out.DetailRows = len(details.Rows)
	if out.DetailRows == 0 {
		return out, nil
	}

	consolidated, err := p.writeConsolidated(details, glosaRows, req.OutputDir)
	if err != nil {
		return nil, err
	}
	out.ConsolidatedPath = consolidated

	rows := p.emitter.Build(glosas.EPSCoosalud, p.toInputs(details))
	objPath, err := p.emitter.Write(glosas.EPSCoosalud, rows, req.OutputDir)
	if err != nil {
		return nil, err
	}
	out.ObjectionsPath = objPath
	out.ObjectionRows = len(rows)

	return out, nil
}

// processPair parses both files of a pair and annotates them with the
// invoice tag, the processing date and the per-file mail date. A parse
// failure on either side invalidates the whole pair.
func (p *Pipeline) processPair(log *slog.Logger, pair filePair, processDate time.Time) (d, g *glosas.Sheet, errs []glosas.FileError) {
	d, _, err := p.parser.ParseFile(pair.detalle.Path)
	if err != nil {
		errs = append(errs, glosas.FileError{Path: pair.detalle.Path, Message: err.Error()})
		log.Warn("detalle file skipped", "path", pair.detalle.Path, "error", err)
	}
	g, _, gerr := p.parser.ParseFile(pair.glosas.Path)
	if gerr != nil {
		errs = append(errs, glosas.FileError{Path: pair.glosas.Path, Message: gerr.Error()})
		log.Warn("glosas file skipped", "path", pair.glosas.Path, "error", gerr)
	}
	if len(errs) > 0 {
		return nil, nil, errs
	}

	fechaProceso := processDate.Format("2006-01-02")
	fechaCorreo := pair.detalle.ReceivedAt
	if fechaCorreo.IsZero() {
		fechaCorreo = p.now()
	}

	d.AddColumn(colInvoiceTag, pair.key)
	d.AddColumn(colFechaProceso, fechaProceso)
	d.AddColumn(colFechaCorreo, fechaCorreo.Format("2006-01-02"))
	if err := p.homologate(d); err != nil {
		return nil, nil, []glosas.FileError{{Path: pair.detalle.Path, Message: err.Error()}}
	}

	g.AddColumn(colInvoiceTag, pair.key)
	g.AddColumn(colFechaProceso, fechaProceso)

	return d, g, nil
}

// homologate resolves the codigo_servicio column into the two derived
// columns; exactly one of them is non-empty per row. Rows with a blank
// service code are dropped, as in the Mutualser pipeline.
func (p *Pipeline) homologate(d *glosas.Sheet) error {
	serviceCol, ok := ingestion.Resolve(d.Columns, "codigo_servicio", "codigo servicio", "codigo de servicio")
	d.AddColumn(colDGH, "")
	d.AddColumn(colNoHomologado, "")
	if !ok {
		return nil
	}

	kept := d.Rows[:0]
	for _, row := range d.Rows {
		if strings.TrimSpace(row[serviceCol]) == "" {
			continue
		}
		kept = append(kept, row)
	}
	d.Rows = kept

	codes := make([]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		codes = append(codes, row[serviceCol])
	}
	resolved, err := p.engine.ResolveMany(glosas.EPSCoosalud, codes)
	if err != nil {
		return fmt.Errorf("homologating coosalud codes: %w", err)
	}
	for _, row := range d.Rows {
		code := row[serviceCol]
		if erp := resolved[code]; erp != "" {
			row[colDGH] = erp
		} else {
			row[colNoHomologado] = code
		}
	}
	return nil
}

// joinGlosas left-joins the per-id_detalle aggregate onto the detail table.
func (p *Pipeline) joinGlosas(d, g *glosas.Sheet, out *pipeline.Outcome) {
	d.AddColumn(colCodigoGlosa, "")
	d.AddColumn(colJustificacion, "")
	if len(d.Rows) == 0 {
		return
	}

	idCol, ok := ingestion.Resolve(d.Columns, "id_detalle", "id detalle")
	if !ok {
		out.Warnings = append(out.Warnings, "id_detalle column missing; glosa codes not joined")
		return
	}

	aggregates := aggregateGlosas(g)
	for _, row := range d.Rows {
		if agg, found := aggregates[row[idCol]]; found {
			row[colCodigoGlosa] = agg.code
			row[colJustificacion] = agg.justification
		}
	}
}

func (p *Pipeline) writeConsolidated(d, g *glosas.Sheet, outputDir string) (string, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("COOSALUD_GLOSAS_%s.xlsx", p.now().Format("20060102_150405")))
	sheets := []glosas.SheetData{
		{Name: sheetDetalles, Cells: d.CellMatrix()},
		{Name: sheetGlosa, Cells: g.CellMatrix()},
	}
	if err := p.writer.WriteWorkbook(path, sheets); err != nil {
		return "", fmt.Errorf("%w: %s: %v", glosas.ErrEmissionIO, path, err)
	}
	return path, nil
}

func (p *Pipeline) toInputs(d *glosas.Sheet) []emitter.Input {
	invoiceCol, hasInvoice := ingestion.Resolve(d.Columns, "numero de factura", "factura")
	amountCol, _ := ingestion.Resolve(d.Columns, "valor glosado", "valor glosa", "valor objetado")

	inputs := make([]emitter.Input, 0, len(d.Rows))
	for _, row := range d.Rows {
		invoice := row[colInvoiceTag]
		if hasInvoice && row[invoiceCol] != "" {
			invoice = row[invoiceCol]
		}
		var objDate time.Time
		if parsed, ok := ingestion.ParseDate(row[colFechaCorreo]); ok {
			objDate = parsed
		}
		inputs = append(inputs, emitter.Input{
			InvoiceID:     invoice,
			ObjectionDate: objDate,
			ObjectionCode: row[colCodigoGlosa],
			ServiceCode:   row[colDGH],
			Amount:        row[amountCol],
			Observation:   row[colJustificacion],
		})
	}
	return inputs
}
