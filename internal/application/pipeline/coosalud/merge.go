package coosalud

import (
	"sort"

	"3tcapital/goglosas/internal/application/homologacion"
	"3tcapital/goglosas/internal/application/ingestion"
	"3tcapital/goglosas/internal/core/glosas"
)

const (
	colCodigoGlosa   = "codigo_glosa"
	colJustificacion = "justificacion_glosa"
)

// glosaAggregate is the per-id_detalle reduction of the GLOSAS rows: one
// selected priority code plus the joined justification texts.
type glosaAggregate struct {
	code          string
	justification string
}

// aggregateGlosas reduces the GLOSAS table by id_detalle. Codes are
// priority-normalized and the highest-ranked one is selected; justifications
// are stable-sorted by code rank, de-duplicated and joined with " // ".
func aggregateGlosas(g *glosas.Sheet) map[string]glosaAggregate {
	idCol, ok := ingestion.Resolve(g.Columns, "id_detalle", "id detalle")
	if !ok {
		return nil
	}
	codeCol, _ := ingestion.Resolve(g.Columns, colCodigoGlosa, "codigo glosa")
	justCol, _ := ingestion.Resolve(g.Columns, colJustificacion, "justificacion")

	type entry struct {
		codes []string
		seen  map[string]bool
		texts []rankedText
	}
	grouped := make(map[string]*entry)
	var order []string

	for _, row := range g.Rows {
		id := row[idCol]
		if id == "" {
			continue
		}
		e, ok := grouped[id]
		if !ok {
			e = &entry{seen: make(map[string]bool)}
			grouped[id] = e
			order = append(order, id)
		}

		code := homologacion.NormalizeGlosaCode(row[codeCol])
		if code != "" && !e.seen[code] {
			e.seen[code] = true
			e.codes = append(e.codes, code)
		}
		if text := row[justCol]; text != "" {
			e.texts = append(e.texts, rankedText{
				text: text,
				rank: homologacion.PriorityRank(code),
			})
		}
	}

	aggregates := make(map[string]glosaAggregate, len(order))
	for _, id := range order {
		e := grouped[id]
		aggregates[id] = glosaAggregate{
			code:          homologacion.SelectPriorityCode(e.codes),
			justification: joinJustifications(e.texts),
		}
	}
	return aggregates
}

type rankedText struct {
	text string
	rank int
}

func joinJustifications(texts []rankedText) string {
	sorted := append([]rankedText(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].rank < sorted[j].rank })

	seen := make(map[string]bool, len(sorted))
	joined := ""
	for _, t := range sorted {
		if seen[t.text] {
			continue
		}
		seen[t.text] = true
		if joined != "" {
			joined += " // "
		}
		joined += t.text
	}
	return joined
}
